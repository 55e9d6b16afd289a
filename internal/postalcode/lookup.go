// Package postalcode resolves Brazilian postal codes (CEP) to street addresses
// through the public ViaCEP service.
package postalcode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"intake/pkg/client"
	"intake/pkg/logger"
	"intake/pkg/model"
	"intake/pkg/sanitizer"
)

const DefaultBaseURL = "https://viacep.com.br"

var (
	ErrInvalidCEP = errors.New("invalid CEP")

	ErrNotFound = errors.New("CEP not found")

	// ErrUpstream covers transport failures and unexpected responses.
	ErrUpstream = errors.New("postal code service unavailable")
)

type Resolver interface {
	Lookup(ctx context.Context, cep string) (*model.PostalAddress, error)
}

type ViaCEP struct {
	client *client.HttpClient
	log    *logger.Logger
}

func NewViaCEP(httpClient *client.HttpClient, log *logger.Logger) *ViaCEP {
	if log == nil {
		log = logger.Discard()
	}
	return &ViaCEP{client: httpClient, log: log}
}

// flexBool accepts both true and "true"; ViaCEP has returned either.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	*b = flexBool(strings.EqualFold(s, "true"))
	return nil
}

type viaCEPResponse struct {
	CEP          string   `json:"cep"`
	Street       string   `json:"logradouro"`
	Complement   string   `json:"complemento"`
	Neighborhood string   `json:"bairro"`
	City         string   `json:"localidade"`
	State        string   `json:"uf"`
	Erro         flexBool `json:"erro"`
}

func (v *ViaCEP) Lookup(ctx context.Context, cep string) (*model.PostalAddress, error) {
	digits := sanitizer.NormalizeCEP(cep)
	if len(digits) != sanitizer.CEPLength {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCEP, cep)
	}

	resp, err := v.client.GET(ctx, "/ws/"+digits+"/json/")
	if err != nil {
		v.log.Warn("postal code lookup failed", "cep", digits, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %q", ErrInvalidCEP, cep)
	default:
		v.log.Warn("postal code service returned unexpected status", "cep", digits, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var body viaCEPResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if body.Erro {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, digits)
	}

	return &model.PostalAddress{
		CEP:          digits,
		Street:       sanitizer.NormalizeName(body.Street),
		Complement:   sanitizer.NormalizeName(body.Complement),
		Neighborhood: sanitizer.NormalizeName(body.Neighborhood),
		City:         sanitizer.NormalizeName(body.City),
		State:        sanitizer.NormalizeState(body.State),
	}, nil
}
