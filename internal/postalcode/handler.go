package postalcode

import (
	"errors"
	"net/http"

	apperrors "intake/pkg/errors"
	httputil "intake/pkg/http"
	"intake/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	resolver Resolver
	log      *logger.Logger
}

func NewHandler(resolver Resolver, log *logger.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/postal-codes/:cep", h.Lookup)
}

func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	address, err := h.resolver.Lookup(r.Context(), ps.ByName("cep"))
	if err != nil {
		if writeErr := httputil.WriteError(w, ToAppError(err)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Lookup", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, address); err != nil {
		h.log.Error("failed to write success response", "handler", "Lookup", "operation", "WriteSuccess", "error", err)
	}
}

// ToAppError maps lookup failures to 400, 404 and 502 responses.
func ToAppError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCEP):
		return apperrors.InvalidInput("CEP inválido")
	case errors.Is(err, ErrNotFound):
		return apperrors.NotFound("CEP")
	case errors.Is(err, ErrUpstream):
		return apperrors.BadGateway("postal code service", err)
	}
	return apperrors.Internal("postal code lookup failed", err)
}
