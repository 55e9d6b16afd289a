package enricher

import (
	"context"
	"errors"
	"testing"
	"time"

	"intake/internal/patients/events"
	apperrors "intake/pkg/errors"
	"intake/pkg/kafka"
	"intake/pkg/logger"
	"intake/pkg/model"
)

type mockCompleter struct {
	calls              []string
	completeAddressErr error
}

func (m *mockCompleter) CompleteAddress(ctx context.Context, id string) (bool, error) {
	m.calls = append(m.calls, id)
	if m.completeAddressErr != nil {
		return false, m.completeAddressErr
	}
	return true, nil
}

func eventMessage(t *testing.T, eventType string, address model.Address) kafka.Message {
	t.Helper()
	p := &model.Patient{ID: "65f1c0a2b3c4d5e6f7a8b9c0", CPF: "11144477735", Address: address}
	msg, err := kafka.NewMessage().
		WithKey(p.ID).
		WithValue(events.NewPatientEvent(eventType, p, time.Now())).
		WithEventType(eventType).
		Build()
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	return msg
}

func TestHandle_CompletesIncompleteAddress(t *testing.T) {
	completer := &mockCompleter{}
	e := New(completer, logger.Discard())

	err := e.Handle(context.Background(), eventMessage(t, events.TypeCreated, model.Address{CEP: "01310100"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(completer.calls) != 1 || completer.calls[0] != "65f1c0a2b3c4d5e6f7a8b9c0" {
		t.Errorf("calls = %v", completer.calls)
	}
}

func TestHandle_Skips(t *testing.T) {
	complete := model.Address{CEP: "01310100", Street: "Avenida Paulista", Neighborhood: "Bela Vista", City: "São Paulo", State: "SP"}

	tests := []struct {
		name      string
		eventType string
		address   model.Address
	}{
		{"deleted", events.TypeDeleted, model.Address{CEP: "01310100"}},
		{"no cep", events.TypeCreated, model.Address{}},
		{"already complete", events.TypeUpdated, complete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &mockCompleter{}
			e := New(completer, logger.Discard())
			if err := e.Handle(context.Background(), eventMessage(t, tt.eventType, tt.address)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(completer.calls) != 0 {
				t.Errorf("completer should not be called, got %v", completer.calls)
			}
		})
	}
}

func TestHandle_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want kafka.ErrorType
	}{
		{"upstream outage", apperrors.BadGateway("postal code service", errors.New("503")), kafka.ErrorTypeTransient},
		{"storage failure", apperrors.Internal("Failed to retrieve patient", errors.New("socket closed")), kafka.ErrorTypeTransient},
		{"plain error", errors.New("boom"), kafka.ErrorTypeTransient},
		{"unknown cep", apperrors.NotFound("CEP"), kafka.ErrorTypePermanent},
		{"deleted patient", apperrors.NotFoundWithID("Patient", "x"), kafka.ErrorTypePermanent},
		{"lookup disabled", apperrors.Unavailable("Postal code lookup"), kafka.ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(&mockCompleter{completeAddressErr: tt.err}, logger.Discard())
			err := e.Handle(context.Background(), eventMessage(t, events.TypeCreated, model.Address{CEP: "01310100"}))
			if got := kafka.ClassifyError(err); got != tt.want {
				t.Errorf("ClassifyError = %v, want %v (%v)", got, tt.want, err)
			}
			if !errors.Is(err, tt.err) {
				t.Error("original error should stay in the chain")
			}
		})
	}
}

func TestHandle_MalformedPayload(t *testing.T) {
	completer := &mockCompleter{}
	e := New(completer, logger.Discard())

	err := e.Handle(context.Background(), kafka.Message{Value: []byte("not json")})
	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Errorf("malformed payload should be permanent, got %v", err)
	}
	if len(completer.calls) != 0 {
		t.Error("completer should not be called")
	}
}
