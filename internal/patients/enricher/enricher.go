// Package enricher completes patient addresses from their CEP in the
// background, driven by patient events.
package enricher

import (
	"context"

	"intake/internal/patients/events"
	apperrors "intake/pkg/errors"
	"intake/pkg/kafka"
	"intake/pkg/logger"
)

type AddressCompleter interface {
	CompleteAddress(ctx context.Context, id string) (bool, error)
}

type Enricher struct {
	completer AddressCompleter
	log       *logger.Logger
}

func New(completer AddressCompleter, log *logger.Logger) *Enricher {
	return &Enricher{
		completer: completer,
		log:       log,
	}
}

// Handle is a kafka.MessageHandler. Events that need no enrichment are
// acknowledged without work.
func (e *Enricher) Handle(ctx context.Context, msg kafka.Message) error {
	event, err := events.Decode(msg)
	if err != nil {
		return kafka.NewPermanentError("malformed patient event", err).
			WithDetail("event_id", msg.GetEventID())
	}

	if !event.NeedsAddress() {
		e.log.Debug("patient event skipped", "type", event.Type, "patient_id", event.PatientID)
		return nil
	}

	changed, err := e.completer.CompleteAddress(ctx, event.PatientID)
	if err != nil {
		return classify(err).WithDetail("patient_id", event.PatientID)
	}

	e.log.Info("patient address enriched",
		"patient_id", event.PatientID,
		"cep", event.CEP,
		"changed", changed,
	)
	return nil
}

// classify marks failures that a retry can fix as transient: upstream
// outages, timeouts and storage errors.
func classify(err error) *kafka.KafkaError {
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		return kafka.NewTransientError("address completion failed", err)
	}

	switch appErr.Code {
	case apperrors.CodeUpstream, apperrors.CodeTimeout, apperrors.CodeInternal:
		return kafka.NewTransientError("address completion failed", err)
	}
	return kafka.NewPermanentError("address completion rejected", err)
}
