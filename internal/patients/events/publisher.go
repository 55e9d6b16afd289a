// Package events publishes patient lifecycle changes to Kafka.
package events

import (
	"context"
	"fmt"
	"time"

	"intake/pkg/cpf"
	"intake/pkg/kafka"
	"intake/pkg/logger"
	"intake/pkg/middleware"
	"intake/pkg/model"
)

const (
	TypeCreated = "patient.created"
	TypeUpdated = "patient.updated"
	TypeDeleted = "patient.deleted"

	Source        = "patients-service"
	SchemaVersion = "1"
)

// PatientEvent is the payload of every patient event. The CPF is masked so
// the topic never carries the identifier in clear.
type PatientEvent struct {
	PatientID       string    `json:"patient_id"`
	Type            string    `json:"type"`
	CPFMasked       string    `json:"cpf_masked"`
	CEP             string    `json:"cep,omitempty"`
	AddressComplete bool      `json:"address_complete"`
	Timestamp       time.Time `json:"timestamp"`
}

func NewPatientEvent(eventType string, p *model.Patient, now time.Time) PatientEvent {
	return PatientEvent{
		PatientID:       p.ID,
		Type:            eventType,
		CPFMasked:       cpf.Mask(p.CPF),
		CEP:             p.Address.CEP,
		AddressComplete: p.Address.IsComplete(),
		Timestamp:       now.UTC(),
	}
}

// NeedsAddress reports whether the enricher should try to complete the address.
func (e PatientEvent) NeedsAddress() bool {
	return (e.Type == TypeCreated || e.Type == TypeUpdated) && e.CEP != "" && !e.AddressComplete
}

func Decode(msg kafka.Message) (PatientEvent, error) {
	var event PatientEvent
	if err := msg.DecodeValue(&event); err != nil {
		return PatientEvent{}, fmt.Errorf("failed to decode patient event: %w", err)
	}
	if event.Type == "" {
		event.Type = msg.GetEventType()
	}
	return event, nil
}

type Publisher interface {
	Publish(ctx context.Context, event PatientEvent) error
	Close() error
}

// MessageProducer is the part of *kafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	producer MessageProducer
	log      *logger.Logger
}

func NewKafkaPublisher(producer MessageProducer, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		log:      log,
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event PatientEvent) error {
	builder := kafka.NewMessage().
		WithKey(event.PatientID).
		WithValue(event).
		WithEventType(event.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithTimestamp(event.Timestamp).
		WithCorrelationID(middleware.RequestIDFromContext(ctx))

	msg, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build %s message: %w", event.Type, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.log.Debug("patient event published", "type", event.Type, "patient_id", event.PatientID, "event_id", msg.GetEventID())
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that drops every event.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, PatientEvent) error { return nil }

func (noopPublisher) Close() error { return nil }
