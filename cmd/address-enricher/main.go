package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"intake/internal/patients/enricher"
	"intake/internal/patients/repository"
	"intake/internal/patients/service"
	"intake/internal/patients/validator"
	"intake/internal/postalcode"
	"intake/pkg/client"
	"intake/pkg/config"
	"intake/pkg/kafka"
	kafka_config "intake/pkg/kafka/config"
	kafka_middleware "intake/pkg/kafka/middleware"
)

const ServiceName = "address-enricher"

func main() {
	cfg := config.Load(ServiceName)
	if !cfg.PostalLookupEnabled {
		cfg.Log.Fatal("Address enricher requires postal code lookup to be enabled")
	}
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Failed to load Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	resolver := postalcode.NewViaCEP(client.NewHttpClient(cfg.PostalLookupBaseURL, cfg.PostalLookupTimeout), cfg.Log)
	patientService := service.NewPatientService(
		repository.NewMongoPatientRepository(cfg),
		validator.NewPatientValidator(cfg.Log),
		resolver,
		nil,
		cfg,
	)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.EventsTopic,
		cfg.EnricherGroupID,
		cfg.EventsDLQTopic,
		enricher.New(patientService, cfg.Log).Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	counters := kafka_middleware.NewCounters()
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(counters.ConsumerMiddleware())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting address enricher",
		"topic", cfg.EventsTopic,
		"group_id", cfg.EnricherGroupID,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Kafka consumer stopped unexpectedly", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	counters.LogSummary(cfg.Log)
	cfg.Log.Info("Address enricher stopped")
}
