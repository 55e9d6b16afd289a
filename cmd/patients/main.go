package main

import (
	"intake/internal/patients/events"
	"intake/internal/patients/handler"
	"intake/internal/patients/repository"
	"intake/internal/patients/service"
	"intake/internal/patients/validator"
	"intake/internal/postalcode"
	"intake/pkg/app"
	"intake/pkg/client"
	"intake/pkg/config"
	"intake/pkg/contracts"
	"intake/pkg/kafka"
	kafka_config "intake/pkg/kafka/config"
	kafka_middleware "intake/pkg/kafka/middleware"
)

const ServiceName = "patients"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	application := app.NewApplication()

	var resolver postalcode.Resolver
	if cfg.PostalLookupEnabled {
		resolver = postalcode.NewViaCEP(client.NewHttpClient(cfg.PostalLookupBaseURL, cfg.PostalLookupTimeout), cfg.Log)
	} else {
		cfg.Log.Info("Postal code lookup disabled")
	}

	publisher := newPublisher(cfg, application)
	application.OnShutdown(func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	})

	patientService := service.NewPatientService(
		repository.NewMongoPatientRepository(cfg),
		validator.NewPatientValidator(cfg.Log),
		resolver,
		publisher,
		cfg,
	)

	handlers := []contracts.Handler{handler.NewPatientHandler(patientService, cfg.Log)}
	if resolver != nil {
		handlers = append(handlers, postalcode.NewHandler(resolver, cfg.Log))
	}

	application.SetApp(cfg, cfg.Client.Mongo, handlers...)
	application.Run()
}

func newPublisher(cfg *config.Config, application *app.Application) events.Publisher {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Patient events disabled")
		return events.NewNoopPublisher()
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Failed to load Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.EventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		counters := kafka_middleware.NewCounters()
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(counters.ProducerMiddleware())
		application.OnShutdown(func() { counters.LogSummary(cfg.Log) })
	}

	return events.NewKafkaPublisher(producer, cfg.Log)
}
