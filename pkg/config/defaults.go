package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "intake"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 10 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPostalLookupEnabled = true
	DefaultPostalLookupBaseURL = "https://viacep.com.br"
	DefaultPostalLookupTimeout = 5 * time.Second

	DefaultEventsEnabled   = false
	DefaultEventsTopic     = "patients.events"
	DefaultEventsDLQTopic  = "dlq-patients"
	DefaultEnricherGroupID = "patients-address-enricher"

	DefaultPhoneRegion = "BR"

	DefaultPaginationLimit = 100
	MinPaginationLimit     = 10
)
