package testutil

import (
	"os"
	"testing"
	"time"
)

const healthCheckTimeout = 30 * time.Second

// TestEnv points the suite at a running patients service and its database.
// Every value can be overridden through TEST_* variables.
type TestEnv struct {
	MongoURI     string
	DatabaseName string
	ServerURL    string
}

func NewTestEnv() *TestEnv {
	return &TestEnv{
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
		ServerURL:    getEnv("TEST_SERVER_URL", "http://localhost:"+getEnv("TEST_SERVER_PORT", "8080")),
	}
}

// Setup waits for the service, empties the database and registers the
// cleanup with t, so callers need no deferred teardown.
func (e *TestEnv) Setup(t *testing.T) (*MongoHelper, *Client) {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanDatabase(t)
	t.Cleanup(func() {
		mongo.CleanDatabase(t)
		mongo.Close(t)
	})

	client := NewClient(e.ServerURL)
	client.WaitForHealthy(t, healthCheckTimeout)

	return mongo, client
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
