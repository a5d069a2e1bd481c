package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DatabaseConfiguration holds the connection parameters for the Postgres
// store. All fields come from DB_* environment variables via
// NewDatabaseConfiguration, or are set directly by callers that already
// know where the database lives (a test container, a managed instance).
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads a DatabaseConfiguration from the
// environment, defaulting to a local disable-SSL connection so the zero-
// config path still works against a docker-compose Postgres.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	cfg := &DatabaseConfiguration{
		Host:     envOr("DB_HOST", "localhost"),
		Port:     envOr("DB_PORT", "5432"),
		Database: envOr("DB_NAME", "database"),
		Username: envOr("DB_USER", "user"),
		Password: envOr("DB_PASSWORD", "password"),
		Schema:   envOr("DB_SCHEMA", "public"),
		SSLMode:  envOr("DB_SSLMODE", "disable"),
	}
	return cfg, nil
}

// SetTestDatabaseConfigEnvs points the DB_* environment variables at a
// container listening on dbPort, scoped to t so they're restored once the
// test finishes.
func SetTestDatabaseConfigEnvs(t *testing.T, dbPort string) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", dbPort)
	t.Setenv("DB_NAME", "database")
	t.Setenv("DB_USER", "user")
	t.Setenv("DB_PASSWORD", "password")
	t.Setenv("DB_SCHEMA", "public")
	t.Setenv("DB_SSLMODE", "disable")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Database wraps the sql.DB handle used by the store/postgres facets, plus
// the logger they report setup/teardown through.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a connection pool for config under name. Connection
// errors surface on first use rather than here: a failed open or ping is
// only logged, and callers check errors on the stores built on top of it
// instead.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		config.Host, config.Port, config.Database, config.Username, config.Password, config.SSLMode, config.Schema,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("open database connection", "name", name, "error", err)
		return &Database{Name: name, Logger: logger}
	}

	if err := db.Ping(); err != nil {
		logger.Warn("database not yet reachable", "name", name, "error", err)
	}

	return &Database{Name: name, Instance: db, Logger: logger}
}

// NewTestDatabase is NewDatabase with a logger suited to test output.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	opts := PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelWarn}}
	logger := slog.New(NewPrettyHandler(os.Stderr, opts))
	return NewDatabase("test", config, logger)
}

// MustStartPostgresContainer starts a disposable Postgres container with
// the pgvector and ltree extensions available, for tests and local
// examples that don't want to depend on an externally managed database.
// The returned teardown terminates the container; the returned port is
// the host-mapped Postgres port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	options := []testcontainers.ContainerCustomizer{
		postgres.WithDatabase("database"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	}

	pgContainer, err := postgres.Run(ctx, "timescale/timescaledb:latest-pg17", options...)
	if err != nil {
		return nil, "", fmt.Errorf("error starting postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("error getting connection string: %w", err)
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return nil, "", fmt.Errorf("error parsing connection string: %w", err)
	}

	return pgContainer.Terminate, u.Port(), nil
}
