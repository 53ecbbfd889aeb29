package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	_ "github.com/lib/pq"
)

// PostgresProvider probes PostgreSQL over a database/sql handle separate from the repository pool
type PostgresProvider struct {
	BaseProvider
	db       *sql.DB
	host     string
	database string
}

// NewPostgresProvider creates a new PostgreSQL provider
func NewPostgresProvider(ctx context.Context, dsn string) (*PostgresProvider, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	host, database := "localhost", ""
	if u, err := url.Parse(dsn); err == nil && u.Host != "" {
		host = u.Host
		database = u.Path
		if len(database) > 0 && database[0] == '/' {
			database = database[1:]
		}
	}

	slog.Info("postgres health probe ready", "host", host, "database", database)

	return &PostgresProvider{
		BaseProvider: BaseProvider{serviceType: "postgres"},
		db:           db,
		host:         host,
		database:     database,
	}, nil
}

// HealthCheck verifies PostgreSQL connectivity
func (p *PostgresProvider) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the probe connection
func (p *PostgresProvider) Close() error {
	return p.db.Close()
}
