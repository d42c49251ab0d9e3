//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema is the full DDL applied to a fresh container. It mirrors what the
// stores expect; there is no separate migration tooling.
const schema = `
CREATE TABLE IF NOT EXISTS provider_verifications (
	provider_id                UUID PRIMARY KEY,
	rut                        TEXT NOT NULL,
	current_step               TEXT NOT NULL,
	steps_completed            TEXT[] NOT NULL DEFAULT '{}',
	final_decision             TEXT NOT NULL,
	auto_verification_possible BOOLEAN NOT NULL,
	started_at                 TIMESTAMPTZ NOT NULL,
	completed_at               TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS validation_outcomes (
	id          BIGSERIAL PRIMARY KEY,
	provider_id UUID NOT NULL,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL,
	score       DOUBLE PRECISION NOT NULL,
	source      TEXT NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_validation_outcomes_provider ON validation_outcomes (provider_id, observed_at);

CREATE TABLE IF NOT EXISTS history_entries (
	provider_id       UUID NOT NULL,
	seq               BIGINT NOT NULL,
	action_type       TEXT NOT NULL,
	performed_by_type TEXT NOT NULL,
	performed_by      TEXT NOT NULL DEFAULT '',
	payload           JSONB NOT NULL,
	notes             TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (provider_id, seq)
);

CREATE TABLE IF NOT EXISTS trust_scores (
	provider_id   UUID PRIMARY KEY,
	score         DOUBLE PRECISION NOT NULL,
	tier          TEXT NOT NULL,
	breakdown     JSONB NOT NULL,
	calculated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_uploads (
	provider_id UUID NOT NULL,
	kind        TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (provider_id, kind)
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// already applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("confia_test"),
		tcpostgres.WithUsername("confia"),
		tcpostgres.WithPassword("confia"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping database: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables removes all rows from the given tables. Use between tests to
// ensure isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", strings.Join(tables, ", ")))
	return err
}
