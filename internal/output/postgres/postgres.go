// Package postgres persists runs and findings to PostgreSQL. A finding seen in
// several runs is stored once and its occurrence count incremented.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/telhawk-systems/telhawk-correlate/internal/output"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded schema migrations to databaseURL.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Sink writes each run and its findings in a single transaction.
type Sink struct {
	pool *pgxpool.Pool
}

// New creates a connection pool and verifies connectivity.
func New(ctx context.Context, connString string) (*Sink, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// A batch run needs few connections
	config.MaxConns = 4
	config.MinConns = 0
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Sink{pool: pool}, nil
}

// Name implements output.Sink.
func (s *Sink) Name() string { return "postgres" }

const insertRun = `
	INSERT INTO correlation_runs (id, started_at, event_count, finding_count)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO NOTHING
`

const upsertFinding = `
	INSERT INTO findings (
		id, fingerprint, rule_id, title, description, severity, technique,
		metadata, event_count, first_run_id, last_run_id
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	ON CONFLICT (id) DO UPDATE SET
		last_run_id  = EXCLUDED.last_run_id,
		metadata     = EXCLUDED.metadata,
		occurrences  = findings.occurrences + 1,
		last_seen_at = NOW()
	WHERE findings.last_run_id <> EXCLUDED.last_run_id
`

const insertEvent = `
	INSERT INTO finding_events (finding_id, position, source, event_time, asset, actor, payload)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (finding_id, position) DO NOTHING
`

// Write implements output.Sink. The run row is written even when there are no
// findings.
func (s *Sink) Write(ctx context.Context, run output.Run, findings []*telemetry.Finding) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	if _, err := tx.Exec(ctx, insertRun, run.ID, started, run.EventCount, len(findings)); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, f := range findings {
		metadata, err := json.Marshal(metadataOrEmpty(f.Metadata))
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", f.ID, err)
		}
		batch.Queue(upsertFinding,
			f.ID, f.Fingerprint(), f.RuleID, f.Title, f.Description,
			string(f.Severity), f.Technique, metadata, len(f.Events), run.ID,
		)
		for i, ev := range f.Events {
			payload, err := json.Marshal(ev.Payload())
			if err != nil {
				return fmt.Errorf("failed to marshal event payload: %w", err)
			}
			batch.Queue(insertEvent, f.ID, i, string(ev.Source()), ev.Timestamp(), ev.Asset, ev.Actor, payload)
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to store findings: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close implements output.Sink.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}

func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
