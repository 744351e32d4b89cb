// Package postgres provides the optional persistent run ledger. The core
// computation path never depends on it; a nil ledger is always a valid
// configuration.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"leakcheck/domain/core"
	"leakcheck/domain/eval"
	"leakcheck/ports"
)

// RunRepository implements LedgerPort for PostgreSQL
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.LedgerPort {
	return &RunRepository{db: db}
}

// Connect opens a database handle and verifies connectivity.
func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the run ledger table when absent.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS leakage_audit_runs (
			run_id      TEXT PRIMARY KEY,
			seed        BIGINT NOT NULL,
			config_hash TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			manifest    JSONB NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}
	return nil
}

// StoreRun persists a manifest, replacing any prior entry for the same run.
func (r *RunRepository) StoreRun(ctx context.Context, manifest eval.RunManifest) error {
	if err := manifest.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("manifest serialization failed: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO leakage_audit_runs (run_id, seed, config_hash, fingerprint, manifest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			seed = EXCLUDED.seed,
			config_hash = EXCLUDED.config_hash,
			fingerprint = EXCLUDED.fingerprint,
			manifest = EXCLUDED.manifest`,
		manifest.RunID.String(), manifest.Seed, manifest.ConfigHash.String(),
		manifest.Fingerprint.String(), payload, manifest.CreatedAt.Time())
	return err
}

// GetRun retrieves a stored manifest by run ID.
func (r *RunRepository) GetRun(ctx context.Context, runID core.RunID) (*eval.RunManifest, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT manifest FROM leakage_audit_runs WHERE run_id = $1`, runID.String()).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, err
	}

	var manifest eval.RunManifest
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return nil, fmt.Errorf("manifest deserialization failed: %w", err)
	}
	return &manifest, nil
}

// ListRuns returns the most recent manifests, newest first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]eval.RunManifest, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT manifest FROM leakage_audit_runs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var manifests []eval.RunManifest
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var manifest eval.RunManifest
		if err := json.Unmarshal(payload, &manifest); err != nil {
			return nil, fmt.Errorf("manifest deserialization failed: %w", err)
		}
		manifests = append(manifests, manifest)
	}
	return manifests, rows.Err()
}
