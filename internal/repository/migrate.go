package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Persisted state: two logical tables (loads, brokers) plus the two CRM
// child tables, all partitioned by account_id. The unique constraints on
// (account_id, load_id) and (account_id, email) are what make concurrent
// upserts safe without application-level locking.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS loads (
		id           UUID PRIMARY KEY,
		account_id   TEXT        NOT NULL,
		load_id      TEXT        NOT NULL,
		broker_name  TEXT        NOT NULL DEFAULT '',
		broker_email TEXT        NOT NULL DEFAULT '',
		rate_total   TEXT        NOT NULL DEFAULT '',
		miles        TEXT        NOT NULL DEFAULT '',
		doc          JSONB       NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (account_id, load_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loads_account ON loads (account_id)`,
	`CREATE INDEX IF NOT EXISTS idx_loads_broker_email ON loads (account_id, broker_email)`,

	`CREATE TABLE IF NOT EXISTS brokers (
		id              UUID PRIMARY KEY,
		account_id      TEXT        NOT NULL,
		name            TEXT        NOT NULL DEFAULT '',
		email           TEXT        NOT NULL,
		phone           TEXT        NOT NULL DEFAULT '',
		first_load_date TEXT,
		last_load_date  TEXT,
		total_loads     INTEGER     NOT NULL DEFAULT 0,
		total_revenue   TEXT        NOT NULL DEFAULT '0',
		avg_rate        TEXT        NOT NULL DEFAULT '0',
		avg_rpm         TEXT        NOT NULL DEFAULT '',
		status          TEXT        NOT NULL DEFAULT 'prospect',
		notes           TEXT        NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (account_id, email)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_brokers_account ON brokers (account_id)`,

	`CREATE TABLE IF NOT EXISTS broker_interactions (
		id          UUID PRIMARY KEY,
		broker_id   UUID        NOT NULL REFERENCES brokers (id) ON DELETE CASCADE,
		account_id  TEXT        NOT NULL,
		kind        TEXT        NOT NULL,
		summary     TEXT        NOT NULL DEFAULT '',
		occurred_at TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_broker ON broker_interactions (broker_id)`,

	`CREATE TABLE IF NOT EXISTS broker_tasks (
		id         UUID PRIMARY KEY,
		broker_id  UUID        NOT NULL REFERENCES brokers (id) ON DELETE CASCADE,
		account_id TEXT        NOT NULL,
		title      TEXT        NOT NULL,
		priority   TEXT        NOT NULL DEFAULT 'medium',
		due_date   TEXT,
		status     TEXT        NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_account ON broker_tasks (account_id)`,
}

// Migrate creates the schema when missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			logger.Error("migration failed", "step", i, "error", err)
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	logger.Info("schema migrations applied", "steps", len(migrations))
	return nil
}
