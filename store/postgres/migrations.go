package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migration is one forward-only schema step.
type migration struct {
	Version string
	Name    string
	Up      string
}

// Migrations lists the schema steps in the order they apply.
var Migrations = []migration{
	{
		Version: "20250101000001",
		Name:    "create_heroes",
		Up: `
CREATE TABLE IF NOT EXISTS heroes (
    id                TEXT PRIMARY KEY,
    seq               BIGSERIAL UNIQUE,
    email             TEXT NOT NULL,
    name              TEXT NOT NULL,
    device_model      TEXT NOT NULL,
    device_condition  TEXT NOT NULL,
    trade_value       BIGINT NOT NULL DEFAULT 0,
    points            BIGINT NOT NULL DEFAULT 0,
    level             TEXT NOT NULL DEFAULT 'Bronze Hero',
    badges            TEXT[] NOT NULL DEFAULT '{}',
    bottles_prevented BIGINT NOT NULL DEFAULT 0,
    co2_saved         BIGINT NOT NULL DEFAULT 0,
    rewards_earned    BIGINT NOT NULL DEFAULT 0,
    referral_count    BIGINT NOT NULL DEFAULT 0,
    is_active         BOOLEAN NOT NULL DEFAULT TRUE,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_heroes_email ON heroes (email, seq);
CREATE INDEX IF NOT EXISTS idx_heroes_points ON heroes (points DESC, seq);
`,
	},
	{
		Version: "20250101000002",
		Name:    "create_tradeins",
		Up: `
CREATE TABLE IF NOT EXISTS tradeins (
    id               TEXT PRIMARY KEY,
    seq              BIGSERIAL UNIQUE,
    hero_id          TEXT NOT NULL REFERENCES heroes (id),
    device_model     TEXT NOT NULL,
    device_condition TEXT NOT NULL,
    trade_value      BIGINT NOT NULL DEFAULT 0,
    status           TEXT NOT NULL DEFAULT 'pending',
    pickup_address   TEXT NOT NULL DEFAULT '',
    pickup_date      TIMESTAMPTZ,
    completed_at     TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tradeins_hero ON tradeins (hero_id, seq DESC);
`,
	},
	{
		Version: "20250101000003",
		Name:    "create_referrals",
		Up: `
CREATE TABLE IF NOT EXISTS referrals (
    id            TEXT PRIMARY KEY,
    seq           BIGSERIAL UNIQUE,
    referrer_id   TEXT NOT NULL REFERENCES heroes (id),
    referee_id    TEXT NOT NULL UNIQUE REFERENCES heroes (id),
    points_earned BIGINT NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_referrals_referrer ON referrals (referrer_id, seq DESC);
`,
	},
	{
		Version: "20250101000004",
		Name:    "create_program_stats",
		Up: `
CREATE TABLE IF NOT EXISTS program_stats (
    id                      SMALLINT PRIMARY KEY CHECK (id = 1),
    total_bottles_prevented BIGINT NOT NULL DEFAULT 0,
    total_co2_saved         BIGINT NOT NULL DEFAULT 0,
    total_rewards           BIGINT NOT NULL DEFAULT 0,
    active_heroes           BIGINT NOT NULL DEFAULT 0,
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	},
}

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS heroes_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// migrate applies every step not yet recorded in heroes_migrations.
func migrate(ctx context.Context, q sqlx.ExtContext) error {
	if _, err := q.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var applied []string
	if err := sqlx.SelectContext(ctx, q, &applied, `SELECT version FROM heroes_migrations`); err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, m := range Migrations {
		if done[m.Version] {
			continue
		}
		if _, err := q.ExecContext(ctx, m.Up); err != nil {
			return fmt.Errorf("%s: %w", m.Name, err)
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO heroes_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
			return fmt.Errorf("record %s: %w", m.Name, err)
		}
	}
	return nil
}
