package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE turn_source AS ENUM ('typed', 'voice'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS conversation_turns (
		id UUID PRIMARY KEY,
		session_id UUID NOT NULL,
		source turn_source NOT NULL,
		script TEXT NOT NULL,
		transcript TEXT NOT NULL,
		reply TEXT NOT NULL,
		inbound_fallback BOOLEAN NOT NULL DEFAULT FALSE,
		outbound_failed BOOLEAN NOT NULL DEFAULT FALSE,
		completion_failed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_turns_session ON conversation_turns (session_id, created_at)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for i, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}
	return nil
}
