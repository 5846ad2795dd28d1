package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitSchema creates the tables the gateway needs. The statements are
// idempotent so every server start runs them.
func InitSchema(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username      TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			message       TEXT NOT NULL,
			type          TEXT NOT NULL,
			timestamp     TIMESTAMPTZ NOT NULL,
			reply_to      TEXT,
			read_by       JSONB NOT NULL DEFAULT '[]',
			file_size     BIGINT NOT NULL DEFAULT 0,
			original_name TEXT NOT NULL DEFAULT '',
			reactions     JSONB NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages (timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_type ON messages (type)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
