package postgres

import (
	"context"
	"fmt"
)

// Schema is applied idempotently at startup and by the seed command.
const Schema = `
CREATE TABLE IF NOT EXISTS engine_documents (
    collection  TEXT PRIMARY KEY,
    body        JSONB       NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS plans (
    id                      BIGINT PRIMARY KEY,
    name                    TEXT    NOT NULL,
    kind                    TEXT    NOT NULL CHECK (kind IN ('individual', 'corporate')),
    price                   BIGINT  NOT NULL CHECK (price > 0),
    duration_days           INTEGER NOT NULL CHECK (duration_days > 0),
    activation_window_days  INTEGER NOT NULL CHECK (activation_window_days > 0),
    max_seats               INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS companies (
    id    TEXT PRIMARY KEY,
    name  TEXT NOT NULL
);
`

func EnsureSchema(ctx context.Context, db Executor) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
