package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pending_transactions (
		id VARCHAR(36) NOT NULL,
		username VARCHAR(255) NOT NULL,
		base_amount BIGINT NOT NULL,
		unique_suffix INT NOT NULL,
		final_amount BIGINT NOT NULL,
		qris_string TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		expires_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY idx_user_suffix (username, unique_suffix),
		KEY idx_pending_expires (expires_at)
	)`,
	`CREATE TABLE IF NOT EXISTS paid_transactions (
		id VARCHAR(36) NOT NULL,
		username VARCHAR(255) NOT NULL,
		final_amount BIGINT NOT NULL,
		paid_at BIGINT NOT NULL,
		expires_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		KEY idx_paid_expires (expires_at)
	)`,
}

// EnsureSchema creates the transaction tables if they do not exist yet.
// The unique index on (username, unique_suffix) is what makes suffix
// allocation race-safe; do not remove it.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
