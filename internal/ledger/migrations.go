package ledger

import (
	"database/sql"
	"fmt"
)

// Amounts are stored as text so the exact decimal string a client sent
// survives the round trip unchanged.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		id                    TEXT PRIMARY KEY,
		kind                  TEXT NOT NULL,
		amount                TEXT NOT NULL,
		currency              TEXT NOT NULL,
		status                TEXT NOT NULL,
		dest_type             TEXT,
		dest_iban             TEXT,
		dest_beneficiary_name TEXT,
		callback_url          TEXT,
		created_at            TIMESTAMPTZ NOT NULL,
		updated_at            TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refunds (
		id         TEXT PRIMARY KEY,
		payin_id   TEXT NOT NULL REFERENCES payments (id),
		amount     TEXT NOT NULL,
		status     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refunds_payin_id ON refunds (payin_id)`,
	`CREATE TABLE IF NOT EXISTS processed_events (
		id      TEXT PRIMARY KEY,
		seen_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the gateway schema. Statements are idempotent so
// startup can run them unconditionally.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("Migrate: statement %d: %w", i, err)
		}
	}
	return nil
}
