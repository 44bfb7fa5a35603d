package webhook

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresDeduper records event ids in the processed_events table.
// INSERT ... ON CONFLICT DO NOTHING makes the check-and-mark a single
// atomic statement; RowsAffected distinguishes first delivery from
// replay.
type PostgresDeduper struct {
	db *sql.DB
}

func NewPostgresDeduper(db *sql.DB) *PostgresDeduper {
	return &PostgresDeduper{db: db}
}

func (d *PostgresDeduper) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO processed_events (id, seen_at) VALUES ($1, now())
		ON CONFLICT (id) DO NOTHING`,
		eventID,
	)
	if err != nil {
		return false, fmt.Errorf("CheckAndMark: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("CheckAndMark: rows affected: %w", err)
	}
	return rows == 1, nil
}
