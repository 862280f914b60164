package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These indexes enable efficient full-text search over claim text: the
// live claim on each blackboard and the cycle-end summaries recorded
// alongside it.
func CreateGINIndexes(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_blackboard_records_current_claim_gin
		ON blackboard_records USING gin(to_tsvector('english', current_claim))`)
	if err != nil {
		return fmt.Errorf("failed to create current_claim GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_claim_summaries_summary_text_gin
		ON claim_summaries USING gin(to_tsvector('english', summary_text))`)
	if err != nil {
		return fmt.Errorf("failed to create summary_text GIN index: %w", err)
	}

	return nil
}
