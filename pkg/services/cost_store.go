package services

import (
	"context"
	"database/sql"
	"fmt"
)

// CostStore implements cycle.CostLedger
// against the llm_costs table.
type CostStore struct {
	db *sql.DB
}

// NewCostStore creates a new CostStore.
func NewCostStore(db *sql.DB) *CostStore {
	if db == nil {
		panic("NewCostStore: db must not be nil")
	}
	return &CostStore{db: db}
}

// RecordCost logs one dispatch's metered spend.
func (s *CostStore) RecordCost(ctx context.Context, sessionID string, usd float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_costs (session_id, role, cost_usd) VALUES ($1, '', $2)`,
		sessionID, usd,
	)
	if err != nil {
		return fmt.Errorf("failed to record cost: %w", err)
	}
	return nil
}

// TotalCost sums every recorded cost row for a session.
func (s *CostStore) TotalCost(ctx context.Context, sessionID string) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(cost_usd) FROM llm_costs WHERE session_id = $1`, sessionID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum cost: %w", err)
	}
	return total.Float64, nil
}
