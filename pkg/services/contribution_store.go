package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codeready-toolchain/dialectica/pkg/cycle"
)

// ContributionStore implements cycle.ContributionRecorder against raw SQL. Each role's proposal payload is
// stored as JSONB via Postgres's native JSON support rather than a
// generic blob column, so operators can query contributions by payload
// shape without an application-level decode pass.
type ContributionStore struct {
	db *sql.DB
}

// NewContributionStore creates a new ContributionStore.
func NewContributionStore(db *sql.DB) *ContributionStore {
	if db == nil {
		panic("NewContributionStore: db must not be nil")
	}
	return &ContributionStore{db: db}
}

// RecordContribution inserts one row per dispatched proposal, accepted or
// not, so the Arbiter's decisions remain fully auditable.
func (s *ContributionStore) RecordContribution(ctx context.Context, c cycle.Contribution) error {
	outputJSON, err := marshalJSON(c.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal contribution output: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agent_contributions (session_id, cycle, role, model, prompt, output, accepted, support_delta, cost_usd)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.SessionID, c.Cycle, string(c.Role), c.Model, "", outputJSON, c.Accepted, c.SupportDelta, c.CostUSD,
	)
	if err != nil {
		return fmt.Errorf("failed to insert agent contribution: %w", err)
	}
	return nil
}
