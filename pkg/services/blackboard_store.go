package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
)

// BlackboardStore implements blackboard.RecordStore against the
// blackboard_records/blackboard_snapshots/frontier_ideas/cemetery_entries
// tables, using an upsert-then-sync shape expressed as hand-written SQL
// since this domain has no generated ORM client.
type BlackboardStore struct {
	db *sql.DB
}

// NewBlackboardStore creates a new BlackboardStore.
func NewBlackboardStore(db *sql.DB) *BlackboardStore {
	if db == nil {
		panic("NewBlackboardStore: db must not be nil")
	}
	return &BlackboardStore{db: db}
}

// SaveBlackboardRecord upserts the single current-state row for a session
// and replaces its frontier_ideas/cemetery_entries rows with the current
// in-memory contents, which is cheap since both collections stay small
// across a session's lifetime.
func (s *BlackboardStore) SaveBlackboardRecord(ctx context.Context, state blackboard.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	claim := state.SeedClaim
	if state.CurrentClaim != nil {
		claim = *state.CurrentClaim
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO blackboard_records (session_id, seed_claim, current_claim, support_strength, cycle_count, status, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 'active', now())
		 ON CONFLICT (session_id) DO UPDATE SET
		   current_claim = EXCLUDED.current_claim,
		   support_strength = EXCLUDED.support_strength,
		   cycle_count = EXCLUDED.cycle_count,
		   updated_at = now()`,
		state.ID, state.SeedClaim, claim, state.SupportStrength, state.CycleCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert blackboard record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM frontier_ideas WHERE session_id = $1`, state.ID); err != nil {
		return fmt.Errorf("failed to clear frontier ideas: %w", err)
	}
	for _, idea := range state.FrontierPool {
		id, err := uuid.Parse(idea.ID)
		if err != nil {
			id = uuid.New()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO frontier_ideas (id, session_id, idea_text, sponsor_count, activated)
			 VALUES ($1, $2, $3, $4, $5)`,
			id, state.ID, idea.IdeaText, idea.SponsorCount, idea.Activated,
		)
		if err != nil {
			return fmt.Errorf("failed to insert frontier idea: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cemetery_entries WHERE session_id = $1`, state.ID); err != nil {
		return fmt.Errorf("failed to clear cemetery entries: %w", err)
	}
	for _, entry := range state.Cemetery {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO cemetery_entries (session_id, cycle, claim_text, cause_of_death)
			 VALUES ($1, $2, $3, $4)`,
			state.ID, entry.CycleKilled, entry.Claim, entry.CauseOfDeath,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cemetery entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit blackboard record: %w", err)
	}
	return nil
}

// SaveBlackboardSnapshot appends one row to the append-only snapshot trail.
func (s *BlackboardStore) SaveBlackboardSnapshot(ctx context.Context, snap blackboard.Snapshot) error {
	claim := snap.SeedClaim
	if snap.CurrentClaim != nil {
		claim = *snap.CurrentClaim
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blackboard_snapshots (session_id, cycle, current_claim, support_strength)
		 VALUES ($1, $2, $3, $4)`,
		snap.ID, snap.CycleCount, claim, snap.SupportStrength,
	)
	if err != nil {
		return fmt.Errorf("failed to insert blackboard snapshot: %w", err)
	}
	return nil
}

// marshalJSON is a small helper kept for symmetry with contribution_store's
// output encoding; blackboard state has no opaque payload today but a
// future field (e.g. TranslatorFrameworksUsed) would round-trip through it.
func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
