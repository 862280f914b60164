package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
)

// SummaryService implements cycle.Summarizer: a best-effort background collaborator that records a
// short natural-language recap of the claim's state at the end of a
// cycle, so operators scanning many sessions don't need to replay the
// full contribution log.
type SummaryService struct {
	db *sql.DB
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(db *sql.DB) *SummaryService {
	if db == nil {
		panic("NewSummaryService: db must not be nil")
	}
	return &SummaryService{db: db}
}

// Summarize writes one claim_summaries row for the cycle snap was taken at.
func (s *SummaryService) Summarize(ctx context.Context, snap blackboard.Snapshot) error {
	claim := snap.SeedClaim
	if snap.CurrentClaim != nil {
		claim = *snap.CurrentClaim
	}
	summary := fmt.Sprintf(
		"cycle %d: support_strength=%.2f, claim=%q, frontiers=%d, deaths=%d",
		snap.CycleCount, snap.SupportStrength, truncateText(claim, 160), len(snap.FrontierPool), len(snap.Cemetery),
	)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO claim_summaries (session_id, cycle, summary_text) VALUES ($1, $2, $3)`,
		snap.ID, snap.CycleCount, summary,
	)
	if err != nil {
		return fmt.Errorf("failed to insert claim summary: %w", err)
	}
	return nil
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
