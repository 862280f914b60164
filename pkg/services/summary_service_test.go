package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
)

func TestSummaryService_SummarizeInsertsRow(t *testing.T) {
	db := newTestDB(t)
	seedBlackboardRecord(t, db, "session_000001")
	svc := NewSummaryService(db)
	ctx := context.Background()

	claim := "revised claim"
	require.NoError(t, svc.Summarize(ctx, blackboard.Snapshot{
		ID: "session_000001", SeedClaim: "seed", CurrentClaim: &claim, SupportStrength: 0.6, CycleCount: 3,
	}))

	var text string
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT summary_text FROM claim_summaries WHERE session_id = $1`, "session_000001").Scan(&text))
	assert.Contains(t, text, "revised claim")
	assert.Contains(t, text, "cycle 3")
}
