package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialectica/pkg/agentapi"
	"github.com/codeready-toolchain/dialectica/pkg/cycle"
)

func TestContributionStore_RecordContributionPersistsOutputAsJSON(t *testing.T) {
	db := newTestDB(t)
	seedBlackboardRecord(t, db, "session_000001")
	store := NewContributionStore(db)
	ctx := context.Background()

	require.NoError(t, store.RecordContribution(ctx, cycle.Contribution{
		SessionID: "session_000001", Cycle: 1, Role: agentapi.RoleExplorer, Model: "gpt",
		Output: &agentapi.ExplorerOutput{NewClaim: "revised claim"}, Accepted: true, SupportDelta: 0.1, CostUSD: 0.02,
	}))

	var role string
	var accepted bool
	var outputJSON []byte
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT role, accepted, output FROM agent_contributions WHERE session_id = $1`, "session_000001",
	).Scan(&role, &accepted, &outputJSON))
	assert.Equal(t, string(agentapi.RoleExplorer), role)
	assert.True(t, accepted)
	assert.Contains(t, string(outputJSON), "revised claim")
}
