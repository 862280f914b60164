package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostStore_RecordAndTotalCost(t *testing.T) {
	db := newTestDB(t)
	seedBlackboardRecord(t, db, "session_000001")
	store := NewCostStore(db)
	ctx := context.Background()

	require.NoError(t, store.RecordCost(ctx, "session_000001", 0.05))
	require.NoError(t, store.RecordCost(ctx, "session_000001", 0.03))

	total, err := store.TotalCost(ctx, "session_000001")
	require.NoError(t, err)
	assert.InDelta(t, 0.08, total, 1e-9)
}

func TestCostStore_TotalCostIsZeroForUnknownSession(t *testing.T) {
	db := newTestDB(t)
	store := NewCostStore(db)

	total, err := store.TotalCost(context.Background(), "session_nonexistent")
	require.NoError(t, err)
	assert.Zero(t, total)
}
