package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemWarningsService_AddAndGet(t *testing.T) {
	svc := NewSystemWarningsService()

	id := svc.AddWarning(WarningCategoryCostLimitNear, "Cost limit near", "spent 0.9 of 1.0 usd", "session_000001")
	assert.NotEmpty(t, id)

	warnings := svc.GetWarnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, WarningCategoryCostLimitNear, warnings[0].Category)
	assert.Equal(t, "Cost limit near", warnings[0].Message)
	assert.Equal(t, "spent 0.9 of 1.0 usd", warnings[0].Details)
	assert.Equal(t, "session_000001", warnings[0].SessionID)
	assert.False(t, warnings[0].CreatedAt.IsZero())
}

func TestSystemWarningsService_ClearBySessionID(t *testing.T) {
	svc := NewSystemWarningsService()

	svc.AddWarning(WarningCategoryFrontierExhausted, "No frontier to resurrect from", "", "session_000001")
	svc.AddWarning(WarningCategoryFrontierExhausted, "No frontier to resurrect from", "", "session_000002")

	assert.Len(t, svc.GetWarnings(), 2)

	cleared := svc.ClearBySessionID(WarningCategoryFrontierExhausted, "session_000001")
	assert.True(t, cleared)
	assert.Len(t, svc.GetWarnings(), 1)
	assert.Equal(t, "session_000002", svc.GetWarnings()[0].SessionID)

	cleared = svc.ClearBySessionID(WarningCategoryFrontierExhausted, "nonexistent")
	assert.False(t, cleared)
}

func TestSystemWarningsService_ReplacesDuplicate(t *testing.T) {
	svc := NewSystemWarningsService()

	svc.AddWarning(WarningCategoryDispatchTimeout, "First timeout", "err1", "session_000001")
	svc.AddWarning(WarningCategoryDispatchTimeout, "Second timeout", "err2", "session_000001")

	warnings := svc.GetWarnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Second timeout", warnings[0].Message)
	assert.Equal(t, "err2", warnings[0].Details)
}

func TestSystemWarningsService_Empty(t *testing.T) {
	svc := NewSystemWarningsService()
	assert.Empty(t, svc.GetWarnings())
}

func TestSystemWarningsService_ThreadSafety(t *testing.T) {
	svc := NewSystemWarningsService()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.AddWarning("test", "msg", "", "")
		}()
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.GetWarnings()
		}()
	}

	wg.Wait()
	assert.NotNil(t, svc.GetWarnings())
}
