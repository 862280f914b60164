package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialectica/pkg/agentapi"
	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
)

func TestDispatchReturnsResultsInRequestedOrder(t *testing.T) {
	reg := MapRegistry{
		agentapi.RoleExplorer: func(_ context.Context, _ blackboard.Snapshot) (agentapi.Proposal, error) {
			return agentapi.Proposal{Role: agentapi.RoleExplorer}, nil
		},
		agentapi.RoleCritic: func(_ context.Context, _ blackboard.Snapshot) (agentapi.Proposal, error) {
			return agentapi.Proposal{Role: agentapi.RoleCritic}, nil
		},
	}
	summary := Dispatch(context.Background(), reg, []agentapi.Role{agentapi.RoleExplorer, agentapi.RoleCritic}, blackboard.Snapshot{}, time.Second)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, agentapi.RoleExplorer, summary.Results[0].Role)
	assert.Equal(t, agentapi.RoleCritic, summary.Results[1].Role)
	assert.Equal(t, 0, summary.Timeouts)
	assert.Equal(t, 0, summary.Errors)
}

func TestDispatchUnknownRoleYieldsInvalidAgent(t *testing.T) {
	reg := MapRegistry{}
	summary := Dispatch(context.Background(), reg, []agentapi.Role{agentapi.RoleExplorer}, blackboard.Snapshot{}, time.Second)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, KindInvalidAgent, summary.Results[0].Kind)
	assert.Equal(t, 1, summary.Errors)
}

func TestDispatchAgentCrashIsIsolated(t *testing.T) {
	reg := MapRegistry{
		agentapi.RoleExplorer: func(_ context.Context, _ blackboard.Snapshot) (agentapi.Proposal, error) {
			panic("boom")
		},
		agentapi.RoleCritic: func(_ context.Context, _ blackboard.Snapshot) (agentapi.Proposal, error) {
			return agentapi.Proposal{Role: agentapi.RoleCritic}, nil
		},
	}
	summary := Dispatch(context.Background(), reg, []agentapi.Role{agentapi.RoleExplorer, agentapi.RoleCritic}, blackboard.Snapshot{}, time.Second)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, KindCrashed, summary.Results[0].Kind)
	assert.Equal(t, KindOK, summary.Results[1].Kind)
	assert.Equal(t, 1, summary.Errors)
}

func TestDispatchTimeoutCancelsSlowAgent(t *testing.T) {
	reg := MapRegistry{
		agentapi.RoleExplorer: func(ctx context.Context, _ blackboard.Snapshot) (agentapi.Proposal, error) {
			select {
			case <-time.After(time.Second):
				return agentapi.Proposal{Role: agentapi.RoleExplorer}, nil
			case <-ctx.Done():
				return agentapi.Proposal{}, ctx.Err()
			}
		},
	}
	summary := Dispatch(context.Background(), reg, []agentapi.Role{agentapi.RoleExplorer}, blackboard.Snapshot{}, 10*time.Millisecond)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, KindTimeout, summary.Results[0].Kind)
	assert.Equal(t, 1, summary.Timeouts)
}

func TestDispatchAgentErrorIsRecorded(t *testing.T) {
	reg := MapRegistry{
		agentapi.RoleExplorer: func(_ context.Context, _ blackboard.Snapshot) (agentapi.Proposal, error) {
			return agentapi.Proposal{}, errors.New("model unavailable")
		},
	}
	summary := Dispatch(context.Background(), reg, []agentapi.Role{agentapi.RoleExplorer}, blackboard.Snapshot{}, time.Second)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, KindError, summary.Results[0].Kind)
	assert.Equal(t, "model unavailable", summary.Results[0].Reason)
}
