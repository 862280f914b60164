package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialectica/pkg/agentapi"
	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
	"github.com/codeready-toolchain/dialectica/pkg/config"
	"github.com/codeready-toolchain/dialectica/pkg/cycle"
	"github.com/codeready-toolchain/dialectica/pkg/events"
	"github.com/codeready-toolchain/dialectica/pkg/trajectory"
)

// fakeAgentRegistry answers every role with a valid, inert proposal so a
// Runner built from it runs its full pipeline without any external agent.
type fakeAgentRegistry struct {
	overrides map[agentapi.Role]agentapi.Func
}

func (f fakeAgentRegistry) Lookup(role agentapi.Role) (agentapi.Func, bool) {
	if fn, ok := f.overrides[role]; ok {
		return fn, true
	}
	return func(_ context.Context, _ blackboard.Snapshot) (agentapi.Proposal, error) {
		return agentapi.Proposal{Role: role, Output: &agentapi.GenericOutput{Valid: true}}, nil
	}, true
}

// newTestFactory builds a RunnerFactory whose Runners publish onto bus (so
// the registry's own event-driven bookkeeping is actually exercised) and
// never pause on novelty/decay side effects that would make cycle counts
// harder to reason about in a test.
func newTestFactory(bus *events.Bus, overrides map[agentapi.Role]agentapi.Func) RunnerFactory {
	return func(id string, cfg config.SessionConfig) (*blackboard.Blackboard, *cycle.Runner) {
		bb := blackboard.New(id, cfg.SeedClaim, cfg.CostLimitUSD, bus)
		deps := cycle.Deps{
			Registry:   fakeAgentRegistry{overrides: overrides},
			Trajectory: trajectory.NewStore(nil),
			Embedder:   trajectory.NewStubEmbedder(4),
			Publisher:  bus,
		}
		r := cycle.New(id, cfg, bb, deps)
		return bb, r
	}
}

func testInput(maxCycles int) config.Input {
	seed := "Markets are efficient"
	decay := 0.0
	novelty := false
	mc := maxCycles
	return config.Input{SeedClaim: &seed, MaxCycles: &mc, DecayRate: &decay, NoveltyBonusEnabled: &novelty}
}

func waitForStatus(t *testing.T, reg *Registry, id string, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, err := reg.Status(id); err == nil && got == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	got, _ := reg.Status(id)
	t.Fatalf("status did not reach %q within deadline, last seen %q", want, got)
}

func TestStartAssignsZeroPaddedSequentialIDs(t *testing.T) {
	bus := events.NewBus(16)
	reg := New(bus, newTestFactory(bus, nil))

	id1, err := reg.Start(context.Background(), testInput(1))
	require.NoError(t, err)
	assert.Equal(t, "session_000001", id1)

	id2, err := reg.Start(context.Background(), testInput(1))
	require.NoError(t, err)
	assert.Equal(t, "session_000002", id2)

	waitForStatus(t, reg, id1, StatusCompleted)
	waitForStatus(t, reg, id2, StatusCompleted)
}

func TestStartRejectsInvalidConfigWithoutRegisteringASession(t *testing.T) {
	bus := events.NewBus(16)
	reg := New(bus, newTestFactory(bus, nil))

	_, err := reg.Start(context.Background(), config.Input{})
	require.Error(t, err)
	assert.Empty(t, reg.List())
}

func TestRegistryTracksCompletionViaCycleCompleteEvents(t *testing.T) {
	bus := events.NewBus(16)
	reg := New(bus, newTestFactory(bus, nil))

	id, err := reg.Start(context.Background(), testInput(2))
	require.NoError(t, err)

	waitForStatus(t, reg, id, StatusCompleted)

	info, err := reg.GetInfo(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, info.Status)
	assert.Equal(t, 2, info.CycleCount)
	assert.Equal(t, id, info.BlackboardID)
}

func TestPauseBlocksAnAlreadyPausedOrTerminalSession(t *testing.T) {
	bus := events.NewBus(16)

	// A gated Explorer keeps cycle 1 in flight long enough for the test to
	// pause deterministically, mirroring the approach used for the Cycle
	// Runner's own pause/resume/stop test.
	proceed := make(chan struct{})
	gated := map[agentapi.Role]agentapi.Func{
		agentapi.RoleExplorer: func(_ context.Context, _ blackboard.Snapshot) (agentapi.Proposal, error) {
			<-proceed
			return agentapi.Proposal{Role: agentapi.RoleExplorer, Output: &agentapi.ExplorerOutput{NewClaim: "claim"}}, nil
		},
	}
	reg := New(bus, newTestFactory(bus, gated))

	id, err := reg.Start(context.Background(), testInput(1000))
	require.NoError(t, err)

	pauseDone := make(chan error, 1)
	go func() { pauseDone <- reg.Pause(context.Background(), id) }()
	proceed <- struct{}{}
	require.NoError(t, <-pauseDone)

	waitForStatus(t, reg, id, StatusPaused)

	err = reg.Pause(context.Background(), id)
	assert.ErrorIs(t, err, ErrAlreadyPaused)

	require.NoError(t, reg.Stop(context.Background(), id, "test cleanup"))
	waitForStatus(t, reg, id, StatusStopped)

	err = reg.Pause(context.Background(), id)
	assert.ErrorIs(t, err, ErrCannotPauseStopped)
}

// TestResumePromotesToCompletedWhenCachedCycleCountAtLimit exercises the
// "resume while paused but cached cycle_count already at the limit" rule
// directly against a fabricated entry: reaching this state through a
// live Runner would race against the same cycle_complete event that
// independently promotes a session to completed, which is exactly the
// redundant safety net this branch provides, so the unit under test here
// is the branch itself rather than the race that triggers it in practice.
func TestResumePromotesToCompletedWhenCachedCycleCountAtLimit(t *testing.T) {
	bus := events.NewBus(16)
	cfg := config.Resolve(testInput(1))
	bb := blackboard.New("session_000001", cfg.SeedClaim, cfg.CostLimitUSD, bus)
	runner := cycle.New("session_000001", cfg, bb, cycle.Deps{
		Registry:   fakeAgentRegistry{},
		Trajectory: trajectory.NewStore(nil),
		Embedder:   trajectory.NewStubEmbedder(4),
		Publisher:  bus,
	})

	reg := New(bus, newTestFactory(bus, nil))
	reg.entries["session_000001"] = &entry{
		id:         "session_000001",
		cfg:        cfg,
		runner:     runner,
		status:     StatusPaused,
		cycleCount: cfg.MaxCycles,
	}

	err := reg.Resume(context.Background(), "session_000001")
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	status, err := reg.Status("session_000001")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
}

func TestStopErrorsOnAnAlreadyTerminalSession(t *testing.T) {
	bus := events.NewBus(16)
	reg := New(bus, newTestFactory(bus, nil))

	id, err := reg.Start(context.Background(), testInput(1))
	require.NoError(t, err)
	waitForStatus(t, reg, id, StatusCompleted)

	err = reg.Stop(context.Background(), id, "too late")
	assert.ErrorIs(t, err, ErrAlreadyStopped)
}

func TestOperationsOnUnknownSessionReturnNotFound(t *testing.T) {
	bus := events.NewBus(16)
	reg := New(bus, newTestFactory(bus, nil))

	_, err := reg.Status("session_999999")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = reg.GetInfo("session_999999")
	assert.ErrorIs(t, err, ErrNotFound)

	err = reg.Pause(context.Background(), "session_999999")
	assert.ErrorIs(t, err, ErrNotFound)

	err = reg.Resume(context.Background(), "session_999999")
	assert.ErrorIs(t, err, ErrNotFound)

	err = reg.Stop(context.Background(), "session_999999", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListIsSortedBySessionIDAscending(t *testing.T) {
	bus := events.NewBus(16)
	reg := New(bus, newTestFactory(bus, nil))

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := reg.Start(context.Background(), testInput(1))
		require.NoError(t, err)
		ids = append(ids, id)
		waitForStatus(t, reg, id, StatusCompleted)
	}

	list := reg.List()
	require.Len(t, list, 3)
	for i, item := range list {
		assert.Equal(t, ids[i], item.SessionID)
		assert.Equal(t, StatusCompleted, item.Status)
	}
}

func TestGetActiveSessionReportsMostRecentNonTerminalSession(t *testing.T) {
	bus := events.NewBus(16)

	proceed := make(chan struct{})
	gated := map[agentapi.Role]agentapi.Func{
		agentapi.RoleExplorer: func(_ context.Context, _ blackboard.Snapshot) (agentapi.Proposal, error) {
			<-proceed
			return agentapi.Proposal{Role: agentapi.RoleExplorer, Output: &agentapi.ExplorerOutput{NewClaim: "claim"}}, nil
		},
	}
	reg := New(bus, newTestFactory(bus, gated))

	_, err := reg.GetActiveSession()
	assert.ErrorIs(t, err, ErrNotFound, "no session has ever started")

	id, err := reg.Start(context.Background(), testInput(1000))
	require.NoError(t, err)

	active, err := reg.GetActiveSession()
	require.NoError(t, err)
	assert.Equal(t, id, active)

	require.NoError(t, reg.Stop(context.Background(), id, "done"))
	close(proceed)
	waitForStatus(t, reg, id, StatusStopped)

	_, err = reg.GetActiveSession()
	assert.ErrorIs(t, err, ErrNotFound, "the only session has terminated")
}
