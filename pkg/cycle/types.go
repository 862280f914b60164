// Package cycle implements the per-session Cycle Runner: a
// state machine that drives one session's blackboard through repeated
// READ → RESURRECT → WRITE → ARBITER → NOVELTY → DECAY → RESURRECT →
// PERTURB → RESET pipelines until the session completes, is stopped, or
// fails.
package cycle

import (
	"context"
	"errors"
	"time"

	"github.com/codeready-toolchain/dialectica/pkg/agentapi"
	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
)

// Status is one of the Runner's lifecycle states.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether s is an absorbing state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusStopped || s == StatusFailed
}

var (
	// ErrAlreadyRunning names the already_running condition. No Runner
	// method returns it: Run on a non-Idle Runner returns immediately
	// without error.
	ErrAlreadyRunning = errors.New("cycle: session is already running")
	// ErrNotRunning names the not_running condition. Runner.Pause does not
	// return it: a Pause sent to an already-paused Runner is acknowledged
	// as a no-op; the Session Registry performs the state check.
	ErrNotRunning = errors.New("cycle: session is not running")
	// ErrNotPaused names the not_paused condition. Runner.Resume does not
	// return it: a Resume sent to a running Runner is acknowledged as a
	// no-op; the Session Registry performs the state check.
	ErrNotPaused = errors.New("cycle: session is not paused")
	// ErrTerminal is returned by Pause/Resume/Stop against a terminal Runner.
	ErrTerminal = errors.New("cycle: session has already terminated")
)

// ContributionRecorder persists one agent contribution row // agent_contributions table.
type ContributionRecorder interface {
	RecordContribution(ctx context.Context, c Contribution) error
}

// Contribution is one role's dispatch-round outcome, persisted regardless
// of whether the Arbiter later accepted it.
type Contribution struct {
	SessionID    string
	Cycle        int
	Role         agentapi.Role
	Model        string
	Output       any
	Accepted     bool
	SupportDelta float64
	CostUSD      float64
}

// CostLedger tracks cumulative spend per session for the cost_limit_usd
// guard.
type CostLedger interface {
	RecordCost(ctx context.Context, sessionID string, usd float64) error
	TotalCost(ctx context.Context, sessionID string) (float64, error)
}

// Summarizer and ChangeNotifier are the best-effort background
// collaborators fired during RESET; their failure must
// never affect the cycle's result.
type Summarizer interface {
	Summarize(ctx context.Context, snap blackboard.Snapshot) error
}

type ChangeNotifier interface {
	NotifyClaimChanged(ctx context.Context, sessionID, transition string) error
}

// Clock abstracts time.Now/time.After so tests can run a time_based session
// without real sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                  { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the production Clock.
var RealClock Clock = realClock{}
