// Package registry implements the process-wide Session Registry:
// session_id assignment, the start/pause/resume/stop/status/list verbs,
// and Runner supervision. It keeps an in-memory id-to-handle map guarded
// by a single mutex, tracking a long-running, independently-goroutined
// Cycle Runner per session that the registry must also monitor for exit
// and mirror lifecycle events from.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
	"github.com/codeready-toolchain/dialectica/pkg/config"
	"github.com/codeready-toolchain/dialectica/pkg/cycle"
	"github.com/codeready-toolchain/dialectica/pkg/events"
)

// Status is the registry-facing subset of a session's lifecycle state
//. A Runner's internal "idle" and "failed" states never reach
// a caller: idle is invisible (Start only returns once Run has been
// launched) and failed is reported as stopped, with the failure reason
// carried in the shutdown log line and event instead of a distinct status.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
)

// StopGraceWindow bounds how long Stop waits for a Runner to exit on its
// own once asked before giving up and logging a forced-termination warning
//. Go has no primitive to kill a wedged goroutine outright;
// the actual backstop against a stuck agent is the dispatcher's per-agent
// deadline, which Stop's context cancellation triggers immediately via
// ctx.Done() — this window only bounds how long a caller's stop request
// blocks, it does not itself reclaim anything.
const StopGraceWindow = 25 * time.Second

var (
	ErrNotFound             = errors.New("registry: session not found")
	ErrNotRunning           = errors.New("registry: session is not running")
	ErrNotPaused            = errors.New("registry: session is not paused")
	ErrAlreadyPaused        = errors.New("registry: session is already paused")
	ErrAlreadyCompleted     = errors.New("registry: session has already completed")
	ErrAlreadyStopped       = errors.New("registry: session is already stopped")
	ErrCannotPauseStopped   = errors.New("registry: cannot pause a stopped session")
	ErrCannotPauseCompleted = errors.New("registry: cannot pause a completed session")
	ErrCannotResumeStopped  = errors.New("registry: cannot resume a stopped session")
	ErrCannotResumeCompleted = errors.New("registry: cannot resume a completed session")
)

// RunnerFactory builds the Blackboard and Runner for a newly assigned
// session id. It is injected so the registry never hardcodes the Runner's
// collaborators (dispatch registry, trajectory store, persistence,
// publisher) — production wiring supplies one closure built from the
// shared service set; tests supply a minimal one.
type RunnerFactory func(sessionID string, cfg config.SessionConfig) (*blackboard.Blackboard, *cycle.Runner)

// Info is the response shape for get_info.
type Info struct {
	Status       Status
	BlackboardID string
	CycleCount   int
	Config       config.SessionConfig
}

// ListItem is one row of list()'s ordered output.
type ListItem struct {
	SessionID string
	Status    Status
}

type entry struct {
	mu           sync.Mutex
	id           string
	blackboardID string
	cfg          config.SessionConfig
	runner       *cycle.Runner
	status       Status
	cycleCount   int
	sub          *events.Subscription
}

func (e *entry) snapshot() (Status, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, e.cycleCount
}

// Registry is the singleton session map. The zero value is not
// usable; construct with New.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	nextID   uint64
	activeID string
	bus      *events.Bus
	factory  RunnerFactory
	grace    time.Duration
}

// New constructs an empty Registry. bus is the event fan-out every Runner
// publishes onto and the registry itself subscribes to in order to keep
// its cached status/cycle_count in sync; factory builds a session's
// Blackboard and Runner pair.
func New(bus *events.Bus, factory RunnerFactory) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		bus:     bus,
		factory: factory,
		grace:   StopGraceWindow,
	}
}

// Start validates config, assigns the next zero-padded session id, spawns
// the session's Runner, and registers it.
func (r *Registry) Start(_ context.Context, in config.Input) (string, error) {
	cfg := config.Resolve(in)
	if err := config.NewValidator(cfg).Validate(); err != nil {
		return "", err
	}

	r.mu.Lock()
	r.nextID++
	id := fmt.Sprintf("session_%06d", r.nextID)
	r.mu.Unlock()

	bb, runner := r.factory(id, cfg)

	e := &entry{
		id:           id,
		blackboardID: id,
		cfg:          cfg,
		runner:       runner,
		status:       StatusRunning,
	}
	e.sub = r.bus.Subscribe(events.SessionTopic(id))

	r.mu.Lock()
	r.entries[id] = e
	r.activeID = id
	r.mu.Unlock()

	go r.watchEvents(e)
	go runner.Run(context.Background())
	go r.monitorExit(e)

	return id, nil
}

// watchEvents mirrors a session's own event stream into the registry's
// cached status/cycle_count, closing only when monitorExit unsubscribes it
// after the Runner has exited.
func (r *Registry) watchEvents(e *entry) {
	for evt := range e.sub.C() {
		switch evt.Kind {
		case events.KindCycleComplete:
			payload, ok := evt.Data.(events.CycleCompletePayload)
			if !ok {
				continue
			}
			e.mu.Lock()
			if payload.Cycle > e.cycleCount {
				e.cycleCount = payload.Cycle
			}
			if e.cycleCount >= e.cfg.MaxCycles {
				e.status = StatusCompleted
			}
			e.mu.Unlock()
		case events.KindSessionPaused:
			e.mu.Lock()
			if e.status == StatusRunning {
				e.status = StatusPaused
			}
			e.mu.Unlock()
		case events.KindSessionResumed:
			e.mu.Lock()
			if e.status == StatusPaused {
				e.status = StatusRunning
			}
			e.mu.Unlock()
		case events.KindSessionCompleted:
			e.mu.Lock()
			e.status = StatusCompleted
			e.mu.Unlock()
		}
	}
}

// monitorExit waits for a session's Runner to terminate and reconciles the
// cached status: a Runner that exits without having already been promoted
// to completed is reported as stopped, whatever its internal reason.
func (r *Registry) monitorExit(e *entry) {
	<-e.runner.Done()

	e.mu.Lock()
	if e.status != StatusCompleted {
		e.status = StatusStopped
	}
	e.mu.Unlock()

	slog.Info("session runner exited",
		"session_id", e.id, "final_runner_status", e.runner.Status(), "cycle_count", e.runner.CycleCount())
	e.sub.Close()
}

func (r *Registry) get(id string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Pause transitions a running session to paused.
func (r *Registry) Pause(ctx context.Context, id string) error {
	e, err := r.get(id)
	if err != nil {
		return err
	}
	status, _ := e.snapshot()
	switch status {
	case StatusRunning:
		return e.runner.Pause(ctx)
	case StatusPaused:
		return ErrAlreadyPaused
	case StatusStopped:
		return ErrCannotPauseStopped
	case StatusCompleted:
		return ErrCannotPauseCompleted
	default:
		return ErrNotRunning
	}
}

// Resume transitions a paused session back to running, or to completed if
// the cached cycle_count has already reached max_cycles while paused.
func (r *Registry) Resume(ctx context.Context, id string) error {
	e, err := r.get(id)
	if err != nil {
		return err
	}
	status, cycleCount := e.snapshot()
	switch status {
	case StatusPaused:
		if cycleCount >= e.cfg.MaxCycles {
			e.mu.Lock()
			e.status = StatusCompleted
			e.mu.Unlock()
			return ErrAlreadyCompleted
		}
		return e.runner.Resume(ctx)
	case StatusStopped:
		return ErrCannotResumeStopped
	case StatusCompleted:
		return ErrCannotResumeCompleted
	default:
		return ErrNotPaused
	}
}

// Stop asks a session's Runner to terminate, waiting up to StopGraceWindow
// for it to exit before logging a forced-termination warning and
// returning anyway. Stopping an already-terminal session is an
// error.
func (r *Registry) Stop(ctx context.Context, id, reason string) error {
	e, err := r.get(id)
	if err != nil {
		return err
	}
	status, _ := e.snapshot()
	if status == StatusStopped || status == StatusCompleted {
		return ErrAlreadyStopped
	}

	if err := e.runner.Stop(ctx, reason); err != nil && !errors.Is(err, cycle.ErrTerminal) {
		return err
	}

	select {
	case <-e.runner.Done():
	case <-time.After(r.grace):
		slog.Warn("stop grace window elapsed, forcing termination",
			"session_id", id, "grace", r.grace)
	}
	return nil
}

// Status returns a session's cached lifecycle status.
func (r *Registry) Status(id string) (Status, error) {
	e, err := r.get(id)
	if err != nil {
		return "", err
	}
	status, _ := e.snapshot()
	return status, nil
}

// List returns every known session, ordered by session_id ascending.
// Zero-padded decimal ids sort lexicographically in assignment order, so a
// plain string sort suffices.
func (r *Registry) List() []ListItem {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	entries := make(map[string]*entry, len(r.entries))
	for id, e := range r.entries {
		ids = append(ids, id)
		entries[id] = e
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	out := make([]ListItem, 0, len(ids))
	for _, id := range ids {
		status, _ := entries[id].snapshot()
		out = append(out, ListItem{SessionID: id, Status: status})
	}
	return out
}

// GetInfo returns a session's status, blackboard id, cached cycle count,
// and resolved configuration.
func (r *Registry) GetInfo(id string) (Info, error) {
	e, err := r.get(id)
	if err != nil {
		return Info{}, err
	}
	status, cycleCount := e.snapshot()
	return Info{
		Status:       status,
		BlackboardID: e.blackboardID,
		CycleCount:   cycleCount,
		Config:       e.cfg,
	}, nil
}

// GetActiveSession returns the id of the most recently started session
// that has not yet terminated, for single-pane-of-glass UIs that want "the
// session currently being watched" without the caller tracking an id
// itself. Once that session terminates, GetActiveSession reports
// not_found until a new one starts.
func (r *Registry) GetActiveSession() (string, error) {
	r.mu.RLock()
	id := r.activeID
	r.mu.RUnlock()
	if id == "" {
		return "", ErrNotFound
	}
	e, err := r.get(id)
	if err != nil {
		return "", ErrNotFound
	}
	status, _ := e.snapshot()
	if status == StatusCompleted || status == StatusStopped {
		return "", ErrNotFound
	}
	return id, nil
}
