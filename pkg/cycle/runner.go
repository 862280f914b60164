package cycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/dialectica/pkg/agentapi"
	"github.com/codeready-toolchain/dialectica/pkg/arbiter"
	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
	"github.com/codeready-toolchain/dialectica/pkg/config"
	"github.com/codeready-toolchain/dialectica/pkg/dispatcher"
	"github.com/codeready-toolchain/dialectica/pkg/events"
	"github.com/codeready-toolchain/dialectica/pkg/novelty"
	"github.com/codeready-toolchain/dialectica/pkg/scheduler"
	"github.com/codeready-toolchain/dialectica/pkg/trajectory"
)

// Deps bundles every external collaborator the Runner needs. Fields may be
// left nil to disable their optional behavior: Records, Costs, Summarizer,
// and Notifier are all best-effort; a nil Publisher falls back to a no-op.
type Deps struct {
	Registry      dispatcher.Registry
	Trajectory    *trajectory.Store
	Embedder      trajectory.Embedder
	Records       blackboard.RecordStore
	Contributions ContributionRecorder
	Costs         CostLedger
	Summarizer    Summarizer
	Notifier      ChangeNotifier
	Publisher     publisher
	Clock         Clock
	Rng           scheduler.Source
}

// publisher is the minimal event-sink the Runner itself publishes to,
// independent of the Blackboard's own Publisher.
type publisher interface {
	Publish(topic string, kind string, payload any)
}

// Runner drives one session's cycle pipeline. It is
// single-threaded internally — exactly one goroutine executes Run — except
// that dispatch fans agents out onto their own goroutines per cycle.
type Runner struct {
	id  string
	cfg config.SessionConfig
	bb  *blackboard.Blackboard
	deps Deps

	mu          sync.Mutex
	status      Status
	cycleCount  int
	stopReason  string
	costBlocked bool
	cancel      context.CancelFunc

	controlCh chan controlMsg
	doneCh    chan struct{}
}

type controlKind int

const (
	ctrlPause controlKind = iota
	ctrlResume
	ctrlStop
)

type controlMsg struct {
	kind   controlKind
	reason string
	ack    chan error
}

// New constructs a Runner in the Idle state. The caller must call Run in
// its own goroutine to start the session's pipeline.
func New(id string, cfg config.SessionConfig, bb *blackboard.Blackboard, deps Deps) *Runner {
	if deps.Clock == nil {
		deps.Clock = RealClock
	}
	if deps.Rng == nil {
		deps.Rng = scheduler.DefaultSource
	}
	if deps.Publisher == nil {
		deps.Publisher = noopPublisher{}
	}
	return &Runner{
		id:        id,
		cfg:       cfg,
		bb:        bb,
		deps:      deps,
		status:    StatusIdle,
		controlCh: make(chan controlMsg, 4),
		doneCh:    make(chan struct{}),
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, any) {}

// Status returns the Runner's current lifecycle state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// CycleCount returns the last completed (or in-flight) cycle number.
func (r *Runner) CycleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycleCount
}

// Done returns a channel closed when Run returns.
func (r *Runner) Done() <-chan struct{} { return r.doneCh }

func (r *Runner) setStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

// Pause stops the Runner from self-scheduling further cycles; any cycle
// already in flight completes.
func (r *Runner) Pause(ctx context.Context) error {
	return r.sendControl(ctx, controlMsg{kind: ctrlPause})
}

// Resume restarts self-scheduling from a Paused Runner.
func (r *Runner) Resume(ctx context.Context) error {
	return r.sendControl(ctx, controlMsg{kind: ctrlResume})
}

// Stop asks the Runner to terminate with the given reason. It cancels the
// context passed to the in-flight cycle (if any) so a hung agent stops
// blocking the shutdown, then queues the stop for the main loop to drain.
// Stop does not itself implement a grace window — the Session Registry (C8)
// is responsible for waiting on Done() and forcing termination if this
// doesn't complete in time.
func (r *Runner) Stop(ctx context.Context, reason string) error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return r.sendControl(ctx, controlMsg{kind: ctrlStop, reason: reason})
}

func (r *Runner) sendControl(ctx context.Context, msg controlMsg) error {
	msg.ack = make(chan error, 1)
	select {
	case <-r.doneCh:
		return ErrTerminal
	default:
	}
	select {
	case r.controlCh <- msg:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.doneCh:
		return ErrTerminal
	}
	select {
	case err := <-msg.ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.doneCh:
		return nil
	}
}

// Run executes start_session and then the cycle pipeline until the session
// terminates. It must be called exactly once, from its own goroutine.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.doneCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.status != StatusIdle {
		r.mu.Unlock()
		cancel()
		return
	}
	r.status = StatusRunning
	r.cancel = cancel
	r.mu.Unlock()

	r.deps.Publisher.Publish(events.GlobalSessionsTopic, events.KindSessionStarted, events.SessionLifecyclePayload{
		SessionID: r.id, BlackboardID: r.id, Timestamp: r.now(),
	})

	paused := false
	for {
		// Drain pending control messages before (and, for pause, instead
		// of) running another cycle.
		if stop, reason := r.drainControl(&paused); stop {
			r.terminate(StatusStopped, reason)
			return
		}
		if paused {
			if r.waitWhilePaused(&paused) {
				r.terminate(StatusStopped, r.stopReasonLocked())
				return
			}
			continue
		}

		// The blackboard's cycle_count is the single source of truth;
		// the Runner's own counter is only a cache of it for callers
		// that don't hold a Blackboard reference (e.g. the registry).
		// Peek before incrementing so a cycle that would exceed
		// max_cycles is never counted as having run.
		if r.bb.GetSnapshot().CycleCount+1 > r.cfg.MaxCycles {
			r.deps.Publisher.Publish(events.SessionTopic(r.id), events.KindSessionCompleted, events.SessionLifecyclePayload{
				SessionID: r.id, Timestamp: r.now(),
			})
			r.terminate(StatusCompleted, "max_cycles reached")
			return
		}

		cycleNum := r.bb.IncrementCycle()
		r.mu.Lock()
		r.cycleCount = cycleNum
		r.mu.Unlock()

		outcome := r.runCycle(runCtx, cycleNum)
		switch outcome.kind {
		case cycleFailed:
			r.terminate(StatusFailed, outcome.reason)
			return
		case cycleSessionCompleted:
			r.deps.Publisher.Publish(events.SessionTopic(r.id), events.KindSessionCompleted, events.SessionLifecyclePayload{
				SessionID: r.id, Timestamp: r.now(),
			})
			r.terminate(StatusCompleted, outcome.reason)
			return
		}

		if r.cfg.CycleMode == config.CycleModeTimeBased {
			if r.waitOrControl(time.Duration(r.cfg.CycleDurationMS)*time.Millisecond, &paused) {
				r.terminate(StatusStopped, r.stopReasonLocked())
				return
			}
		}
	}
}

func (r *Runner) now() string { return r.deps.Clock.Now().Format(time.RFC3339Nano) }

func (r *Runner) stopReasonLocked() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopReason
}

// drainControl processes every queued control message without blocking. It
// returns stop=true if a stop was requested.
func (r *Runner) drainControl(paused *bool) (stop bool, reason string) {
	for {
		select {
		case msg := <-r.controlCh:
			switch msg.kind {
			case ctrlPause:
				*paused = true
				r.setStatus(StatusPaused)
				r.deps.Publisher.Publish(events.SessionTopic(r.id), events.KindSessionPaused, events.SessionLifecyclePayload{SessionID: r.id, Timestamp: r.now()})
				msg.ack <- nil
			case ctrlResume:
				*paused = false
				r.setStatus(StatusRunning)
				r.deps.Publisher.Publish(events.SessionTopic(r.id), events.KindSessionResumed, events.SessionLifecyclePayload{SessionID: r.id, Timestamp: r.now()})
				msg.ack <- nil
			case ctrlStop:
				r.mu.Lock()
				r.stopReason = msg.reason
				r.mu.Unlock()
				msg.ack <- nil
				return true, msg.reason
			}
		default:
			return false, ""
		}
	}
}

// waitWhilePaused blocks until resumed or stopped, returning true on stop.
// On resume it clears *paused so the caller's loop resumes scheduling.
func (r *Runner) waitWhilePaused(paused *bool) bool {
	for {
		msg := <-r.controlCh
		switch msg.kind {
		case ctrlResume:
			*paused = false
			r.setStatus(StatusRunning)
			r.deps.Publisher.Publish(events.SessionTopic(r.id), events.KindSessionResumed, events.SessionLifecyclePayload{SessionID: r.id, Timestamp: r.now()})
			msg.ack <- nil
			return false
		case ctrlStop:
			r.mu.Lock()
			r.stopReason = msg.reason
			r.mu.Unlock()
			msg.ack <- nil
			return true
		case ctrlPause:
			msg.ack <- nil // already paused, idempotent no-op from the Runner's view
		}
	}
}

// waitOrControl sleeps for d but wakes immediately on any control message:
// a stop ends the wait and returns true; a pause ends the wait and returns
// false with *paused set; a resume is acknowledged and the wait continues
// for whatever remains of d. Returns true if stopped.
func (r *Runner) waitOrControl(d time.Duration, paused *bool) bool {
	deadline := r.deps.Clock.Now().Add(d)
	for {
		remaining := deadline.Sub(r.deps.Clock.Now())
		if remaining <= 0 {
			return false
		}
		select {
		case msg := <-r.controlCh:
			switch msg.kind {
			case ctrlPause:
				*paused = true
				r.setStatus(StatusPaused)
				r.deps.Publisher.Publish(events.SessionTopic(r.id), events.KindSessionPaused, events.SessionLifecyclePayload{SessionID: r.id, Timestamp: r.now()})
				msg.ack <- nil
				return false
			case ctrlResume:
				msg.ack <- nil // already running
			case ctrlStop:
				r.mu.Lock()
				r.stopReason = msg.reason
				r.mu.Unlock()
				msg.ack <- nil
				return true
			}
		case <-r.deps.Clock.After(remaining):
			return false
		}
	}
}

func (r *Runner) terminate(status Status, reason string) {
	r.setStatus(status)
	level := slog.LevelInfo
	if status == StatusFailed {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "runner shutdown",
		"session_id", r.id, "reason", reason, "cycle_count", r.CycleCount(), "status", status)
	r.deps.Publisher.Publish(events.SessionTopic(r.id), events.KindShutdown, events.ShutdownPayload{
		SessionID: r.id, Reason: reason, Cycle: r.CycleCount(), Timestamp: r.now(),
	})
}

type cycleOutcomeKind int

const (
	cycleOK cycleOutcomeKind = iota
	cycleFailed
	cycleSessionCompleted
)

type cycleOutcome struct {
	kind   cycleOutcomeKind
	reason string
}

// runCycle executes one full pipeline: READ, RESURRECT(pre), WRITE,
// ARBITER, NOVELTY, DECAY, RESURRECT(post), PERTURB, RESET.
func (r *Runner) runCycle(ctx context.Context, cycleNum int) cycleOutcome {
	start := r.deps.Clock.Now()
	r.deps.Publisher.Publish(events.SessionTopic(r.id), events.KindCycleStarted, events.CycleStartedPayload{
		SessionID: r.id, Cycle: cycleNum, BlackboardID: r.id, Timestamp: r.now(),
	})

	// 1. READ
	snap := r.bb.GetSnapshot()

	// 2. RESURRECT (pre-cycle)
	if snap.CurrentClaim == nil {
		if err := r.bb.ResurrectFrontier(); err != nil {
			return cycleOutcome{kind: cycleSessionCompleted, reason: "no frontiers"}
		}
		snap = r.bb.GetSnapshot()
	}

	// 3. WRITE
	points := r.deps.Trajectory.Get(r.id)
	roles, err := scheduler.Schedule(cycleNum, snap, points, r.deps.Rng)
	if err != nil {
		return cycleOutcome{kind: cycleFailed, reason: err.Error()}
	}

	if len(roles) == 0 {
		if r.cfg.CycleMode == config.CycleModeEventDriven {
			return cycleOutcome{kind: cycleFailed, reason: "no_agents_spawned"}
		}
		// time_based: skip straight to ARBITER with an empty list.
	}

	var summary dispatcher.Summary
	if len(roles) > 0 && !r.costBlockedLocked() {
		timeout := r.agentTimeout()
		summary = dispatcher.Dispatch(ctx, r.deps.Registry, roles, snap, timeout)
		if summary.Timeouts+summary.Errors == len(summary.Results) && len(summary.Results) > 0 {
			slog.Warn("empty cycle: every agent timed out or errored", "session_id", r.id, "cycle", cycleNum)
		}
		r.recordContributions(ctx, cycleNum, summary)
	}

	// 4. ARBITER
	accepted := arbiter.Arbitrate(summary.Results, snap)
	r.applyAccepted(ctx, cycleNum, accepted)

	// 5. NOVELTY BONUS
	if r.cfg.NoveltyBonusEnabled {
		r.applyNoveltyBonus(ctx)
	}

	// 6. DECAY
	r.bb.Decay(r.cfg.DecayRate)

	// 7. RESURRECT (post-decay)
	postSnap := r.bb.GetSnapshot()
	if postSnap.CurrentClaim == nil {
		if err := r.bb.ResurrectFrontier(); err != nil {
			return cycleOutcome{kind: cycleSessionCompleted, reason: "no frontiers"}
		}
	}

	// 8. PERTURB
	if r.deps.Rng.Float64() <= 0.2 {
		finalSnap := r.bb.GetSnapshot()
		if len(finalSnap.EligibleFrontiers()) > 0 {
			slog.Info("perturb: eligible frontier noted for activation", "session_id", r.id, "cycle", cycleNum)
		}
	}

	// 9. RESET
	r.reset(ctx, cycleNum, start)

	finalSnap := r.bb.GetSnapshot()
	if finalSnap.SupportStrength >= blackboard.GraduationThreshold {
		return cycleOutcome{kind: cycleSessionCompleted, reason: "claim graduated"}
	}

	return cycleOutcome{kind: cycleOK}
}

func (r *Runner) agentTimeout() time.Duration {
	if r.cfg.CycleMode == config.CycleModeTimeBased {
		return time.Duration(r.cfg.CycleDurationMS) * time.Millisecond
	}
	return time.Duration(r.cfg.CycleTimeoutMS) * time.Millisecond
}

func (r *Runner) costBlockedLocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.costBlocked
}

func (r *Runner) recordContributions(ctx context.Context, cycleNum int, summary dispatcher.Summary) {
	if r.deps.Contributions == nil {
		return
	}
	for _, res := range summary.Results {
		if res.Kind != dispatcher.KindOK {
			continue
		}
		c := Contribution{
			SessionID: r.id,
			Cycle:     cycleNum,
			Role:      res.Role,
			Model:     res.Proposal.ModelUsed,
			Output:    res.Proposal.Output,
			CostUSD:   res.Proposal.CostUSD,
		}
		if err := r.deps.Contributions.RecordContribution(ctx, c); err != nil {
			slog.Warn("failed to record contribution", "session_id", r.id, "role", res.Role, "error", err)
		}
		r.recordCost(ctx, res.Role, res.Proposal.CostUSD)
	}
}

func (r *Runner) recordCost(ctx context.Context, role agentapi.Role, usd float64) {
	if r.deps.Costs == nil || usd <= 0 {
		return
	}
	if err := r.deps.Costs.RecordCost(ctx, r.id, usd); err != nil {
		slog.Warn("failed to record cost", "session_id", r.id, "error", err)
		return
	}
	r.deps.Publisher.Publish(events.SessionTopic(r.id), events.KindCostRecorded, events.CostRecordedPayload{
		SessionID: r.id, Role: string(role), CostUSD: usd, Timestamp: r.now(),
	})

	if r.cfg.CostLimitUSD == nil {
		return
	}
	total, err := r.deps.Costs.TotalCost(ctx, r.id)
	if err != nil {
		return
	}
	if total >= *r.cfg.CostLimitUSD {
		slog.Warn("cost_limit_usd reached, dispatch disabled from next cycle", "session_id", r.id, "total_usd", total)
		r.mu.Lock()
		r.costBlocked = true
		r.mu.Unlock()
	}
}

// applyAccepted mutates the blackboard in a fixed order:
// Explorer first, then Critic, then Connector, then everyone else's
// confidence_delta via update_support. Within a single role, last writer
// wins (dispatcher order, already the iteration order here).
func (r *Runner) applyAccepted(ctx context.Context, cycleNum int, accepted []arbiter.Accepted) {
	var explorer, critic, connector *arbiter.Accepted
	var others []arbiter.Accepted

	for i := range accepted {
		a := &accepted[i]
		switch a.Role {
		case agentapi.RoleExplorer:
			explorer = a
		case agentapi.RoleCritic:
			critic = a
		case agentapi.RoleConnector:
			connector = a
		default:
			others = append(others, *a)
		}
	}

	if explorer != nil {
		if out, ok := explorer.Output.(*agentapi.ExplorerOutput); ok {
			if err := r.bb.UpdateClaim(out.NewClaim); err == nil {
				r.markAccepted(ctx, cycleNum, *explorer)
			}
		}
	}
	if critic != nil {
		if out, ok := critic.Output.(*agentapi.CriticOutput); ok {
			r.bb.SetActiveObjection(out.Objection)
			r.markAccepted(ctx, cycleNum, *critic)
		}
	}
	if connector != nil {
		if out, ok := connector.Output.(*agentapi.ConnectorOutput); ok {
			r.bb.SetAnalogy(out.Analogy)
			r.markAccepted(ctx, cycleNum, *connector)
		}
	}
	for _, a := range others {
		r.bb.UpdateSupport(a.ConfidenceDelta, "agent")
		r.markAccepted(ctx, cycleNum, a)
	}
}

func (r *Runner) markAccepted(ctx context.Context, cycleNum int, a arbiter.Accepted) {
	if r.deps.Contributions == nil {
		return
	}
	_ = r.deps.Contributions.RecordContribution(ctx, Contribution{
		SessionID:    r.id,
		Cycle:        cycleNum,
		Role:         a.Role,
		Output:       a.Output,
		Accepted:     true,
		SupportDelta: a.ConfidenceDelta,
	})
}

func (r *Runner) applyNoveltyBonus(ctx context.Context) {
	snap := r.bb.GetSnapshot()
	if snap.CurrentClaim == nil || r.deps.Embedder == nil {
		return
	}
	vec, err := r.deps.Embedder.Embed(ctx, *snap.CurrentClaim)
	if err != nil {
		return
	}
	points := r.deps.Trajectory.Get(r.id)
	history := make([][]float64, len(points))
	for i, p := range points {
		history[i] = p.EmbeddingVector
	}
	n := novelty.Novelty(vec, history)
	bonus := novelty.ApplyNoveltyBonus(n, 0)
	if bonus > 0 {
		r.bb.UpdateSupport(bonus, "novelty")
	}
}

func (r *Runner) reset(ctx context.Context, cycleNum int, start time.Time) {
	if r.deps.Records != nil {
		if err := r.bb.Persist(ctx, r.deps.Records); err != nil {
			slog.Warn("failed to persist blackboard", "session_id", r.id, "error", err)
		}
	}

	snap := r.bb.GetSnapshot()
	if r.deps.Embedder != nil && snap.CurrentClaim != nil {
		vec, err := r.deps.Embedder.Embed(ctx, *snap.CurrentClaim)
		if err == nil {
			_ = r.deps.Trajectory.Append(ctx, trajectory.Point{
				SessionID:       r.id,
				CycleNumber:     cycleNum,
				EmbeddingVector: vec,
				ClaimText:       *snap.CurrentClaim,
				SupportStrength: snap.SupportStrength,
			})
		}
	}

	if r.deps.Summarizer != nil {
		go func() {
			if err := r.deps.Summarizer.Summarize(context.Background(), snap); err != nil {
				slog.Warn("summarizer failed", "session_id", r.id, "error", err)
			}
		}()
	}
	if r.deps.Notifier != nil && snap.CurrentClaim != nil {
		go func(claim string) {
			if err := r.deps.Notifier.NotifyClaimChanged(context.Background(), r.id, claim); err != nil {
				slog.Warn("change notifier failed", "session_id", r.id, "error", err)
			}
		}(*snap.CurrentClaim)
	}

	if r.deps.Records != nil {
		if err := r.bb.SnapshotToHistory(ctx, r.deps.Records); err != nil {
			slog.Warn("failed to write snapshot history", "session_id", r.id, "error", err)
		}
	}

	duration := r.deps.Clock.Now().Sub(start)
	claim := ""
	if snap.CurrentClaim != nil {
		claim = *snap.CurrentClaim
	}
	r.deps.Publisher.Publish(events.SessionTopic(r.id), events.KindCycleComplete, events.CycleCompletePayload{
		SessionID:    r.id,
		Cycle:        cycleNum,
		DurationMS:   duration.Milliseconds(),
		Support:      snap.SupportStrength,
		CurrentClaim: truncate(claim, 200),
		Timestamp:    r.now(),
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
