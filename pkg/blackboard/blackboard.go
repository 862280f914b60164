package blackboard

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// topicFor derives the one event topic name used for a session, from its
// id.
func topicFor(id string) string {
	return "blackboard:" + id
}

// Blackboard is the single-writer actor owning one session's authoritative
// state. All mutating methods take the write lock; GetSnapshot
// takes the read lock just long enough to deep-copy the state out, so
// concurrent agents reading a Snapshot never block the writer for long and
// never observe a torn state.
type Blackboard struct {
	mu        sync.RWMutex
	state     State
	publisher Publisher
}

// New creates a Blackboard seeded with seedClaim at support 0.5, as required
// at session start.
func New(id, seedClaim string, costLimitUSD *float64, publisher Publisher) *Blackboard {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	now := time.Now()
	claim := seedClaim
	return &Blackboard{
		publisher: publisher,
		state: State{
			ID:                       id,
			SeedClaim:                seedClaim,
			CurrentClaim:             &claim,
			SupportStrength:          0.5,
			FrontierPool:             make(map[string]*FrontierIdea),
			TranslatorFrameworksUsed: make(map[string]struct{}),
			CostLimitUSD:             cloneFloatPtr(costLimitUSD),
			CreatedAt:                now,
			UpdatedAt:                now,
		},
	}
}

// GetSnapshot returns a consistent, deep, read-only view of the blackboard.
func (b *Blackboard) GetSnapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

func (b *Blackboard) snapshotLocked() Snapshot {
	s := b.state
	frontier := make(map[string]FrontierIdea, len(s.FrontierPool))
	for id, f := range s.FrontierPool {
		frontier[id] = *f
	}
	cemetery := make([]CemeteryEntry, len(s.Cemetery))
	copy(cemetery, s.Cemetery)
	graduated := make([]GraduatedClaim, len(s.GraduatedClaims))
	copy(graduated, s.GraduatedClaims)
	frameworks := make(map[string]struct{}, len(s.TranslatorFrameworksUsed))
	for k := range s.TranslatorFrameworksUsed {
		frameworks[k] = struct{}{}
	}
	return Snapshot{
		ID:                       s.ID,
		SeedClaim:                s.SeedClaim,
		CurrentClaim:             clonePtr(s.CurrentClaim),
		SupportStrength:          s.SupportStrength,
		ActiveObjection:          clonePtr(s.ActiveObjection),
		AnalogyOfRecord:          clonePtr(s.AnalogyOfRecord),
		CycleCount:               s.CycleCount,
		FrontierPool:             frontier,
		Cemetery:                 cemetery,
		GraduatedClaims:          graduated,
		TranslatorFrameworksUsed: frameworks,
		CostLimitUSD:             cloneFloatPtr(s.CostLimitUSD),
		TakenAt:                  time.Now(),
	}
}

// IncrementCycle bumps cycle_count by exactly one and publishes
// cycle_count_changed.
func (b *Blackboard) IncrementCycle() int {
	b.mu.Lock()
	b.state.CycleCount++
	b.state.UpdatedAt = time.Now()
	n := b.state.CycleCount
	b.mu.Unlock()
	b.publisher.Publish(topicFor(b.id()), "cycle_count_changed", map[string]any{
		"session_id": b.id(), "cycle_count": n,
	})
	return n
}

func (b *Blackboard) id() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.ID
}

// UpdateClaim replaces current_claim. the caller (the Cycle
// Runner) must have already handled death via UpdateSupport before calling
// this with a non-null old value headed toward death; UpdateClaim itself
// does not inspect the old value. Passing an empty string is rejected.
func (b *Blackboard) UpdateClaim(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyClaim
	}
	b.mu.Lock()
	b.state.CurrentClaim = &text
	b.state.UpdatedAt = time.Now()
	b.mu.Unlock()
	b.publisher.Publish(topicFor(b.id()), "claim_updated", map[string]any{
		"session_id": b.id(), "claim": truncate(text, 200),
	})
	return nil
}

// SupportUpdate is the outcome of UpdateSupport: whether it killed or
// graduated the claim, and the resulting support value.
type SupportUpdate struct {
	NewSupport float64
	Died       bool
	Graduated  bool
}

// UpdateSupport adds delta to support_strength, clamps to [0,1], and applies
// the death/graduation side effects:
//   - At or below DeathThreshold with a non-null current claim: moves the
//     claim to the cemetery with the given cause, nulls current_claim.
//   - At or above GraduationThreshold: appends to graduated_claims and
//     signals session completion via the returned SupportUpdate (the caller
//     — the Cycle Runner / Registry — performs the actual status
//     transition; the Blackboard also publishes claim_graduated for any
//     other listener).
func (b *Blackboard) UpdateSupport(delta float64, causeOfDeath string) SupportUpdate {
	b.mu.Lock()
	b.state.SupportStrength = clamp01(b.state.SupportStrength + delta)
	b.state.UpdatedAt = time.Now()

	result := SupportUpdate{NewSupport: b.state.SupportStrength}

	if b.state.SupportStrength <= DeathThreshold && b.state.CurrentClaim != nil {
		dead := *b.state.CurrentClaim
		b.state.Cemetery = append(b.state.Cemetery, CemeteryEntry{
			Claim:        dead,
			CauseOfDeath: causeOfDeath,
			FinalSupport: b.state.SupportStrength,
			CycleKilled:  b.state.CycleCount,
		})
		b.state.CurrentClaim = nil
		result.Died = true
	} else if b.state.SupportStrength >= GraduationThreshold && b.state.CurrentClaim != nil {
		b.state.GraduatedClaims = append(b.state.GraduatedClaims, GraduatedClaim{
			Claim:          *b.state.CurrentClaim,
			CycleGraduated: b.state.CycleCount,
			FinalSupport:   b.state.SupportStrength,
		})
		result.Graduated = true
	}
	id := b.state.ID
	cycle := b.state.CycleCount
	b.mu.Unlock()

	b.publisher.Publish(topicFor(id), "support_updated", map[string]any{
		"session_id": id, "support": result.NewSupport,
	})
	if result.Died {
		b.publisher.Publish(topicFor(id), "claim_died", map[string]any{
			"session_id": id, "cause": causeOfDeath, "cycle": cycle,
		})
	}
	if result.Graduated {
		b.publisher.Publish(topicFor(id), "claim_graduated", map[string]any{
			"session_id": id, "cycle": cycle, "support": result.NewSupport,
		})
	}
	return result
}

// Decay subtracts rate from support_strength and floors the result at 0.2,
// publishing support_updated but never touching the cemetery: decay alone
// never kills a claim, it only erodes support toward the floor. If support
// was already below 0.2 before this call, the floor is not reapplied —
// decay keeps subtracting rather than being pushed back up to 0.2.
func (b *Blackboard) Decay(rate float64) SupportUpdate {
	b.mu.Lock()
	current := b.state.SupportStrength
	next := current - rate
	if current >= DecayFloor && next < DecayFloor {
		next = DecayFloor
	}
	if next < 0 {
		next = 0
	}
	b.state.SupportStrength = next
	b.state.UpdatedAt = time.Now()
	id := b.state.ID
	b.mu.Unlock()

	b.publisher.Publish(topicFor(id), "support_updated", map[string]any{
		"session_id": id, "support": next,
	})
	return SupportUpdate{NewSupport: next}
}

// SetActiveObjection records the Critic's surviving objection, if any.
func (b *Blackboard) SetActiveObjection(text string) {
	text = strings.TrimSpace(text)
	b.mu.Lock()
	if text == "" {
		b.state.ActiveObjection = nil
	} else {
		b.state.ActiveObjection = &text
	}
	b.state.UpdatedAt = time.Now()
	b.mu.Unlock()
}

// SetAnalogy records the Connector's surviving analogy, if any.
func (b *Blackboard) SetAnalogy(text string) {
	text = strings.TrimSpace(text)
	b.mu.Lock()
	if text == "" {
		b.state.AnalogyOfRecord = nil
	} else {
		b.state.AnalogyOfRecord = &text
	}
	b.state.UpdatedAt = time.Now()
	b.mu.Unlock()
}

// MarkTranslatorFramework records a Translator output as consumed, for the
// Translator agent's own deduplication.
func (b *Blackboard) MarkTranslatorFramework(framework string) {
	b.mu.Lock()
	b.state.TranslatorFrameworksUsed[framework] = struct{}{}
	b.mu.Unlock()
}

// AddFrontier inserts a new frontier idea. No-op (not an error) if the id
// already exists.
func (b *Blackboard) AddFrontier(id, ideaText string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.state.FrontierPool[id]; exists {
		return
	}
	b.state.FrontierPool[id] = &FrontierIdea{ID: id, IdeaText: ideaText}
	b.state.UpdatedAt = time.Now()
}

// Sponsor increments a frontier idea's sponsor_count.
func (b *Blackboard) Sponsor(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.state.FrontierPool[id]
	if !ok {
		return ErrFrontierNotFound
	}
	f.SponsorCount++
	b.state.UpdatedAt = time.Now()
	return nil
}

// EligibleFrontiers returns frontier ideas with sponsor_count >= 2 that are
// not yet activated.
func (b *Blackboard) EligibleFrontiers() []FrontierIdea {
	return b.GetSnapshot().EligibleFrontiers()
}

// SelectWeightedFrontier performs a weighted-random pick among eligible
// frontiers, weight = sponsor_count. Returns ErrNoFrontiersAvailable if
// none are eligible.
func (b *Blackboard) SelectWeightedFrontier() (FrontierIdea, error) {
	eligible := b.EligibleFrontiers()
	if len(eligible) == 0 {
		return FrontierIdea{}, ErrNoFrontiersAvailable
	}
	total := 0
	for _, f := range eligible {
		total += f.SponsorCount
	}
	if total <= 0 {
		return eligible[0], nil
	}
	pick := rand.IntN(total)
	for _, f := range eligible {
		pick -= f.SponsorCount
		if pick < 0 {
			return f, nil
		}
	}
	return eligible[len(eligible)-1], nil
}

// ActivateFrontier sets activated=true. Once activated,
// SelectWeightedFrontier never returns it again because
// EligibleFrontiers filters on !activated.
func (b *Blackboard) ActivateFrontier(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.state.FrontierPool[id]
	if !ok {
		return ErrFrontierNotFound
	}
	if f.Activated {
		return ErrFrontierActivated
	}
	f.Activated = true
	b.state.UpdatedAt = time.Now()
	return nil
}

// ResurrectFrontier implements the full resurrection fallback chain and installs
// the winner as current_claim with the prescribed support level. It is the
// single entry point the Cycle Runner calls for both the pre-cycle and
// post-decay resurrection phases.
func (b *Blackboard) ResurrectFrontier() error {
	b.mu.Lock()

	var winner *FrontierIdea
	support := 0.5

	var eligible []*FrontierIdea
	for _, f := range b.state.FrontierPool {
		if f.SponsorCount >= 2 && !f.Activated {
			eligible = append(eligible, f)
		}
	}
	switch {
	case len(eligible) > 0:
		total := 0
		for _, f := range eligible {
			total += f.SponsorCount
		}
		if total <= 0 {
			winner = eligible[0]
		} else {
			pick := rand.IntN(total)
			for _, f := range eligible {
				pick -= f.SponsorCount
				if pick < 0 {
					winner = f
					break
				}
			}
			if winner == nil {
				winner = eligible[len(eligible)-1]
			}
		}
	default:
		// Fall back to the highest-sponsor unactivated frontier, support 0.4.
		for _, f := range b.state.FrontierPool {
			if f.Activated {
				continue
			}
			if winner == nil || f.SponsorCount > winner.SponsorCount {
				winner = f
			}
		}
		support = 0.4
	}

	if winner == nil {
		b.mu.Unlock()
		return ErrNoFrontiersAvailable
	}

	winner.Activated = true
	claim := winner.IdeaText
	b.state.CurrentClaim = &claim
	b.state.SupportStrength = support
	b.state.UpdatedAt = time.Now()
	id := b.state.ID
	b.mu.Unlock()

	b.publisher.Publish(topicFor(id), "claim_updated", map[string]any{
		"session_id": id, "claim": truncate(claim, 200), "resurrected": true,
	})
	return nil
}

// RecordStore is the durable backing for persist() and snapshot_to_history().
// The concrete implementation lives in pkg/services, keeping this package
// free of any database dependency.
type RecordStore interface {
	SaveBlackboardRecord(ctx context.Context, state State) error
	SaveBlackboardSnapshot(ctx context.Context, snap Snapshot) error
}

// Persist writes the current state to store. It is idempotent per cycle:
// calling it twice with no mutation in between writes the same row twice,
// which the underlying store is expected to treat as an upsert keyed by ID.
func (b *Blackboard) Persist(ctx context.Context, store RecordStore) error {
	b.mu.RLock()
	state := b.state
	b.mu.RUnlock()
	return store.SaveBlackboardRecord(ctx, state)
}

// SnapshotToHistory writes a timestamped snapshot of the current state for
// post-hoc analysis.
func (b *Blackboard) SnapshotToHistory(ctx context.Context, store RecordStore) error {
	snap := b.GetSnapshot()
	return store.SaveBlackboardSnapshot(ctx, snap)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
