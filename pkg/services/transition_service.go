package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// TransitionService implements cycle.ChangeNotifier: a best-effort background collaborator notified
// whenever a cycle ends with a (possibly unchanged) claim. The
// ChangeNotifier interface only carries the session id and the current
// claim text, not a cycle number, so this service tracks the previous
// claim and a per-session call counter itself to reconstruct the
// from/to pair and an ordinal position in the transition log.
type TransitionService struct {
	db *sql.DB

	mu       sync.Mutex
	lastSeen map[string]string
	seq      map[string]int
}

// NewTransitionService creates a new TransitionService.
func NewTransitionService(db *sql.DB) *TransitionService {
	if db == nil {
		panic("NewTransitionService: db must not be nil")
	}
	return &TransitionService{
		db:       db,
		lastSeen: make(map[string]string),
		seq:      make(map[string]int),
	}
}

// NotifyClaimChanged records a transition row. If the claim is unchanged
// from the previous call for this session, the row is still written
// (transition_kind reflects that) so the log stays a complete per-cycle
// trail, not just a log of actual changes.
func (s *TransitionService) NotifyClaimChanged(ctx context.Context, sessionID, claim string) error {
	s.mu.Lock()
	from := s.lastSeen[sessionID]
	s.seq[sessionID]++
	cycle := s.seq[sessionID]
	s.lastSeen[sessionID] = claim
	s.mu.Unlock()

	kind := "unchanged"
	if from != claim {
		kind = "changed"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO claim_transitions (session_id, cycle, from_claim, to_claim, transition_kind)
		 VALUES ($1, $2, $3, $4, $5)`,
		sessionID, cycle, from, claim, kind,
	)
	if err != nil {
		return fmt.Errorf("failed to insert claim transition: %w", err)
	}
	return nil
}
