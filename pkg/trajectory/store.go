package trajectory

import (
	"context"
	"sort"
	"sync"
)

// Point is one completed cycle's trajectory sample. Once
// appended it is never mutated or deleted.
type Point struct {
	SessionID       string
	CycleNumber     int
	EmbeddingVector []float64
	ClaimText       string
	SupportStrength float64
}

// Persister is the optional durable backing for trajectory points. When
// nil, Store operates purely in memory. The concrete implementation lives
// in pkg/services, keeping this package free of any database dependency.
type Persister interface {
	SaveTrajectoryPoint(ctx context.Context, p Point) error
}

// Store holds every session's trajectory points in memory, ordered by
// cycle_number, and optionally mirrors each append to a Persister.
// It is safe for concurrent use by multiple sessions' Runners; a
// single session is only ever written by its own Runner, but reads (e.g.
// from the HTTP API) may come from any goroutine.
type Store struct {
	mu       sync.RWMutex
	points   map[string][]Point
	persist  Persister
}

// NewStore builds an empty in-memory trajectory store. persist may be nil.
func NewStore(persist Persister) *Store {
	return &Store{
		points:  make(map[string][]Point),
		persist: persist,
	}
}

// Append records a new trajectory point for session_id. Points are kept
// ordered by cycle_number as they arrive; the Runner is expected to append
// in increasing cycle order, but Append defensively sorts to preserve the
// "ordered sequence" guarantee of get_trajectory regardless.
func (s *Store) Append(ctx context.Context, p Point) error {
	s.mu.Lock()
	s.points[p.SessionID] = append(s.points[p.SessionID], p)
	sort.SliceStable(s.points[p.SessionID], func(i, j int) bool {
		return s.points[p.SessionID][i].CycleNumber < s.points[p.SessionID][j].CycleNumber
	})
	s.mu.Unlock()

	if s.persist != nil {
		return s.persist.SaveTrajectoryPoint(ctx, p)
	}
	return nil
}

// Get returns the ordered sequence of trajectory points for session_id, a
// fresh copy safe for the caller to retain.
func (s *Store) Get(sessionID string) []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.points[sessionID]
	out := make([]Point, len(src))
	copy(out, src)
	return out
}

// Last returns the most recent trajectory point for sessionID, if any.
func (s *Store) Last(sessionID string) (Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.points[sessionID]
	if len(src) == 0 {
		return Point{}, false
	}
	return src[len(src)-1], true
}
