package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Warning category constants for categorizing session-level warnings.
const (
	WarningCategoryCostLimitNear    = "cost_limit_near"    // cumulative spend is approaching cost_limit_usd
	WarningCategoryFrontierExhausted = "frontier_exhausted" // a claim died with no eligible frontier to resurrect from
	WarningCategoryDispatchTimeout  = "dispatch_timeout"   // an agent dispatch exceeded its deadline
)

// SystemWarning represents a non-fatal issue raised against a session.
type SystemWarning struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SystemWarningsService manages in-memory session warnings.
// Thread-safe. Not persisted — warnings are transient and reset on restart.
type SystemWarningsService struct {
	mu       sync.RWMutex
	warnings map[string]*SystemWarning // warningID → warning
}

// NewSystemWarningsService creates a new SystemWarningsService.
func NewSystemWarningsService() *SystemWarningsService {
	return &SystemWarningsService{
		warnings: make(map[string]*SystemWarning),
	}
}

// AddWarning adds a warning and returns its ID.
// If a warning with the same category+sessionID already exists, it is replaced.
func (s *SystemWarningsService) AddWarning(category, message, details, sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Replace existing warning with same category+sessionID to avoid duplicates
	for id, w := range s.warnings {
		if w.Category == category && w.SessionID == sessionID {
			delete(s.warnings, id)
			break
		}
	}

	id := uuid.New().String()
	s.warnings[id] = &SystemWarning{
		ID:        id,
		Category:  category,
		Message:   message,
		Details:   details,
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}
	return id
}

// GetWarnings returns all active warnings as value copies.
// Callers may safely read or compare the returned structs without holding locks.
func (s *SystemWarningsService) GetWarnings() []*SystemWarning {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*SystemWarning, 0, len(s.warnings))
	for _, w := range s.warnings {
		cp := *w
		result = append(result, &cp)
	}
	return result
}

// ClearBySessionID removes a warning matching category + sessionID.
// Returns true if a warning was removed.
func (s *SystemWarningsService) ClearBySessionID(category, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, w := range s.warnings {
		if w.Category == category && w.SessionID == sessionID {
			delete(s.warnings, id)
			return true
		}
	}
	return false
}
