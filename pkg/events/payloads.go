package events

// SessionLifecyclePayload covers session_started, session_paused,
// session_resumed, session_stopped, and session_completed — all of which
// share the same shape.
type SessionLifecyclePayload struct {
	SessionID    string `json:"session_id"`
	BlackboardID string `json:"blackboard_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// CycleStartedPayload is published when a cycle begins.
type CycleStartedPayload struct {
	SessionID    string `json:"session_id"`
	Cycle        int    `json:"cycle"`
	BlackboardID string `json:"blackboard_id"`
	Timestamp    string `json:"timestamp"`
}

// CycleCompletePayload is published when a cycle finishes successfully.
// CurrentClaim is truncated to 200 characters.
type CycleCompletePayload struct {
	SessionID    string  `json:"session_id"`
	Cycle        int     `json:"cycle"`
	DurationMS   int64   `json:"duration_ms"`
	Support      float64 `json:"support"`
	CurrentClaim string  `json:"current_claim"`
	Timestamp    string  `json:"timestamp"`
}

// ClaimUpdatedPayload describes the claim_updated event (current_claim
// changed). The Blackboard publishes that event as a map[string]any, not as
// this struct.
type ClaimUpdatedPayload struct {
	SessionID   string `json:"session_id"`
	Claim       string `json:"claim"`
	Resurrected bool   `json:"resurrected,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// SupportUpdatedPayload describes the support_updated event
// (support_strength changed). The Blackboard publishes that event as a
// map[string]any, not as this struct.
type SupportUpdatedPayload struct {
	SessionID string  `json:"session_id"`
	Support   float64 `json:"support"`
	Timestamp string  `json:"timestamp"`
}

// ClaimDiedPayload describes the claim_died event (a claim moved into the
// cemetery). The Blackboard publishes that event as a map[string]any, not
// as this struct.
type ClaimDiedPayload struct {
	SessionID string `json:"session_id"`
	Claim     string `json:"claim"`
	Cause     string `json:"cause"`
	Cycle     int    `json:"cycle"`
	Timestamp string `json:"timestamp"`
}

// ClaimGraduatedPayload describes the claim_graduated event (a claim
// crossed the graduation threshold). The Blackboard publishes that event as
// a map[string]any, not as this struct.
type ClaimGraduatedPayload struct {
	SessionID string  `json:"session_id"`
	Claim     string  `json:"claim"`
	Cycle     int     `json:"cycle"`
	Support   float64 `json:"support"`
	Timestamp string  `json:"timestamp"`
}

// ClaimChangedPayload describes one claim-to-claim transition, for
// post-hoc narrative reconstruction.
type ClaimChangedPayload struct {
	SessionID  string `json:"session_id"`
	Transition string `json:"transition"`
	Timestamp  string `json:"timestamp"`
}

// SummaryUpdatedPayload is published by the best-effort summarizer.
type SummaryUpdatedPayload struct {
	SessionID string `json:"session_id"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
}

// CostRecordedPayload is published after each agent contribution with a
// nonzero cost.
type CostRecordedPayload struct {
	SessionID string  `json:"session_id"`
	Role      string  `json:"role"`
	CostUSD   float64 `json:"cost_usd"`
	Timestamp string  `json:"timestamp"`
}

// CycleCountChangedPayload describes the cycle_count_changed event the
// Blackboard emits on every increment_cycle call, as a map[string]any rather
// than as this struct.
type CycleCountChangedPayload struct {
	SessionID  string `json:"session_id"`
	CycleCount int    `json:"cycle_count"`
	Timestamp  string `json:"timestamp"`
}

// ShutdownPayload is published once, when a Runner terminates for any
// reason.
type ShutdownPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
	Cycle     int    `json:"cycle"`
	Timestamp string `json:"timestamp"`
}
