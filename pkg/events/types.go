// Package events implements the in-process, best-effort event bus:
// typed payload structs per event kind, published on a topic and
// fanned out to whatever subscribers are currently listening. There is no
// cross-process distribution — no WebSocket, no database NOTIFY/LISTEN —
// a single process owns every session's Runner, so a topic-keyed in-memory
// fan-out is sufficient.
package events

// Event kinds published by the core.
const (
	KindSessionStarted   = "session_started"
	KindSessionPaused    = "session_paused"
	KindSessionResumed   = "session_resumed"
	KindSessionStopped   = "session_stopped"
	KindSessionCompleted = "session_completed"
	KindCycleStarted     = "cycle_started"
	KindCycleComplete    = "cycle_complete"
	KindClaimUpdated     = "claim_updated"
	KindSupportUpdated   = "support_updated"
	KindClaimDied        = "claim_died"
	KindClaimGraduated   = "claim_graduated"
	KindClaimChanged     = "claim_changed"
	KindSummaryUpdated   = "summary_updated"
	KindCostRecorded     = "cost_recorded"
	KindCycleCountChanged = "cycle_count_changed"
	KindShutdown         = "shutdown"
)

// GlobalSessionsTopic aggregates session lifecycle events across every
// session.
const GlobalSessionsTopic = "sessions"

// SessionTopic returns the per-session topic name for a given session id.
func SessionTopic(sessionID string) string {
	return "session:" + sessionID
}

// BlackboardTopic returns the topic name for a Blackboard's own mutation
// events, scoped by the blackboard's id (which is the session id).
func BlackboardTopic(id string) string {
	return "blackboard:" + id
}

// Event is the envelope delivered to subscribers: a topic, a kind, and a
// payload. The Runner publishes the Payload structs of payloads.go; the
// Blackboard publishes its mutation events on BlackboardTopic with a
// map[string]any payload holding some of the matching struct's JSON fields.
type Event struct {
	Topic string
	Kind  string
	Data  any
}
