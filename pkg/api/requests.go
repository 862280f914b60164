package api

// stopRequest is the optional JSON body for POST /sessions/:id/stop,
// carrying the human-readable reason recorded alongside the session's
// shutdown log line and event.
type stopRequest struct {
	Reason string `json:"reason"`
}
