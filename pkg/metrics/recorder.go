package metrics

import (
	"github.com/codeready-toolchain/dialectica/pkg/events"
)

// Recorder bridges the process-wide event bus onto the Prometheus
// descriptors in Metrics, mirroring pkg/registry's own watchEvents/
// monitorExit shape: subscribe to session_started on the global topic,
// then follow that session's own topic, plus its Blackboard topic for claim
// deaths and graduations, until it terminates.
type Recorder struct {
	metrics *Metrics
	bus     *events.Bus
}

// NewRecorder creates a Recorder. Run must be called (in its own goroutine)
// for it to actually observe anything.
func NewRecorder(m *Metrics, bus *events.Bus) *Recorder {
	return &Recorder{metrics: m, bus: bus}
}

// Run subscribes to session lifecycle announcements and spawns one
// follower per started session. It returns immediately; there is no
// explicit stop, and the global subscription stays open for the life of
// the process.
func (r *Recorder) Run() {
	sub := r.bus.Subscribe(events.GlobalSessionsTopic)
	go func() {
		for evt := range sub.C() {
			if evt.Kind != events.KindSessionStarted {
				continue
			}
			payload, ok := evt.Data.(events.SessionLifecyclePayload)
			if !ok {
				continue
			}
			r.metrics.ActiveSessions.Inc()
			go r.followSession(payload.SessionID)
		}
	}()
}

func (r *Recorder) followSession(sessionID string) {
	sub := r.bus.Subscribe(events.SessionTopic(sessionID))
	defer sub.Close()

	// The Blackboard publishes claim_died/claim_graduated on its own topic.
	bbSub := r.bus.Subscribe(events.BlackboardTopic(sessionID))
	defer bbSub.Close()
	go func() {
		for evt := range bbSub.C() {
			switch evt.Kind {
			case events.KindClaimDied:
				r.metrics.ClaimsDiedTotal.Inc()
			case events.KindClaimGraduated:
				r.metrics.ClaimsGraduatedTotal.Inc()
			}
		}
	}()

	for evt := range sub.C() {
		switch evt.Kind {
		case events.KindCycleComplete:
			if p, ok := evt.Data.(events.CycleCompletePayload); ok {
				r.metrics.CyclesCompletedTotal.WithLabelValues(sessionID).Inc()
				r.metrics.CycleDurationSeconds.Observe(float64(p.DurationMS) / 1000)
				r.metrics.CurrentSupport.WithLabelValues(sessionID).Set(p.Support)
			}
		case events.KindSupportUpdated:
			if p, ok := evt.Data.(events.SupportUpdatedPayload); ok {
				r.metrics.CurrentSupport.WithLabelValues(sessionID).Set(p.Support)
			}
		case events.KindClaimDied:
			r.metrics.ClaimsDiedTotal.Inc()
		case events.KindClaimGraduated:
			r.metrics.ClaimsGraduatedTotal.Inc()
		case events.KindCostRecorded:
			if p, ok := evt.Data.(events.CostRecordedPayload); ok {
				r.metrics.SessionCostUSD.WithLabelValues(sessionID).Add(p.CostUSD)
			}
		case events.KindShutdown:
			if p, ok := evt.Data.(events.ShutdownPayload); ok && p.Reason == "failed" {
				r.metrics.CyclesFailedTotal.WithLabelValues(sessionID).Inc()
			}
			r.metrics.ActiveSessions.Dec()
			return
		case events.KindSessionCompleted, events.KindSessionStopped:
			r.metrics.ActiveSessions.Dec()
			return
		}
	}
}
