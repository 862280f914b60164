package blackboard

// Publisher is the minimal event-sink the Blackboard needs. The concrete
// implementation (pkg/events.Bus) is injected by whoever constructs the
// Blackboard, keeping this package free of any dependency on the event bus
// wire format.
type Publisher interface {
	Publish(topic string, kind string, payload any)
}

// noopPublisher is used when the caller does not wire a real bus (e.g. in
// unit tests that only care about the Blackboard's own return values).
type noopPublisher struct{}

func (noopPublisher) Publish(string, string, any) {}
