package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscriberOfSameTopic(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe(SessionTopic("s1"))
	defer sub.Close()

	bus.Publish(SessionTopic("s1"), KindCycleStarted, CycleStartedPayload{SessionID: "s1", Cycle: 1})

	select {
	case evt := <-sub.C():
		assert.Equal(t, KindCycleStarted, evt.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}
}

func TestBusDoesNotDeliverToOtherTopics(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe(SessionTopic("s1"))
	defer sub.Close()

	bus.Publish(SessionTopic("s2"), KindCycleStarted, CycleStartedPayload{SessionID: "s2"})

	select {
	case <-sub.C():
		t.Fatal("must not receive events from another topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusPublishWithNoSubscribersDoesNotBlock(t *testing.T) {
	bus := NewBus(4)
	done := make(chan struct{})
	go func() {
		bus.Publish(GlobalSessionsTopic, KindSessionStarted, SessionLifecyclePayload{SessionID: "s1"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish with no subscribers must not block")
	}
}

func TestBusDropsEventWhenSubscriberBufferFull(t *testing.T) {
	bus := NewBus(1)
	sub := bus.Subscribe(GlobalSessionsTopic)
	defer sub.Close()

	bus.Publish(GlobalSessionsTopic, KindSessionStarted, SessionLifecyclePayload{SessionID: "first"})
	bus.Publish(GlobalSessionsTopic, KindSessionStarted, SessionLifecyclePayload{SessionID: "second"})

	first := <-sub.C()
	payload, ok := first.Data.(SessionLifecyclePayload)
	require.True(t, ok)
	assert.Equal(t, "first", payload.SessionID, "the buffered slot must hold the earliest event, the later one dropped")

	select {
	case <-sub.C():
		t.Fatal("second event should have been dropped, buffer was full")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionCloseStopsFurtherDelivery(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe(GlobalSessionsTopic)
	sub.Close()

	_, open := <-sub.C()
	assert.False(t, open, "channel must be closed after Close")
}
