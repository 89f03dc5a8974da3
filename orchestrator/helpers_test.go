package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/multisense-org/sensor-native/api/eventbus"
	"github.com/multisense-org/sensor-native/api/sensor"
)

func subscribe(t *testing.T, id sensor.EventID) *eventbus.SubscriberID {
	t.Helper()

	sub := eventbus.Subscribe(id)
	t.Cleanup(sub.Unsubscribe)

	return &sub
}

func nextEvent(t *testing.T, sub *eventbus.SubscriberID) any {
	t.Helper()

	select {
	case raw, open := <-sub.C:
		require.True(t, open, "subscription closed")
		return raw
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}

func nextState(t *testing.T, sub *eventbus.SubscriberID) sensor.StateChangeData {
	t.Helper()

	data, ok := nextEvent(t, sub).(sensor.StateChangeData)
	require.True(t, ok, "expected state change data")

	return data
}

func nextReading(t *testing.T, sub *eventbus.SubscriberID) sensor.Reading {
	t.Helper()

	reading, ok := nextEvent(t, sub).(sensor.Reading)
	require.True(t, ok, "expected a reading")

	return reading
}

func nextProducerError(t *testing.T, sub *eventbus.SubscriberID) sensor.ProducerErrorData {
	t.Helper()

	data, ok := nextEvent(t, sub).(sensor.ProducerErrorData)
	require.True(t, ok, "expected producer error data")

	return data
}

// awaitStates asserts that the next events on sub are exactly the given
// states, in order.
func awaitStates(t *testing.T, sub *eventbus.SubscriberID, states ...sensor.SessionState) []sensor.StateChangeData {
	t.Helper()

	observed := make([]sensor.StateChangeData, 0, len(states))
	for _, want := range states {
		data := nextState(t, sub)
		require.Equal(t, want.String(), data.State.String(), "unexpected state transition")
		observed = append(observed, data)
	}

	return observed
}

func assertNoEvent(t *testing.T, sub *eventbus.SubscriberID) {
	t.Helper()

	select {
	case raw := <-sub.C:
		t.Fatalf("unexpected event: %#v", raw)
	case <-time.After(50 * time.Millisecond):
	}
}
