// Package eventbus provides the in-process publish and subscribe stream that
// carries sensor readings, state changes and stream errors to consumers.
package eventbus

// EventID describes a topic identifier on the event stream.
type EventID interface {
	// Value returns the numeric topic value.
	Value() uint

	// String returns a printable topic name.
	String() string
}

// SubscriberID represents a single subscription on the event stream.
type SubscriberID struct {
	// C receives published events until the subscription is cancelled.
	C chan any

	active bool
	unsub  func()
}

// Active reports whether the subscription still receives events.
func (s *SubscriberID) Active() bool {
	return s.active
}

// Unsubscribe cancels the subscription and closes its channel.
func (s *SubscriberID) Unsubscribe() {
	if !s.active {
		return
	}

	s.active = false
	if s.unsub != nil {
		s.unsub()
	}
}
