package sensor

import (
	"time"

	"github.com/google/uuid"
)

// EventID describes a topic on the session event stream.
// The low byte carries the sensor kind, the high bits carry the event group.
type EventID uint

const (
	eventGroupReading uint = (iota + 1) << 8
	eventGroupState
	eventGroupError
)

// ReadingEvent returns the stream topic that carries normalized Reading
// payloads for the provided sensor kind.
func ReadingEvent(kind Kind) EventID {
	return EventID(eventGroupReading | uint(kind))
}

// StateEvent returns the stream topic that carries StateChangeData payloads
// for the provided sensor kind.
func StateEvent(kind Kind) EventID {
	return EventID(eventGroupState | uint(kind))
}

// ErrorEvent returns the stream topic that carries ProducerErrorData payloads
// for the provided sensor kind.
func ErrorEvent(kind Kind) EventID {
	return EventID(eventGroupError | uint(kind))
}

// Value returns the topic value of the event identifier.
func (e EventID) Value() uint {
	return uint(e)
}

// Kind returns the sensor kind segment of the event identifier.
func (e EventID) Kind() Kind {
	return Kind(e & 0xff)
}

// String converts an EventID to a string.
func (e EventID) String() string {
	switch uint(e) &^ 0xff {
	case eventGroupReading:
		return "reading/" + e.Kind().String()
	case eventGroupState:
		return "state/" + e.Kind().String()
	case eventGroupError:
		return "error/" + e.Kind().String()
	}

	return "unknown-event"
}

// StateChangeData describes a session state transition event.
// Reason carries the error behind the transition, when one exists.
type StateChangeData struct {
	Kind      Kind         `json:"kind"`
	State     SessionState `json:"state"`
	SessionID uuid.UUID    `json:"session_id,omitempty"`
	At        time.Time    `json:"at"`

	Reason error `json:"-"`
}

// ProducerErrorData describes a non-fatal fault raised by a sensor producer
// while its stream stays active.
type ProducerErrorData struct {
	Kind Kind      `json:"kind"`
	At   time.Time `json:"at"`

	Err error `json:"-"`
}
