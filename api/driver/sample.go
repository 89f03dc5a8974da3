package driver

import (
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
)

// MotionSample describes one raw three-axis sample from a motion sensor.
type MotionSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector returns the sample as a vector.
func (m MotionSample) Vector() r3.Vector {
	return r3.Vector{X: m.X, Y: m.Y, Z: m.Z}
}

// PressureSample describes one raw barometric pressure sample.
type PressureSample struct {
	HPa float64 `json:"hpa"`
}

// AttitudeSample describes one raw device orientation sample, as Euler
// angles in radians.
type AttitudeSample struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// GeoSample describes one raw geographic fix.
// Accuracy, speed and course values are negative when the source does not
// report them.
type GeoSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`

	HorizontalAccuracy float64 `json:"horizontal_accuracy"`
	VerticalAccuracy   float64 `json:"vertical_accuracy"`

	// Speed holds ground speed in meters per second.
	Speed float64 `json:"speed"`
	// Course holds the travel direction in degrees clockwise from true north.
	Course float64 `json:"course"`

	Floor    int32 `json:"floor,omitempty"`
	HasFloor bool  `json:"has_floor,omitempty"`
}

// HeadingSample describes one raw compass sample in degrees.
// Accuracy is negative when the source does not report it.
type HeadingSample struct {
	Magnetic float64 `json:"magnetic"`
	True     float64 `json:"true"`
	Accuracy float64 `json:"accuracy"`
}

// FaceSample describes one raw set of face blend shape coefficients,
// keyed by shape name with values in the unit interval.
type FaceSample struct {
	Shapes map[string]float64 `json:"shapes"`
}

// AuthResult describes the raw outcome of a biometric verification.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// TagRecord describes one raw record read from a scanned tag.
type TagRecord struct {
	TypeFormat byte   `json:"type_format"`
	Payload    []byte `json:"payload"`
}

// TagPayload describes the raw contents of a scanned tag.
type TagPayload struct {
	Records []TagRecord `json:"records"`
}

// ProximityLevel describes the raw state of a proximity toggle.
type ProximityLevel struct {
	Near bool `json:"near"`
}

// RangingEventType describes the type of a peer ranging event.
type RangingEventType uint8

const (
	// RangingUpdate carries a fresh measurement for a peer.
	RangingUpdate RangingEventType = iota
	// RangingRemove marks a peer as lost.
	RangingRemove
	// RangingSuspend marks the whole ranging session as interrupted.
	RangingSuspend
	// RangingResume marks the ranging session as resumed after a suspension.
	RangingResume
	// RangingInvalidate marks the ranging session as unrecoverable.
	RangingInvalidate
)

// RangingEvent describes one raw event from a peer ranging session.
// Distance is negative when the measurement does not include one, and
// Direction is meaningful only when HasDirection is set.
type RangingEvent struct {
	Type   RangingEventType `json:"type"`
	PeerID uuid.UUID        `json:"peer_id,omitempty"`

	Distance     float64   `json:"distance,omitempty"`
	Direction    r3.Vector `json:"direction,omitempty"`
	HasDirection bool      `json:"has_direction,omitempty"`

	Err error `json:"-"`
}

// String converts a RangingEventType to a string.
func (r RangingEventType) String() string {
	switch r {
	case RangingUpdate:
		return "update"
	case RangingRemove:
		return "remove"
	case RangingSuspend:
		return "suspend"
	case RangingResume:
		return "resume"
	case RangingInvalidate:
		return "invalidate"
	}
	return "unknown"
}
