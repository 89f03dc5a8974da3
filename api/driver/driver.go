// Package driver describes the producer contracts a platform sensor stack
// implements, and the raw sample types producers emit before normalization.
package driver

import (
	"context"
	"time"

	"github.com/multisense-org/sensor-native/api/helpers/discovery"
	"github.com/multisense-org/sensor-native/api/sensor"
)

// StreamProducer describes a driver that emits a steady stream of raw
// samples for one continuous sensor kind.
type StreamProducer interface {
	// Stream delivers raw samples through emit, paced at roughly the
	// provided interval, until ctx is cancelled. A nil return means the
	// stream ended with the context; an error return means the source
	// failed and the stream cannot continue.
	Stream(ctx context.Context, interval time.Duration, emit func(sample any)) error
}

// OneShotProducer describes a driver that resolves a single raw result
// per activation.
type OneShotProducer interface {
	// Run performs one activation and returns its raw result.
	Run(ctx context.Context) (any, error)
}

// ToggleProducer describes a driver that reports level changes of a
// binary sensor while armed.
type ToggleProducer interface {
	// Watch delivers the current level once on arming and again on every
	// change, until ctx is cancelled.
	Watch(ctx context.Context, emit func(level ProximityLevel)) error
}

// RangingProducer describes a driver that tracks remote peers over a
// long-lived ranging session.
type RangingProducer interface {
	// Range runs a ranging session armed with the provided discovery
	// token, delivering peer events through emit until ctx is cancelled
	// or the session invalidates itself.
	Range(ctx context.Context, token *discovery.Token, emit func(event RangingEvent)) error
}

// ProducerSet holds the drivers assembled for one platform sensor stack,
// keyed by the sensor kind they serve.
type ProducerSet struct {
	Streams  map[sensor.Kind]StreamProducer
	OneShots map[sensor.Kind]OneShotProducer
	Toggles  map[sensor.Kind]ToggleProducer
	Rangers  map[sensor.Kind]RangingProducer
}

// NewProducerSet returns an empty producer set.
func NewProducerSet() ProducerSet {
	return ProducerSet{
		Streams:  make(map[sensor.Kind]StreamProducer),
		OneShots: make(map[sensor.Kind]OneShotProducer),
		Toggles:  make(map[sensor.Kind]ToggleProducer),
		Rangers:  make(map[sensor.Kind]RangingProducer),
	}
}

// Has reports whether a driver is registered for the provided kind.
func (p ProducerSet) Has(kind sensor.Kind) bool {
	switch kind.Class() {
	case sensor.Continuous:
		_, ok := p.Streams[kind]
		return ok
	case sensor.SingleShot:
		_, ok := p.OneShots[kind]
		return ok
	case sensor.Toggle:
		_, ok := p.Toggles[kind]
		return ok
	case sensor.PeerSession:
		_, ok := p.Rangers[kind]
		return ok
	}

	return false
}

// Kinds returns every kind a driver is registered for, in declaration order.
func (p ProducerSet) Kinds() []sensor.Kind {
	var kinds []sensor.Kind
	for _, kind := range sensor.Kinds() {
		if p.Has(kind) {
			kinds = append(kinds, kind)
		}
	}

	return kinds
}

// APObservation describes one access point sighting used for coarse
// network geolocation.
type APObservation struct {
	BSSID     string `json:"bssid"`
	SSID      string `json:"ssid,omitempty"`
	Strength  uint8  `json:"strength"`
	Frequency uint32 `json:"frequency,omitempty"`
}

// GeoResolver describes a service that resolves access point sightings
// to a geographic fix.
type GeoResolver interface {
	// Resolve maps the provided sightings to a fix.
	Resolve(ctx context.Context, observations []APObservation) (GeoSample, error)
}
