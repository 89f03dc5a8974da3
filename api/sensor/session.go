package sensor

import (
	"context"

	"github.com/multisense-org/sensor-native/api/capability"
	"github.com/multisense-org/sensor-native/api/config"
)

// Session describes a sensor application session.
//
// A session owns one lifecycle per sensor kind. Callers observe normalized
// readings and state transitions through the event stream, and query the
// latest snapshot of any kind without blocking producers.
type Session interface {
	// Start attempts to initialize a session with the platform's sensor
	// stacks. Upon complete initialization, it returns the capabilities of
	// the assembled stack, with absent features recorded per kind.
	Start(authHandler Authorizer, cfg config.Configuration) (capability.Set, error)

	// Stop attempts to stop the session and every running sensor.
	Stop() error

	// StartSensors begins sensor sessions for the provided kinds.
	// Kinds that already hold a running session are left untouched.
	StartSensors(ctx context.Context, kinds ...Kind) error

	// StopSensors requests an orderly stop of the provided kinds.
	// A stop issued while a kind is still requesting authorization is
	// honored once the authorization resolves.
	StopSensors(kinds ...Kind) error

	// Describe returns the descriptor of a sensor kind, including its
	// availability on the running platform stack.
	Describe(kind Kind) Descriptor

	// Latest returns the most recent normalized reading observed for a
	// kind, and reports whether one has been observed at all.
	Latest(kind Kind) (Reading, bool)

	// StateOf returns the lifecycle state of a kind.
	StateOf(kind Kind) SessionState

	// Authorization returns the cached authorization state of a domain.
	Authorization(domain Domain) AuthorizationState

	// Peers returns a snapshot of the peers tracked by a running
	// ranging session.
	Peers() []RangingSample
}
