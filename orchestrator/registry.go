package orchestrator

import (
	"github.com/multisense-org/sensor-native/api/capability"
	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/errorkinds"
	"github.com/multisense-org/sensor-native/api/helpers/discovery"
	"github.com/multisense-org/sensor-native/api/sensor"
)

// capabilityRegistry answers descriptor and availability queries over the
// assembled producer set. Pure reads; unknown kinds answer unavailable.
type capabilityRegistry struct {
	set   driver.ProducerSet
	token *discovery.Token
}

func newCapabilityRegistry(set driver.ProducerSet, token *discovery.Token) *capabilityRegistry {
	return &capabilityRegistry{set: set, token: token}
}

// Describe returns the descriptor of a kind together with its availability
// on this stack.
func (r *capabilityRegistry) Describe(kind sensor.Kind) sensor.Descriptor {
	descriptor := kind.Describe()
	descriptor.Available = r.Available(kind)

	return descriptor
}

// Available reports whether a kind can hold a session on this stack.
// Ranging additionally requires a configured discovery token.
func (r *capabilityRegistry) Available(kind sensor.Kind) bool {
	if !kind.Valid() || !r.set.Has(kind) {
		return false
	}
	if kind.Class() == sensor.PeerSession {
		return r.token.Valid()
	}

	return true
}

// FeatureSet summarizes the stack's availability as a feature set with one
// absence reason per missing feature.
func (r *capabilityRegistry) FeatureSet() capability.Set {
	var features capability.Feature
	var errs capability.Errors

	for _, kind := range sensor.Kinds() {
		if r.Available(kind) {
			features |= kind.Feature()
			continue
		}

		reason := errorkinds.ErrUnavailable
		if r.set.Has(kind) && kind.Class() == sensor.PeerSession {
			reason = errorkinds.ErrTokenInvalid
		}
		errs.Append(capability.NewError(kind.Feature(), reason))
	}

	return capability.NewSet(features, errs)
}
