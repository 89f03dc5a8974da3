package sensor

import (
	"github.com/multisense-org/sensor-native/api/capability"
)

// Kind identifies a single sensor source managed by a session.
// The set of kinds is closed; the zero value is invalid.
type Kind uint8

const (
	KindInvalid Kind = iota
	Accelerometer
	Gyroscope
	Magnetometer
	Barometer
	Attitude
	Location
	Heading
	FaceBlendShapes
	BiometricAuth
	NFCScan
	Proximity
	UWBRanging

	maxKind
)

// LifecycleClass describes the concurrency shape of a sensor kind and
// selects the controller a kind is routed to.
type LifecycleClass uint8

const (
	// Continuous kinds produce a steady stream of samples while running.
	Continuous LifecycleClass = iota
	// SingleShot kinds produce exactly one terminal result per activation.
	SingleShot
	// Toggle kinds hold a binary running state and emit level changes.
	Toggle
	// PeerSession kinds track remote peers over a long-lived, suspendable session.
	PeerSession
)

// Domain is a permission boundary grouping kinds that share one
// authorization prompt. Motion and face-tracking kinds carry no domain.
type Domain uint8

const (
	DomainNone Domain = iota
	DomainLocation
	DomainBiometric
	DomainProximity
	DomainNFC
	DomainPeerRanging
)

// Variant tags the payload shape carried by a Reading.
type Variant uint8

const (
	VariantNone Variant = iota
	VariantVector
	VariantScalar
	VariantGeo
	VariantHeading
	VariantBlendShapes
	VariantAuth
	VariantNFC
	VariantRanging
)

type kindInfo struct {
	name    string
	class   LifecycleClass
	domain  Domain
	variant Variant
}

var kindTable = [maxKind]kindInfo{
	Accelerometer:   {"accelerometer", Continuous, DomainNone, VariantVector},
	Gyroscope:       {"gyroscope", Continuous, DomainNone, VariantVector},
	Magnetometer:    {"magnetometer", Continuous, DomainNone, VariantVector},
	Barometer:       {"barometer", Continuous, DomainNone, VariantScalar},
	Attitude:        {"attitude", Continuous, DomainNone, VariantVector},
	Location:        {"location", Continuous, DomainLocation, VariantGeo},
	Heading:         {"heading", Continuous, DomainLocation, VariantHeading},
	FaceBlendShapes: {"face-blend-shapes", Continuous, DomainNone, VariantBlendShapes},
	BiometricAuth:   {"biometric-auth", SingleShot, DomainBiometric, VariantAuth},
	NFCScan:         {"nfc-scan", SingleShot, DomainNFC, VariantNFC},
	Proximity:       {"proximity", Toggle, DomainProximity, VariantScalar},
	UWBRanging:      {"uwb-ranging", PeerSession, DomainPeerRanging, VariantRanging},
}

// Kinds returns every valid sensor kind in declaration order.
func Kinds() []Kind {
	all := make([]Kind, 0, int(maxKind)-1)
	for k := Kind(1); k < maxKind; k++ {
		all = append(all, k)
	}
	return all
}

// Valid reports whether k names a known sensor kind.
func (k Kind) Valid() bool {
	return k > KindInvalid && k < maxKind
}

// Class returns the lifecycle class fixed for this kind.
func (k Kind) Class() LifecycleClass {
	if !k.Valid() {
		return Continuous
	}
	return kindTable[k].class
}

// PermissionDomain returns the authorization domain gating this kind,
// or DomainNone when no permission is required to start it.
func (k Kind) PermissionDomain() Domain {
	if !k.Valid() {
		return DomainNone
	}
	return kindTable[k].domain
}

// PayloadVariant returns the payload shape readings of this kind carry.
func (k Kind) PayloadVariant() Variant {
	if !k.Valid() {
		return VariantNone
	}
	return kindTable[k].variant
}

// Feature returns the capability feature flag advertised for this kind.
func (k Kind) Feature() capability.Feature {
	switch k {
	case Accelerometer:
		return capability.FeatureAccelerometer
	case Gyroscope:
		return capability.FeatureGyroscope
	case Magnetometer:
		return capability.FeatureMagnetometer
	case Barometer:
		return capability.FeatureBarometer
	case Attitude:
		return capability.FeatureAttitude
	case Location:
		return capability.FeatureLocation
	case Heading:
		return capability.FeatureHeading
	case FaceBlendShapes:
		return capability.FeatureFaceBlendShapes
	case BiometricAuth:
		return capability.FeatureBiometricAuth
	case NFCScan:
		return capability.FeatureNFCScan
	case Proximity:
		return capability.FeatureProximity
	case UWBRanging:
		return capability.FeatureUWBRanging
	}

	return 0
}

// String converts a Kind to a string.
func (k Kind) String() string {
	if !k.Valid() {
		return "invalid"
	}
	return kindTable[k].name
}

// String converts a LifecycleClass to a string.
func (c LifecycleClass) String() string {
	switch c {
	case Continuous:
		return "continuous"
	case SingleShot:
		return "single-shot"
	case Toggle:
		return "toggle"
	case PeerSession:
		return "peer-session"
	}
	return "unknown"
}

// String converts a Domain to a string.
func (d Domain) String() string {
	switch d {
	case DomainNone:
		return "none"
	case DomainLocation:
		return "location"
	case DomainBiometric:
		return "biometric"
	case DomainProximity:
		return "proximity"
	case DomainNFC:
		return "nfc"
	case DomainPeerRanging:
		return "peer-ranging"
	}
	return "unknown"
}

// Domains returns every permission domain, excluding DomainNone.
func Domains() []Domain {
	return []Domain{DomainLocation, DomainBiometric, DomainProximity, DomainNFC, DomainPeerRanging}
}

// Descriptor describes the static traits of a sensor kind together with its
// availability on the running platform stack.
type Descriptor struct {
	Kind      Kind           `json:"kind"`
	Class     LifecycleClass `json:"class"`
	Domain    Domain         `json:"domain"`
	Available bool           `json:"available"`
}

// Describe returns the descriptor for this kind. Availability is reported
// by the session's capability registry; the returned descriptor marks the
// kind unavailable.
func (k Kind) Describe() Descriptor {
	return Descriptor{
		Kind:   k,
		Class:  k.Class(),
		Domain: k.PermissionDomain(),
	}
}
