// Package capability describes the set of sensor features a platform stack
// advertises to a session, and the reasons individual features are absent.
package capability

import (
	"strings"
)

// Feature describes a single sensor feature flag.
type Feature uint16

const (
	FeatureAccelerometer Feature = 1 << iota
	FeatureGyroscope
	FeatureMagnetometer
	FeatureBarometer
	FeatureAttitude
	FeatureLocation
	FeatureHeading
	FeatureFaceBlendShapes
	FeatureBiometricAuth
	FeatureNFCScan
	FeatureProximity
	FeatureUWBRanging

	featureEnd
)

// FeatureAll holds every defined feature flag.
const FeatureAll = featureEnd - 1

// Error describes an error that is associated with an absent feature.
type Error struct {
	Feature Feature `json:"feature"`
	Err     error   `json:"-"`
}

// Errors describes a list of feature errors.
type Errors []Error

// NewError returns a new feature error.
func NewError(feature Feature, err error) Error {
	return Error{Feature: feature, Err: err}
}

// Append appends a feature error to the list.
func (e *Errors) Append(ferr Error) {
	*e = append(*e, ferr)
}

// Exists reports whether an error is recorded against the provided feature.
func (e Errors) Exists(feature Feature) bool {
	for _, ferr := range e {
		if ferr.Feature == feature {
			return true
		}
	}

	return false
}

// Set describes the features advertised by a platform sensor stack.
type Set struct {
	Supported Feature `json:"supported"`
	Errors    Errors  `json:"errors,omitempty"`
}

// NewSet returns a new feature set with the provided supported features
// and absent feature errors.
func NewSet(supported Feature, errors Errors) Set {
	return Set{Supported: supported, Errors: errors}
}

// NilSet returns an empty feature set.
func NilSet() Set {
	return Set{}
}

// Supports reports whether every provided feature is advertised.
func (s Set) Supports(features Feature) bool {
	return s.Supported&features == features
}

// AbsentFeatures returns the features that are not advertised by the stack.
func (s Set) AbsentFeatures() []Feature {
	var absent []Feature

	for f := FeatureAccelerometer; f < featureEnd; f <<= 1 {
		if s.Supported&f == 0 {
			absent = append(absent, f)
		}
	}

	return absent
}

// String converts a Feature to a string.
func (f Feature) String() string {
	if f == 0 {
		return "none"
	}

	names := make([]string, 0, 1)
	for c := FeatureAccelerometer; c < featureEnd; c <<= 1 {
		if f&c == 0 {
			continue
		}

		switch c {
		case FeatureAccelerometer:
			names = append(names, "accelerometer")
		case FeatureGyroscope:
			names = append(names, "gyroscope")
		case FeatureMagnetometer:
			names = append(names, "magnetometer")
		case FeatureBarometer:
			names = append(names, "barometer")
		case FeatureAttitude:
			names = append(names, "attitude")
		case FeatureLocation:
			names = append(names, "location")
		case FeatureHeading:
			names = append(names, "heading")
		case FeatureFaceBlendShapes:
			names = append(names, "face-blend-shapes")
		case FeatureBiometricAuth:
			names = append(names, "biometric-auth")
		case FeatureNFCScan:
			names = append(names, "nfc-scan")
		case FeatureProximity:
			names = append(names, "proximity")
		case FeatureUWBRanging:
			names = append(names, "uwb-ranging")
		}
	}

	return strings.Join(names, "|")
}
