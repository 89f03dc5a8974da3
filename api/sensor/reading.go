package sensor

import (
	"maps"
	"math"
	"slices"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/multisense-org/sensor-native/api/errorkinds"
)

// Sentinel values substituted for fields a degraded platform reading
// did not supply. An unavailable accuracy is meaningful data, not an error.
const (
	AccuracyUnknown float64 = -1
	SpeedUnknown    float64 = -1
	CourseUnknown   float64 = -1
	DistanceUnknown float64 = -1

	// FloorUnknown marks a location fix without building-floor information.
	FloorUnknown int32 = math.MinInt32
)

// GeoFix describes a single location fix.
type GeoFix struct {
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	Altitude           float64 `json:"altitude_m"`
	HorizontalAccuracy float64 `json:"horizontal_accuracy_m"`
	VerticalAccuracy   float64 `json:"vertical_accuracy_m"`
	Speed              float64 `json:"speed_mps"`
	Course             float64 `json:"course_deg"`
	Floor              int32   `json:"floor,omitempty"`
}

// HeadingFix describes a single compass fix. True is the heading relative
// to true north, and carries AccuracyUnknown when no declination is known.
type HeadingFix struct {
	Magnetic float64 `json:"magnetic_deg"`
	True     float64 `json:"true_deg"`
	Accuracy float64 `json:"accuracy_deg"`
}

// BlendShapeMap maps a face blend-shape name to its intensity in [0, 1].
type BlendShapeMap map[string]float64

// AuthOutcome describes the terminal result of a biometric authentication.
type AuthOutcome struct {
	Success       bool   `json:"success"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// NFCRecord is a single NDEF record read from a tag.
type NFCRecord struct {
	TypeFormat byte   `json:"type_format"`
	Payload    []byte `json:"payload"`
}

// NFCPayload holds the records of one tag scan in scan order.
type NFCPayload struct {
	Records []NFCRecord `json:"records"`
}

// RangingSample describes the last known range to a single peer.
// Distance is DistanceUnknown and HasDirection is false when the
// underlying session could not measure them.
type RangingSample struct {
	PeerID       uuid.UUID `json:"peer_id"`
	Distance     float64   `json:"distance_m"`
	Direction    r3.Vector `json:"direction"`
	HasDirection bool      `json:"has_direction"`
}

// Reading is an immutable sensor value tagged with the kind that produced
// it. Readings are replaced, never mutated; the payload variant always
// matches the kind's expected variant.
type Reading struct {
	kind    Kind
	at      time.Time
	payload any
}

// Kind returns the kind that produced this reading.
func (r Reading) Kind() Kind { return r.kind }

// At returns the time the reading was produced.
func (r Reading) At() time.Time { return r.at }

// Vector returns the three-axis payload of a motion or attitude reading.
func (r Reading) Vector() (r3.Vector, bool) {
	v, ok := r.payload.(r3.Vector)
	return v, ok
}

// Scalar returns the payload of a pressure or proximity reading.
// Proximity readings carry 1 for near and 0 for far.
func (r Reading) Scalar() (float64, bool) {
	v, ok := r.payload.(float64)
	return v, ok
}

// Geo returns the payload of a location reading.
func (r Reading) Geo() (GeoFix, bool) {
	v, ok := r.payload.(GeoFix)
	return v, ok
}

// Heading returns the payload of a compass reading.
func (r Reading) Heading() (HeadingFix, bool) {
	v, ok := r.payload.(HeadingFix)
	return v, ok
}

// BlendShapes returns a copy of the payload of a face-tracking reading.
func (r Reading) BlendShapes() (BlendShapeMap, bool) {
	v, ok := r.payload.(BlendShapeMap)
	if !ok {
		return nil, false
	}
	return maps.Clone(v), true
}

// Auth returns the payload of a biometric authentication reading.
func (r Reading) Auth() (AuthOutcome, bool) {
	v, ok := r.payload.(AuthOutcome)
	return v, ok
}

// NFC returns the payload of a tag-scan reading.
func (r Reading) NFC() (NFCPayload, bool) {
	v, ok := r.payload.(NFCPayload)
	return v, ok
}

// Ranging returns the payload of a peer-ranging reading.
func (r Reading) Ranging() (RangingSample, bool) {
	v, ok := r.payload.(RangingSample)
	return v, ok
}

// NewVectorReading returns a reading carrying a three-axis payload.
func NewVectorReading(kind Kind, at time.Time, v r3.Vector) (Reading, error) {
	if kind.PayloadVariant() != VariantVector {
		return Reading{}, errorkinds.ErrPayloadMismatch
	}
	return Reading{kind: kind, at: at, payload: v}, nil
}

// NewScalarReading returns a reading carrying a scalar payload.
func NewScalarReading(kind Kind, at time.Time, v float64) (Reading, error) {
	if kind.PayloadVariant() != VariantScalar {
		return Reading{}, errorkinds.ErrPayloadMismatch
	}
	return Reading{kind: kind, at: at, payload: v}, nil
}

// NewGeoReading returns a reading carrying a location fix.
func NewGeoReading(kind Kind, at time.Time, fix GeoFix) (Reading, error) {
	if kind.PayloadVariant() != VariantGeo {
		return Reading{}, errorkinds.ErrPayloadMismatch
	}
	return Reading{kind: kind, at: at, payload: fix}, nil
}

// NewHeadingReading returns a reading carrying a compass fix.
func NewHeadingReading(kind Kind, at time.Time, fix HeadingFix) (Reading, error) {
	if kind.PayloadVariant() != VariantHeading {
		return Reading{}, errorkinds.ErrPayloadMismatch
	}
	return Reading{kind: kind, at: at, payload: fix}, nil
}

// NewBlendShapeReading returns a reading carrying a copy of the given
// blend-shape intensities.
func NewBlendShapeReading(kind Kind, at time.Time, shapes BlendShapeMap) (Reading, error) {
	if kind.PayloadVariant() != VariantBlendShapes {
		return Reading{}, errorkinds.ErrPayloadMismatch
	}
	return Reading{kind: kind, at: at, payload: maps.Clone(shapes)}, nil
}

// NewAuthReading returns a reading carrying a biometric outcome.
func NewAuthReading(kind Kind, at time.Time, outcome AuthOutcome) (Reading, error) {
	if kind.PayloadVariant() != VariantAuth {
		return Reading{}, errorkinds.ErrPayloadMismatch
	}
	return Reading{kind: kind, at: at, payload: outcome}, nil
}

// NewNFCReading returns a reading carrying a copy of the scanned records.
func NewNFCReading(kind Kind, at time.Time, payload NFCPayload) (Reading, error) {
	if kind.PayloadVariant() != VariantNFC {
		return Reading{}, errorkinds.ErrPayloadMismatch
	}
	records := make([]NFCRecord, len(payload.Records))
	for i, rec := range payload.Records {
		records[i] = NFCRecord{TypeFormat: rec.TypeFormat, Payload: slices.Clone(rec.Payload)}
	}
	return Reading{kind: kind, at: at, payload: NFCPayload{Records: records}}, nil
}

// NewRangingReading returns a reading carrying a peer-ranging sample.
func NewRangingReading(kind Kind, at time.Time, sample RangingSample) (Reading, error) {
	if kind.PayloadVariant() != VariantRanging {
		return Reading{}, errorkinds.ErrPayloadMismatch
	}
	return Reading{kind: kind, at: at, payload: sample}, nil
}
