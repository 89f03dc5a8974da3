// Package normalize converts raw driver samples into normalized sensor
// readings, substituting the documented sentinel values for fields a source
// does not report.
package normalize

import (
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/golang/geo/r3"

	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/errorkinds"
	"github.com/multisense-org/sensor-native/api/sensor"
)

// Reading converts one raw driver sample into a normalized reading for the
// provided kind, stamped with the provided time.
func Reading(kind sensor.Kind, at time.Time, sample any) (sensor.Reading, error) {
	switch s := sample.(type) {
	case driver.MotionSample:
		return sensor.NewVectorReading(kind, at, s.Vector())

	case driver.AttitudeSample:
		return sensor.NewVectorReading(kind, at, r3.Vector{X: s.Roll, Y: s.Pitch, Z: s.Yaw})

	case driver.PressureSample:
		return sensor.NewScalarReading(kind, at, s.HPa)

	case driver.GeoSample:
		return sensor.NewGeoReading(kind, at, Geo(s))

	case driver.HeadingSample:
		return sensor.NewHeadingReading(kind, at, Heading(s))

	case driver.FaceSample:
		return sensor.NewBlendShapeReading(kind, at, sensor.BlendShapeMap(s.Shapes))

	case driver.AuthResult:
		return sensor.NewAuthReading(kind, at, sensor.AuthOutcome{
			Success:       s.OK,
			FailureReason: s.Reason,
		})

	case driver.TagPayload:
		return sensor.NewNFCReading(kind, at, Tag(s))

	case driver.ProximityLevel:
		return sensor.NewScalarReading(kind, at, proximityScalar(s))

	case driver.RangingEvent:
		return sensor.NewRangingReading(kind, at, Ranging(s))
	}

	return sensor.Reading{}, fault.Wrap(errorkinds.ErrPayloadMismatch,
		ftag.With(errorkinds.TagSystemError),
		fmsg.With("Cannot normalize an unknown raw sample type"),
	)
}

// Geo converts a raw geographic fix, clamping unreported accuracy, speed and
// course values to their sentinels.
func Geo(s driver.GeoSample) sensor.GeoFix {
	fix := sensor.GeoFix{
		Latitude:           s.Latitude,
		Longitude:          s.Longitude,
		Altitude:           s.Altitude,
		HorizontalAccuracy: s.HorizontalAccuracy,
		VerticalAccuracy:   s.VerticalAccuracy,
		Speed:              s.Speed,
		Course:             s.Course,
		Floor:              sensor.FloorUnknown,
	}

	if fix.HorizontalAccuracy < 0 {
		fix.HorizontalAccuracy = sensor.AccuracyUnknown
	}
	if fix.VerticalAccuracy < 0 {
		fix.VerticalAccuracy = sensor.AccuracyUnknown
	}
	if fix.Speed < 0 {
		fix.Speed = sensor.SpeedUnknown
	}
	if fix.Course < 0 {
		fix.Course = sensor.CourseUnknown
	}
	if s.HasFloor {
		fix.Floor = s.Floor
	}

	return fix
}

// Heading converts a raw compass sample, clamping unreported values to
// their sentinels.
func Heading(s driver.HeadingSample) sensor.HeadingFix {
	fix := sensor.HeadingFix{
		Magnetic: s.Magnetic,
		True:     s.True,
		Accuracy: s.Accuracy,
	}

	if fix.True < 0 {
		fix.True = sensor.CourseUnknown
	}
	if fix.Accuracy < 0 {
		fix.Accuracy = sensor.AccuracyUnknown
	}

	return fix
}

// Tag converts the raw contents of a tag scan, preserving record order.
func Tag(s driver.TagPayload) sensor.NFCPayload {
	payload := sensor.NFCPayload{
		Records: make([]sensor.NFCRecord, 0, len(s.Records)),
	}

	for _, record := range s.Records {
		payload.Records = append(payload.Records, sensor.NFCRecord{
			TypeFormat: record.TypeFormat,
			Payload:    append([]byte(nil), record.Payload...),
		})
	}

	return payload
}

// Ranging converts a raw peer measurement, clamping an unreported distance
// to its sentinel and zeroing a direction the session could not compute.
func Ranging(ev driver.RangingEvent) sensor.RangingSample {
	sample := sensor.RangingSample{
		PeerID:       ev.PeerID,
		Distance:     ev.Distance,
		HasDirection: ev.HasDirection,
	}

	if sample.Distance < 0 {
		sample.Distance = sensor.DistanceUnknown
	}
	if ev.HasDirection {
		sample.Direction = ev.Direction
	}

	return sample
}

func proximityScalar(level driver.ProximityLevel) float64 {
	if level.Near {
		return 1
	}
	return 0
}
