package normalize

import (
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/errorkinds"
	"github.com/multisense-org/sensor-native/api/sensor"
)

var at = time.Unix(1700000000, 0)

func TestReading(t *testing.T) {
	t.Parallel()

	t.Run("motion sample", func(t *testing.T) {
		t.Parallel()

		reading, err := Reading(sensor.Accelerometer, at, driver.MotionSample{X: 0.1, Y: -0.2, Z: 9.7})
		require.NoError(t, err)

		assert.Equal(t, sensor.Accelerometer, reading.Kind())
		assert.Equal(t, at, reading.At())

		v, ok := reading.Vector()
		require.True(t, ok)
		assert.Equal(t, r3.Vector{X: 0.1, Y: -0.2, Z: 9.7}, v)
	})

	t.Run("attitude sample maps to roll pitch yaw axes", func(t *testing.T) {
		t.Parallel()

		reading, err := Reading(sensor.Attitude, at, driver.AttitudeSample{Roll: 0.3, Pitch: -0.1, Yaw: 1.5})
		require.NoError(t, err)

		v, ok := reading.Vector()
		require.True(t, ok)
		assert.Equal(t, r3.Vector{X: 0.3, Y: -0.1, Z: 1.5}, v)
	})

	t.Run("pressure sample", func(t *testing.T) {
		t.Parallel()

		reading, err := Reading(sensor.Barometer, at, driver.PressureSample{HPa: 1008.4})
		require.NoError(t, err)

		scalar, ok := reading.Scalar()
		require.True(t, ok)
		assert.Equal(t, 1008.4, scalar)
	})

	t.Run("face sample", func(t *testing.T) {
		t.Parallel()

		reading, err := Reading(sensor.FaceBlendShapes, at, driver.FaceSample{
			Shapes: map[string]float64{"jawOpen": 0.25},
		})
		require.NoError(t, err)

		shapes, ok := reading.BlendShapes()
		require.True(t, ok)
		assert.Equal(t, sensor.BlendShapeMap{"jawOpen": 0.25}, shapes)
	})

	t.Run("auth result", func(t *testing.T) {
		t.Parallel()

		reading, err := Reading(sensor.BiometricAuth, at, driver.AuthResult{OK: false, Reason: "no-match"})
		require.NoError(t, err)

		outcome, ok := reading.Auth()
		require.True(t, ok)
		assert.False(t, outcome.Success)
		assert.Equal(t, "no-match", outcome.FailureReason)
	})

	t.Run("proximity levels map to binary scalars", func(t *testing.T) {
		t.Parallel()

		near, err := Reading(sensor.Proximity, at, driver.ProximityLevel{Near: true})
		require.NoError(t, err)
		far, err := Reading(sensor.Proximity, at, driver.ProximityLevel{Near: false})
		require.NoError(t, err)

		nearScalar, _ := near.Scalar()
		farScalar, _ := far.Scalar()
		assert.Equal(t, 1.0, nearScalar)
		assert.Equal(t, 0.0, farScalar)
	})

	t.Run("unknown sample type", func(t *testing.T) {
		t.Parallel()

		_, err := Reading(sensor.Accelerometer, at, struct{ V int }{1})
		assert.ErrorIs(t, err, errorkinds.ErrPayloadMismatch)
	})

	t.Run("sample for the wrong kind", func(t *testing.T) {
		t.Parallel()

		_, err := Reading(sensor.Accelerometer, at, driver.PressureSample{HPa: 1013.25})
		assert.ErrorIs(t, err, errorkinds.ErrPayloadMismatch)
	})
}

func TestGeo(t *testing.T) {
	t.Parallel()

	t.Run("full fix passes through", func(t *testing.T) {
		t.Parallel()

		fix := Geo(driver.GeoSample{
			Latitude:           52.52,
			Longitude:          13.405,
			Altitude:           34.0,
			HorizontalAccuracy: 5.0,
			VerticalAccuracy:   8.0,
			Speed:              1.4,
			Course:             270.0,
			Floor:              3,
			HasFloor:           true,
		})

		assert.Equal(t, 52.52, fix.Latitude)
		assert.Equal(t, 13.405, fix.Longitude)
		assert.Equal(t, 5.0, fix.HorizontalAccuracy)
		assert.Equal(t, 1.4, fix.Speed)
		assert.Equal(t, 270.0, fix.Course)
		assert.Equal(t, int32(3), fix.Floor)
	})

	t.Run("unreported fields clamp to sentinels", func(t *testing.T) {
		t.Parallel()

		fix := Geo(driver.GeoSample{
			Latitude:           52.52,
			Longitude:          13.405,
			HorizontalAccuracy: -3,
			VerticalAccuracy:   -1,
			Speed:              -0.5,
			Course:             -90,
		})

		assert.Equal(t, sensor.AccuracyUnknown, fix.HorizontalAccuracy)
		assert.Equal(t, sensor.AccuracyUnknown, fix.VerticalAccuracy)
		assert.Equal(t, sensor.SpeedUnknown, fix.Speed)
		assert.Equal(t, sensor.CourseUnknown, fix.Course)
		assert.Equal(t, sensor.FloorUnknown, fix.Floor)
	})

	t.Run("floor zero is a valid floor", func(t *testing.T) {
		t.Parallel()

		fix := Geo(driver.GeoSample{Floor: 0, HasFloor: true})
		assert.Equal(t, int32(0), fix.Floor)
	})
}

func TestHeading(t *testing.T) {
	t.Parallel()

	fix := Heading(driver.HeadingSample{Magnetic: 180.5, True: -1, Accuracy: -2})
	assert.Equal(t, 180.5, fix.Magnetic)
	assert.Equal(t, sensor.CourseUnknown, fix.True)
	assert.Equal(t, sensor.AccuracyUnknown, fix.Accuracy)

	full := Heading(driver.HeadingSample{Magnetic: 180.5, True: 183.1, Accuracy: 2.5})
	assert.Equal(t, 183.1, full.True)
	assert.Equal(t, 2.5, full.Accuracy)
}

func TestTag(t *testing.T) {
	t.Parallel()

	raw := driver.TagPayload{Records: []driver.TagRecord{
		{TypeFormat: 0x01, Payload: []byte{0x02, 'e', 'n'}},
		{TypeFormat: 0x02, Payload: []byte{0x00}},
	}}

	payload := Tag(raw)
	if diff := cmp.Diff([]sensor.NFCRecord{
		{TypeFormat: 0x01, Payload: []byte{0x02, 'e', 'n'}},
		{TypeFormat: 0x02, Payload: []byte{0x00}},
	}, payload.Records); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	raw.Records[0].Payload[0] = 0xff
	assert.Equal(t, byte(0x02), payload.Records[0].Payload[0])
}

func TestRanging(t *testing.T) {
	t.Parallel()

	peer := uuid.New()

	t.Run("measured sample passes through", func(t *testing.T) {
		t.Parallel()

		sample := Ranging(driver.RangingEvent{
			Type:         driver.RangingUpdate,
			PeerID:       peer,
			Distance:     2.5,
			Direction:    r3.Vector{X: 0.6, Y: 0.8},
			HasDirection: true,
		})

		assert.Equal(t, peer, sample.PeerID)
		assert.Equal(t, 2.5, sample.Distance)
		assert.True(t, sample.HasDirection)
		assert.Equal(t, r3.Vector{X: 0.6, Y: 0.8}, sample.Direction)
	})

	t.Run("unmeasured fields clamp", func(t *testing.T) {
		t.Parallel()

		sample := Ranging(driver.RangingEvent{
			Type:      driver.RangingUpdate,
			PeerID:    peer,
			Distance:  -4,
			Direction: r3.Vector{X: 1},
		})

		assert.Equal(t, sensor.DistanceUnknown, sample.Distance)
		assert.False(t, sample.HasDirection)
		assert.Equal(t, r3.Vector{}, sample.Direction)
	})
}
