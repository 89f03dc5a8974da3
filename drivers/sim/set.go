package sim

import (
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/sensor"
)

// NewSet assembles a complete simulated producer set over the given clock.
// A nil clock selects the wall clock.
func NewSet(clk clock.Clock) driver.ProducerSet {
	if clk == nil {
		clk = clock.New()
	}

	set := driver.NewProducerSet()

	set.Streams[sensor.Accelerometer] = Accelerometer(clk)
	set.Streams[sensor.Gyroscope] = Gyroscope(clk)
	set.Streams[sensor.Magnetometer] = Magnetometer(clk)
	set.Streams[sensor.Barometer] = Barometer(clk)
	set.Streams[sensor.Attitude] = Attitude(clk)
	set.Streams[sensor.Location] = Location(clk)
	set.Streams[sensor.Heading] = Heading(clk)
	set.Streams[sensor.FaceBlendShapes] = Face(clk)

	set.OneShots[sensor.BiometricAuth] = BiometricMatch()
	set.OneShots[sensor.NFCScan] = TagScan(
		driver.TagRecord{TypeFormat: 0x01, Payload: []byte("\x02enhttps://example.org")},
	)

	set.Toggles[sensor.Proximity] = &Toggle{
		Clock: clk,
		Script: []driver.ProximityLevel{
			{Near: false},
			{Near: true},
			{Near: false},
		},
	}

	set.Rangers[sensor.UWBRanging] = &Ranging{
		Clock:  clk,
		Script: PeerOrbit(uuid.New(), 8),
	}

	return set
}
