// Package sim provides deterministic, scriptable producers for every sensor
// kind. The simulated stack backs platforms without native sensor support,
// and the test suite.
package sim

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/multisense-org/sensor-native/api/driver"
)

// Stream describes a simulated continuous producer. Samples come from a
// step-indexed generator and are paced by the clock at the stream interval.
type Stream struct {
	// Clock paces the stream. A nil clock selects the wall clock.
	Clock clock.Clock

	// Next generates the sample for one step.
	Next func(step int) any

	// FailAfter ends the stream with Err once this many samples have been
	// emitted. Zero disables the fault.
	FailAfter int
	Err       error
}

// Stream delivers generated samples until ctx is cancelled or the scripted
// fault fires.
func (s *Stream) Stream(ctx context.Context, interval time.Duration, emit func(sample any)) error {
	clk := s.Clock
	if clk == nil {
		clk = clock.New()
	}

	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for step := 0; ; step++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if s.FailAfter > 0 && step >= s.FailAfter {
			if s.Err != nil {
				return s.Err
			}
			return errors.New("simulated stream fault")
		}

		emit(s.Next(step))
	}
}

// Accelerometer returns a stream tracing gravity plus a gentle sway, in
// meters per second squared.
func Accelerometer(clk clock.Clock) *Stream {
	return &Stream{Clock: clk, Next: func(step int) any {
		t := float64(step) / 30
		return driver.MotionSample{
			X: 0.02 * math.Sin(2*math.Pi*0.2*t),
			Y: 0.02 * math.Cos(2*math.Pi*0.2*t),
			Z: -9.81 + 0.005*math.Sin(2*math.Pi*1.3*t),
		}
	}}
}

// Gyroscope returns a stream tracing slow rotation rates in radians per
// second.
func Gyroscope(clk clock.Clock) *Stream {
	return &Stream{Clock: clk, Next: func(step int) any {
		t := float64(step) / 30
		return driver.MotionSample{
			X: 0.01 * math.Sin(2*math.Pi*0.5*t),
			Y: 0.008 * math.Cos(2*math.Pi*0.3*t),
			Z: 0.002 * math.Sin(2*math.Pi*0.1*t),
		}
	}}
}

// Magnetometer returns a stream tracing the geomagnetic field in
// microtesla, with a slight wobble.
func Magnetometer(clk clock.Clock) *Stream {
	return &Stream{Clock: clk, Next: func(step int) any {
		t := float64(step) / 30
		return driver.MotionSample{
			X: 22.4 + 0.3*math.Sin(2*math.Pi*0.07*t),
			Y: 5.1 + 0.2*math.Cos(2*math.Pi*0.07*t),
			Z: -42.9 + 0.1*math.Sin(2*math.Pi*0.11*t),
		}
	}}
}

// Barometer returns a stream tracing sea-level pressure with a slow drift,
// in hectopascal.
func Barometer(clk clock.Clock) *Stream {
	return &Stream{Clock: clk, Next: func(step int) any {
		t := float64(step) / 30
		return driver.PressureSample{
			HPa: 1013.25 + 0.8*math.Sin(2*math.Pi*0.01*t),
		}
	}}
}

// Attitude returns a stream tracing a slow precession of the device
// orientation, in radians.
func Attitude(clk clock.Clock) *Stream {
	return &Stream{Clock: clk, Next: func(step int) any {
		t := float64(step) / 30
		return driver.AttitudeSample{
			Roll:  0.15 * math.Sin(2*math.Pi*0.05*t),
			Pitch: 0.10 * math.Cos(2*math.Pi*0.05*t),
			Yaw:   math.Mod(0.02*t, 2*math.Pi),
		}
	}}
}

// Location returns a stream tracing a slow walk around a fixed coordinate.
func Location(clk clock.Clock) *Stream {
	const lat, lon = 52.5200, 13.4050

	return &Stream{Clock: clk, Next: func(step int) any {
		t := float64(step) / 30
		return driver.GeoSample{
			Latitude:           lat + 0.0001*math.Sin(2*math.Pi*0.02*t),
			Longitude:          lon + 0.0001*math.Cos(2*math.Pi*0.02*t),
			Altitude:           34.0 + 0.5*math.Sin(2*math.Pi*0.005*t),
			HorizontalAccuracy: 3.5,
			VerticalAccuracy:   5.0,
			Speed:              1.4,
			Course:             math.Mod(36*t, 360),
		}
	}}
}

// Heading returns a stream tracing a slow clockwise rotation, in degrees.
func Heading(clk clock.Clock) *Stream {
	return &Stream{Clock: clk, Next: func(step int) any {
		t := float64(step) / 30
		heading := math.Mod(12*t, 360)
		return driver.HeadingSample{
			Magnetic: heading,
			True:     math.Mod(heading+3.2, 360),
			Accuracy: 2.0,
		}
	}}
}

// Face returns a stream tracing a periodic blink and jaw motion.
func Face(clk clock.Clock) *Stream {
	return &Stream{Clock: clk, Next: func(step int) any {
		t := float64(step) / 30
		blink := math.Max(0, math.Sin(2*math.Pi*0.4*t))
		return driver.FaceSample{Shapes: map[string]float64{
			"eyeBlinkLeft":  blink,
			"eyeBlinkRight": blink,
			"jawOpen":       0.3 * math.Max(0, math.Sin(2*math.Pi*0.15*t)),
			"mouthSmile":    0.2,
		}}
	}}
}
