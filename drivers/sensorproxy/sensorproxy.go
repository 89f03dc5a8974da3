//go:build linux

// Package sensorproxy binds the net.hadess.SensorProxy daemon as a motion
// and proximity backend. The daemon reports device orientation rather than
// raw axes, so the motion stream carries the gravity vector implied by the
// current orientation.
package sensorproxy

import (
	"context"
	"errors"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/benbjohnson/clock"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/errorkinds"
)

const (
	busName = "net.hadess.SensorProxy"
	busPath = dbus.ObjectPath("/net/hadess/SensorProxy")
	iface   = "net.hadess.SensorProxy"

	propHasAccelerometer = iface + ".HasAccelerometer"
	propOrientation      = iface + ".AccelerometerOrientation"
	propHasProximity     = iface + ".HasProximity"
	propNear             = iface + ".ProximityNear"
)

// Proxy holds a system bus connection to the sensor daemon.
type Proxy struct {
	conn   *dbus.Conn
	obj    dbus.BusObject
	clock  clock.Clock
	logger *zap.Logger
}

// Connect dials the system bus and verifies the daemon owns its well-known
// name.
func Connect(ctx context.Context, clk clock.Clock, logger *zap.Logger) (*Proxy, error) {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(ctx, "error_at", "sensorproxy-connect"),
			ftag.With(errorkinds.TagUnavailable),
			fmsg.With("Cannot connect to the system bus"),
		)
	}

	obj := conn.Object(busName, busPath)
	if _, err := obj.GetProperty(propHasAccelerometer); err != nil {
		return nil, fault.Wrap(err,
			fctx.With(ctx, "error_at", "sensorproxy-probe"),
			ftag.With(errorkinds.TagUnavailable),
			fmsg.With("The sensor daemon is not reachable"),
		)
	}

	return &Proxy{conn: conn, obj: obj, clock: clk, logger: logger}, nil
}

// HasAccelerometer reports whether the daemon exposes an accelerometer.
func (p *Proxy) HasAccelerometer() bool {
	return p.boolProperty(propHasAccelerometer)
}

// HasProximity reports whether the daemon exposes a proximity sensor.
func (p *Proxy) HasProximity() bool {
	return p.boolProperty(propHasProximity)
}

func (p *Proxy) boolProperty(name string) bool {
	variant, err := p.obj.GetProperty(name)
	if err != nil {
		return false
	}

	value, ok := variant.Value().(bool)
	return ok && value
}

// Accelerometer returns a producer streaming the gravity vector for the
// reported device orientation.
func (p *Proxy) Accelerometer() driver.StreamProducer {
	return &orientationStream{proxy: p}
}

// Proximity returns a producer watching the near and far transitions.
func (p *Proxy) Proximity() driver.ToggleProducer {
	return &proximityWatch{proxy: p}
}

type orientationStream struct {
	proxy *Proxy
}

func (s *orientationStream) Stream(ctx context.Context, interval time.Duration, emit func(sample any)) error {
	p := s.proxy

	if err := p.claim(ctx, "ClaimAccelerometer"); err != nil {
		return err
	}
	defer p.release("ReleaseAccelerometer")

	ticker := p.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		variant, err := p.obj.GetProperty(propOrientation)
		if err != nil {
			return fault.Wrap(err,
				fctx.With(ctx, "error_at", "sensorproxy-orientation"),
				ftag.With(errorkinds.TagSystemError),
				fmsg.With("The sensor daemon stopped reporting orientation"),
			)
		}

		orientation, _ := variant.Value().(string)
		emit(gravityFor(orientation))
	}
}

type proximityWatch struct {
	proxy *Proxy
}

func (w *proximityWatch) Watch(ctx context.Context, emit func(level driver.ProximityLevel)) error {
	p := w.proxy

	if err := p.claim(ctx, "ClaimProximity"); err != nil {
		return err
	}
	defer p.release("ReleaseProximity")

	matchOpts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(busPath),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	}
	if err := p.conn.AddMatchSignal(matchOpts...); err != nil {
		return fault.Wrap(err,
			fctx.With(ctx, "error_at", "sensorproxy-match"),
			ftag.With(errorkinds.TagSystemError),
			fmsg.With("Cannot subscribe to proximity changes"),
		)
	}
	defer p.conn.RemoveMatchSignal(matchOpts...)

	signals := make(chan *dbus.Signal, 16)
	p.conn.Signal(signals)
	defer p.conn.RemoveSignal(signals)

	if variant, err := p.obj.GetProperty(propNear); err == nil {
		near, _ := variant.Value().(bool)
		emit(driver.ProximityLevel{Near: near})
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case signal, ok := <-signals:
			if !ok {
				return fault.Wrap(errors.New("signal channel closed"),
					fctx.With(ctx, "error_at", "sensorproxy-signal"),
					ftag.With(errorkinds.TagSystemError),
					fmsg.With("Lost the system bus connection"),
				)
			}

			near, ok := proximityFromSignal(signal)
			if !ok {
				continue
			}
			emit(driver.ProximityLevel{Near: near})
		}
	}
}

func (p *Proxy) claim(ctx context.Context, method string) error {
	if err := p.obj.CallWithContext(ctx, iface+"."+method, 0).Err; err != nil {
		return fault.Wrap(err,
			fctx.With(ctx, "error_at", "sensorproxy-claim", "method", method),
			ftag.With(errorkinds.TagUnavailable),
			fmsg.With("Cannot claim the platform sensor"),
		)
	}

	return nil
}

func (p *Proxy) release(method string) {
	if err := p.obj.Call(iface+"."+method, 0).Err; err != nil {
		p.logger.Debug("Release call failed", zap.String("method", method), zap.Error(err))
	}
}

// proximityFromSignal extracts the ProximityNear value from a
// PropertiesChanged signal, if the signal carries one.
func proximityFromSignal(signal *dbus.Signal) (bool, bool) {
	if signal.Path != busPath || len(signal.Body) < 2 {
		return false, false
	}

	if name, ok := signal.Body[0].(string); !ok || name != iface {
		return false, false
	}

	changed, ok := signal.Body[1].(map[string]dbus.Variant)
	if !ok {
		return false, false
	}

	variant, ok := changed["ProximityNear"]
	if !ok {
		return false, false
	}

	near, ok := variant.Value().(bool)
	return near, ok
}

const gravity = 9.81

// gravityFor maps a daemon orientation string onto the gravity vector in
// the device frame, x right and y toward the top edge. Unknown and
// undefined orientations read as a device lying flat.
func gravityFor(orientation string) driver.MotionSample {
	switch orientation {
	case "normal":
		return driver.MotionSample{Y: -gravity}
	case "bottom-up":
		return driver.MotionSample{Y: gravity}
	case "left-up":
		return driver.MotionSample{X: -gravity}
	case "right-up":
		return driver.MotionSample{X: gravity}
	default:
		return driver.MotionSample{Z: -gravity}
	}
}
