//go:build linux

// Package fprintd binds the net.reactivated.Fprint daemon as a biometric
// verification backend.
package fprintd

import (
	"context"
	"errors"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/errorkinds"
)

const (
	busName      = "net.reactivated.Fprint"
	managerPath  = dbus.ObjectPath("/net/reactivated/Fprint/Manager")
	managerIface = "net.reactivated.Fprint.Manager"
	deviceIface  = "net.reactivated.Fprint.Device"

	signalVerifyStatus = deviceIface + ".VerifyStatus"
)

// Verifier holds a system bus connection to the fingerprint daemon.
type Verifier struct {
	conn   *dbus.Conn
	logger *zap.Logger
}

// Connect dials the system bus and checks that a fingerprint device is
// enrolled with the daemon.
func Connect(ctx context.Context, logger *zap.Logger) (*Verifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(ctx, "error_at", "fprintd-connect"),
			ftag.With(errorkinds.TagUnavailable),
			fmsg.With("Cannot connect to the system bus"),
		)
	}

	verifier := &Verifier{conn: conn, logger: logger}
	if _, err := verifier.defaultDevice(ctx); err != nil {
		return nil, err
	}

	return verifier, nil
}

// Producer returns the verification one-shot.
func (v *Verifier) Producer() driver.OneShotProducer {
	return &verifyOnce{verifier: v}
}

func (v *Verifier) defaultDevice(ctx context.Context) (dbus.ObjectPath, error) {
	var path dbus.ObjectPath

	call := v.conn.Object(busName, managerPath).CallWithContext(ctx, managerIface+".GetDefaultDevice", 0)
	if err := call.Store(&path); err != nil {
		return "", fault.Wrap(err,
			fctx.With(ctx, "error_at", "fprintd-device"),
			ftag.With(errorkinds.TagUnavailable),
			fmsg.With("No fingerprint device is available"),
		)
	}

	return path, nil
}

type verifyOnce struct {
	verifier *Verifier
}

// Run claims the default device and resolves a single verification round.
// Retry prompts from the daemon keep the round open until it reports a
// final status.
func (o *verifyOnce) Run(ctx context.Context) (any, error) {
	v := o.verifier

	devicePath, err := v.defaultDevice(ctx)
	if err != nil {
		return nil, err
	}
	device := v.conn.Object(busName, devicePath)

	// An empty username claims the device for the calling user.
	if err := device.CallWithContext(ctx, deviceIface+".Claim", 0, "").Err; err != nil {
		return nil, fault.Wrap(err,
			fctx.With(ctx, "error_at", "fprintd-claim"),
			ftag.With(errorkinds.TagUnavailable),
			fmsg.With("Cannot claim the fingerprint device"),
		)
	}
	defer func() {
		if err := device.Call(deviceIface+".Release", 0).Err; err != nil {
			v.logger.Debug("Release call failed", zap.Error(err))
		}
	}()

	matchOpts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(devicePath),
		dbus.WithMatchInterface(deviceIface),
		dbus.WithMatchMember("VerifyStatus"),
	}
	if err := v.conn.AddMatchSignal(matchOpts...); err != nil {
		return nil, fault.Wrap(err,
			fctx.With(ctx, "error_at", "fprintd-match"),
			ftag.With(errorkinds.TagSystemError),
			fmsg.With("Cannot subscribe to verification results"),
		)
	}
	defer v.conn.RemoveMatchSignal(matchOpts...)

	signals := make(chan *dbus.Signal, 16)
	v.conn.Signal(signals)
	defer v.conn.RemoveSignal(signals)

	if err := device.CallWithContext(ctx, deviceIface+".VerifyStart", 0, "any").Err; err != nil {
		return nil, fault.Wrap(err,
			fctx.With(ctx, "error_at", "fprintd-verify-start"),
			ftag.With(errorkinds.TagSystemError),
			fmsg.With("Cannot start fingerprint verification"),
		)
	}
	defer func() {
		if err := device.Call(deviceIface+".VerifyStop", 0).Err; err != nil {
			v.logger.Debug("VerifyStop call failed", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case signal, ok := <-signals:
			if !ok {
				return nil, fault.Wrap(errors.New("signal channel closed"),
					fctx.With(ctx, "error_at", "fprintd-signal"),
					ftag.With(errorkinds.TagSystemError),
					fmsg.With("Lost the system bus connection"),
				)
			}

			result, done, ok := verifyStatus(signal, devicePath)
			if !ok {
				continue
			}
			if !done {
				v.logger.Debug("Verification retry prompt", zap.String("result", result))
				continue
			}

			switch result {
			case "verify-match":
				return driver.AuthResult{OK: true}, nil
			case "verify-no-match":
				return driver.AuthResult{OK: false, Reason: "no-match"}, nil
			default:
				return nil, fault.Wrap(errors.New(result),
					fctx.With(ctx, "error_at", "fprintd-verify"),
					ftag.With(errorkinds.TagSystemError),
					fmsg.With("The fingerprint device aborted verification"),
				)
			}
		}
	}
}

func verifyStatus(signal *dbus.Signal, devicePath dbus.ObjectPath) (string, bool, bool) {
	if signal.Name != signalVerifyStatus || signal.Path != devicePath || len(signal.Body) < 2 {
		return "", false, false
	}

	result, ok := signal.Body[0].(string)
	if !ok {
		return "", false, false
	}

	done, ok := signal.Body[1].(bool)
	if !ok {
		return "", false, false
	}

	return result, done, true
}
