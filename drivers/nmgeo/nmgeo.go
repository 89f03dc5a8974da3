//go:build linux

// Package nmgeo derives coarse position fixes from the access points
// NetworkManager can see, resolved through a positioning web service.
package nmgeo

import (
	"context"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/Wifx/gonetworkmanager"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/errorkinds"
)

// Scanner collects wireless observations from NetworkManager and resolves
// them into position fixes.
type Scanner struct {
	nm       gonetworkmanager.NetworkManager
	resolver driver.GeoResolver
	clock    clock.Clock
	logger   *zap.Logger
}

// New connects to NetworkManager. The resolver turns observations into
// fixes and is typically an HTTPResolver.
func New(ctx context.Context, resolver driver.GeoResolver, clk clock.Clock, logger *zap.Logger) (*Scanner, error) {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	nm, err := gonetworkmanager.NewNetworkManager()
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(ctx, "error_at", "nmgeo-connect"),
			ftag.With(errorkinds.TagUnavailable),
			fmsg.With("Cannot connect to NetworkManager"),
		)
	}

	return &Scanner{nm: nm, resolver: resolver, clock: clk, logger: logger}, nil
}

// Location returns a producer streaming resolved fixes.
func (s *Scanner) Location() driver.StreamProducer {
	return &scanStream{scanner: s}
}

type scanStream struct {
	scanner *Scanner
}

// Stream scans on every tick. Resolver failures are transient, the stream
// keeps the previous cadence and retries on the next tick.
func (t *scanStream) Stream(ctx context.Context, interval time.Duration, emit func(sample any)) error {
	s := t.scanner

	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		observations, err := s.observe(ctx)
		if err != nil {
			return err
		}
		if len(observations) == 0 {
			s.logger.Debug("No access points visible")
			continue
		}

		fix, err := s.resolver.Resolve(ctx, observations)
		if err != nil {
			s.logger.Debug("Resolver round failed", zap.Error(err))
			continue
		}

		emit(fix)
	}
}

// observe lists the access points every wireless device can currently see,
// kicking off a fresh scan for the next round.
func (s *Scanner) observe(ctx context.Context) ([]driver.APObservation, error) {
	devices, err := s.nm.GetPropertyAllDevices()
	if err != nil {
		return nil, fault.Wrap(err,
			fctx.With(ctx, "error_at", "nmgeo-devices"),
			ftag.With(errorkinds.TagSystemError),
			fmsg.With("NetworkManager stopped responding"),
		)
	}

	var observations []driver.APObservation
	for _, device := range devices {
		deviceType, err := device.GetPropertyDeviceType()
		if err != nil || deviceType != gonetworkmanager.NmDeviceTypeWifi {
			continue
		}

		wireless, err := gonetworkmanager.NewDeviceWireless(device.GetPath())
		if err != nil {
			continue
		}

		if err := wireless.RequestScan(); err != nil {
			s.logger.Debug("Scan request rejected", zap.Error(err))
		}

		accessPoints, err := wireless.GetPropertyAccessPoints()
		if err != nil {
			continue
		}

		for _, accessPoint := range accessPoints {
			bssid, err := accessPoint.GetPropertyHWAddress()
			if err != nil || bssid == "" {
				continue
			}

			ssid, _ := accessPoint.GetPropertySSID()
			strength, _ := accessPoint.GetPropertyStrength()
			frequency, _ := accessPoint.GetPropertyFrequency()

			observations = append(observations, driver.APObservation{
				BSSID:     bssid,
				SSID:      ssid,
				Strength:  strength,
				Frequency: frequency,
			})
		}
	}

	return observations, nil
}
