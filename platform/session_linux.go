//go:build linux

package platform

import (
	"context"

	"go.uber.org/zap"

	"github.com/multisense-org/sensor-native/api/config"
	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/sensor"
	"github.com/multisense-org/sensor-native/drivers/fprintd"
	"github.com/multisense-org/sensor-native/drivers/nmea"
	"github.com/multisense-org/sensor-native/drivers/nmgeo"
	"github.com/multisense-org/sensor-native/drivers/sensorproxy"
	"github.com/multisense-org/sensor-native/orchestrator"
)

// Session returns a platform-specific session handler.
func Session() (sensor.Session, PlatformInfo) {
	return orchestrator.NewDeferredSession(assembleNative), NewPlatformInfo(LinuxServicesStack)
}

// assembleNative probes each platform service and wires the ones that
// answer. Services that stay silent leave their kinds absent from the set.
func assembleNative(ctx context.Context, cfg config.Configuration) driver.ProducerSet {
	set := driver.NewProducerSet()
	logger := cfg.Logger

	if proxy, err := sensorproxy.Connect(ctx, cfg.Clock, logger); err == nil {
		if proxy.HasAccelerometer() {
			set.Streams[sensor.Accelerometer] = proxy.Accelerometer()
		}
		if proxy.HasProximity() {
			set.Toggles[sensor.Proximity] = proxy.Proximity()
		}
	} else {
		logger.Debug("Sensor daemon not wired", zap.Error(err))
	}

	if verifier, err := fprintd.Connect(ctx, logger); err == nil {
		set.OneShots[sensor.BiometricAuth] = verifier.Producer()
	} else {
		logger.Debug("Fingerprint daemon not wired", zap.Error(err))
	}

	switch {
	case cfg.SerialPort != "":
		feed := nmea.NewFeed(nmea.Config{
			Path:   cfg.SerialPort,
			Clock:  cfg.Clock,
			Logger: logger,
		})
		set.Streams[sensor.Location] = feed.Location()
		set.Streams[sensor.Heading] = feed.Heading()

	case cfg.ResolverEndpoint != "":
		resolver := &nmgeo.HTTPResolver{Endpoint: cfg.ResolverEndpoint}
		if scanner, err := nmgeo.New(ctx, resolver, cfg.Clock, logger); err == nil {
			set.Streams[sensor.Location] = scanner.Location()
		} else {
			logger.Debug("NetworkManager not wired", zap.Error(err))
		}
	}

	return set
}
