//go:build !linux

package platform

import (
	"context"

	"github.com/multisense-org/sensor-native/api/config"
	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/sensor"
	"github.com/multisense-org/sensor-native/drivers/sim"
	"github.com/multisense-org/sensor-native/orchestrator"
)

// Session returns a platform-specific session handler.
func Session() (sensor.Session, PlatformInfo) {
	return orchestrator.NewDeferredSession(assembleSimulated), NewPlatformInfo(SimulatedStack)
}

func assembleSimulated(_ context.Context, cfg config.Configuration) driver.ProducerSet {
	return sim.NewSet(cfg.Clock)
}
