package platform

import "runtime"

type SensorStack string

const (
	LinuxServicesStack SensorStack = "Linux services (DBus)"
	SimulatedStack     SensorStack = "Simulated"
)

// PlatformInfo describes platform-specific information.
type PlatformInfo struct {
	OS    string      `json:"os,omitempty"`
	Stack SensorStack `json:"sensor_stack,omitempty"`
}

// NewPlatformInfo returns a new PlatformInfo.
func NewPlatformInfo(stack SensorStack) PlatformInfo {
	return PlatformInfo{
		OS:    runtime.GOOS + " (" + runtime.GOARCH + ")",
		Stack: stack,
	}
}

// String converts a SensorStack to a string.
func (s SensorStack) String() string {
	return string(s)
}
