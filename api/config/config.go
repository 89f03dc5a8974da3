package config

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/multisense-org/sensor-native/api/helpers/discovery"
)

const (
	// The default timeout duration for authorization prompts.
	DefaultAuthTimeout = 10 * time.Second

	// The default delivery interval for continuous sensor streams.
	DefaultSamplingInterval = 33 * time.Millisecond
)

// Configuration describes a general configuration.
type Configuration struct {
	// SamplingInterval holds the delivery interval for continuous
	// sensor streams.
	SamplingInterval time.Duration

	// AuthTimeout holds the timeout for authorization prompts.
	AuthTimeout time.Duration

	// SerialPort holds the serial device path of an attached NMEA
	// receiver. Specific to the Linux native stack.
	SerialPort string

	// ResolverEndpoint holds the geolocate service URL used to resolve
	// network observations into position fixes when no receiver is
	// attached. Specific to the Linux native stack.
	ResolverEndpoint string

	// DiscoveryToken holds the exchanged peer discovery token that arms
	// ranging sessions. Ranging remains unavailable while it is nil.
	DiscoveryToken *discovery.Token

	// Logger receives structured session logs.
	Logger *zap.Logger

	// Clock drives stream interval timers.
	Clock clock.Clock
}

// New returns a new configuration with the default timeouts and intervals.
func New() Configuration {
	return Configuration{
		SamplingInterval: DefaultSamplingInterval,
		AuthTimeout:      DefaultAuthTimeout,
	}
}
