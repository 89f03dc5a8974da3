package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multisense-org/sensor-native/api/capability"
	"github.com/multisense-org/sensor-native/api/config"
	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/errorkinds"
	"github.com/multisense-org/sensor-native/api/helpers/discovery"
	"github.com/multisense-org/sensor-native/api/sensor"
	"github.com/multisense-org/sensor-native/drivers/sim"
)

func testConfig(clk clock.Clock, token *discovery.Token) config.Configuration {
	cfg := config.New()
	cfg.SamplingInterval = testInterval
	cfg.Clock = clk
	cfg.DiscoveryToken = token

	return cfg
}

func TestSessionStartStop(t *testing.T) {
	clk := clock.NewMock()
	session := NewSession(sim.NewSet(clk))

	features, err := session.Start(nil, testConfig(clk, discovery.NewToken(discovery.RoleInitiator)))
	require.NoError(t, err)
	assert.True(t, features.Supports(capability.FeatureAll))
	assert.Empty(t, features.Errors)

	_, err = session.Start(nil, testConfig(clk, nil))
	require.ErrorIs(t, err, errorkinds.ErrSessionExists)

	require.NoError(t, session.Stop())
	require.ErrorIs(t, session.Stop(), errorkinds.ErrSessionNotStarted)
}

func TestSessionGuards(t *testing.T) {
	clk := clock.NewMock()
	session := NewSession(sim.NewSet(clk))

	err := session.StartSensors(context.Background(), sensor.Accelerometer)
	require.ErrorIs(t, err, errorkinds.ErrSessionNotStarted)
	require.ErrorIs(t, session.StopSensors(sensor.Accelerometer), errorkinds.ErrSessionNotStarted)

	_, ok := session.Latest(sensor.Accelerometer)
	assert.False(t, ok)
	assert.Equal(t, sensor.StateIdle, session.StateOf(sensor.Accelerometer))
	assert.Equal(t, sensor.AuthorizationUnknown, session.Authorization(sensor.DomainLocation))
	assert.Nil(t, session.Peers())
	assert.False(t, session.Describe(sensor.Accelerometer).Available)
}

func TestSessionRouting(t *testing.T) {
	clk := clock.NewMock()
	session := NewSession(sim.NewSet(clk))

	_, err := session.Start(nil, testConfig(clk, nil))
	require.NoError(t, err)
	defer func() { _ = session.Stop() }()

	require.NoError(t, session.StartSensors(context.Background(),
		sensor.Accelerometer,
		sensor.Proximity,
		sensor.BiometricAuth,
	))

	// Continuous kinds stream through the hub.
	assert.Equal(t, sensor.StateActive, session.StateOf(sensor.Accelerometer))
	tickUntil(t, clk, func() bool {
		_, ok := session.Latest(sensor.Accelerometer)
		return ok
	})

	// The toggle session delivers its armed level at once.
	assert.Equal(t, sensor.StateActive, session.StateOf(sensor.Proximity))
	require.Eventually(t, func() bool {
		_, ok := session.Latest(sensor.Proximity)
		return ok
	}, 2*time.Second, time.Millisecond)

	// The single shot resolves and rests back at idle.
	require.Eventually(t, func() bool {
		return session.StateOf(sensor.BiometricAuth) == sensor.StateIdle
	}, 2*time.Second, time.Millisecond)

	latest, ok := session.Latest(sensor.BiometricAuth)
	require.True(t, ok)
	outcome, ok := latest.Auth()
	require.True(t, ok)
	assert.True(t, outcome.Success)

	require.NoError(t, session.StopSensors(sensor.Accelerometer, sensor.Proximity))
	assert.Equal(t, sensor.StateIdle, session.StateOf(sensor.Accelerometer))
	assert.Equal(t, sensor.StateIdle, session.StateOf(sensor.Proximity))

	// Snapshots survive a sensor stop but not a session stop.
	_, ok = session.Latest(sensor.Accelerometer)
	assert.True(t, ok)

	require.NoError(t, session.Stop())

	_, err = session.Start(nil, testConfig(clk, nil))
	require.NoError(t, err)
	_, ok = session.Latest(sensor.Accelerometer)
	assert.False(t, ok)
}

func TestSessionUnknownKinds(t *testing.T) {
	clk := clock.NewMock()
	session := NewSession(sim.NewSet(clk))

	_, err := session.Start(nil, testConfig(clk, nil))
	require.NoError(t, err)
	defer func() { _ = session.Stop() }()

	err = session.StartSensors(context.Background(), sensor.KindInvalid, sensor.Accelerometer)
	require.ErrorIs(t, err, errorkinds.ErrUnknownKind)

	// The valid kind in the same call still starts.
	assert.Equal(t, sensor.StateActive, session.StateOf(sensor.Accelerometer))

	require.NoError(t, session.StopSensors(sensor.KindInvalid, sensor.Accelerometer))
	assert.Equal(t, sensor.StateIdle, session.StateOf(sensor.Accelerometer))
}

func TestSessionConflict(t *testing.T) {
	clk := clock.NewMock()
	session := NewSession(sim.NewSet(clk))

	_, err := session.Start(nil, testConfig(clk, nil))
	require.NoError(t, err)
	defer func() { _ = session.Stop() }()

	require.NoError(t, session.StartSensors(context.Background(), sensor.Proximity))
	require.ErrorIs(t,
		session.StartSensors(context.Background(), sensor.Proximity),
		errorkinds.ErrSessionConflict,
	)
}

func TestSessionDescribeAndAuthorization(t *testing.T) {
	clk := clock.NewMock()
	session := NewSession(sim.NewSet(clk))

	_, err := session.Start(nil, testConfig(clk, nil))
	require.NoError(t, err)
	defer func() { _ = session.Stop() }()

	descriptor := session.Describe(sensor.Location)
	assert.True(t, descriptor.Available)
	assert.Equal(t, sensor.Continuous, descriptor.Class)
	assert.Equal(t, sensor.DomainLocation, descriptor.Domain)

	// Ranging needs a discovery token on top of its driver.
	assert.False(t, session.Describe(sensor.UWBRanging).Available)

	assert.Equal(t, sensor.AuthorizationUnknown, session.Authorization(sensor.DomainLocation))

	require.NoError(t, session.StartSensors(context.Background(), sensor.Location))
	assert.Equal(t, sensor.AuthorizationGrantedAlways, session.Authorization(sensor.DomainLocation))

	require.NoError(t, session.StopSensors(sensor.Location))
}

func TestSessionDeferredAssembly(t *testing.T) {
	clk := clock.NewMock()

	var mu sync.Mutex
	var intervals []time.Duration

	session := NewDeferredSession(func(_ context.Context, cfg config.Configuration) driver.ProducerSet {
		mu.Lock()
		intervals = append(intervals, cfg.SamplingInterval)
		mu.Unlock()

		set := driver.NewProducerSet()
		set.Streams[sensor.Barometer] = sim.Barometer(cfg.Clock)

		return set
	})

	cfg := testConfig(clk, nil)
	cfg.SamplingInterval = 0

	features, err := session.Start(nil, cfg)
	require.NoError(t, err)

	// Assembly runs after the configuration is defaulted.
	mu.Lock()
	require.Len(t, intervals, 1)
	assert.Equal(t, config.DefaultSamplingInterval, intervals[0])
	mu.Unlock()

	assert.True(t, features.Supports(capability.FeatureBarometer))
	assert.False(t, features.Supports(capability.FeatureAccelerometer))
	assert.True(t, features.Errors.Exists(capability.FeatureAccelerometer))

	require.NoError(t, session.Stop())

	// Every restart assembles a fresh producer set.
	_, err = session.Start(nil, cfg)
	require.NoError(t, err)

	mu.Lock()
	assert.Len(t, intervals, 2)
	mu.Unlock()

	require.NoError(t, session.Stop())
}
