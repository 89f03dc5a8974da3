// Package orchestrator implements the sensor session facade over a platform
// producer set.
//
// The facade routes continuous kinds to a streaming hub and every other
// lifecycle class to the session controller, gates session starts through
// one cached authorization decision per permission domain, and publishes
// readings and state changes on the event stream.
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/multisense-org/sensor-native/api/capability"
	"github.com/multisense-org/sensor-native/api/config"
	"github.com/multisense-org/sensor-native/api/driver"
	"github.com/multisense-org/sensor-native/api/errorkinds"
	"github.com/multisense-org/sensor-native/api/sensor"
)

// Orchestrator is the sensor session entry point consumed by presentation
// code. It implements sensor.Session over an assembled producer set.
type Orchestrator struct {
	set      driver.ProducerSet
	assemble AssembleFunc

	registry   *capabilityRegistry
	gate       *permissionGate
	hub        *streamingHub
	controller *sessionController

	logger *zap.Logger

	started atomic.Bool
	mu      sync.Mutex
}

// AssembleFunc builds a producer set once the session configuration is
// known. Platform backends probe their daemons here, so an unreachable
// backend surfaces as an absent feature rather than a failed start.
type AssembleFunc func(ctx context.Context, cfg config.Configuration) driver.ProducerSet

// NewSession returns a stopped session over the provided producer set.
func NewSession(set driver.ProducerSet) *Orchestrator {
	return &Orchestrator{
		set:    set,
		logger: zap.NewNop(),
	}
}

// NewDeferredSession returns a stopped session whose producer set is
// assembled during Start. Each restart assembles a fresh set.
func NewDeferredSession(assemble AssembleFunc) *Orchestrator {
	return &Orchestrator{
		assemble: assemble,
		logger:   zap.NewNop(),
	}
}

// Start attempts to initialize a session with the platform's sensor stacks.
// Upon complete initialization, it returns the capabilities of the
// assembled stack, with absent features recorded per kind.
func (o *Orchestrator) Start(authHandler sensor.Authorizer, cfg config.Configuration) (capability.Set, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started.Load() {
		return capability.NilSet(),
			fault.Wrap(errorkinds.ErrSessionExists,
				fctx.With(context.Background(), "error_at", "start-session"),
				ftag.With(errorkinds.TagSessionConflict),
				fmsg.With("The session has already been started"),
			)
	}

	if authHandler == nil {
		authHandler = sensor.DefaultAuthorizer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.SamplingInterval <= 0 {
		cfg.SamplingInterval = config.DefaultSamplingInterval
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = config.DefaultAuthTimeout
	}

	if o.assemble != nil {
		o.set = o.assemble(context.Background(), cfg)
	}

	o.logger = cfg.Logger
	o.registry = newCapabilityRegistry(o.set, cfg.DiscoveryToken)
	o.gate = newPermissionGate(authHandler, cfg.AuthTimeout, cfg.Logger)
	o.hub = newStreamingHub(o.set, o.gate, cfg.SamplingInterval, cfg.Clock, cfg.Logger)
	o.controller = newSessionController(o.set, o.gate, cfg.DiscoveryToken, cfg.Clock, cfg.Logger)
	o.started.Store(true)

	features := o.registry.FeatureSet()
	o.logger.Info("sensor session started",
		zap.String("supported", features.Supported.String()),
	)

	return features, nil
}

// Stop attempts to stop the session, every running stream and every live
// per-kind session. Retained snapshots and tracked peers are dropped.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started.Load() {
		return fault.Wrap(errorkinds.ErrSessionNotStarted,
			fctx.With(context.Background(), "error_at", "stop-session"),
			ftag.With(errorkinds.TagSystemError),
			fmsg.With("The session has not been started"),
		)
	}

	o.started.Store(false)
	o.hub.StopAll()
	o.controller.StopAll()
	o.hub.Forget()
	o.controller.Forget()
	o.logger.Info("sensor session stopped")

	return nil
}

// StartSensors begins sensor sessions for the provided kinds. Kinds that
// already hold a running session are left untouched; a non-idle
// single-shot, toggle or ranging kind contributes ErrSessionConflict.
func (o *Orchestrator) StartSensors(ctx context.Context, kinds ...sensor.Kind) error {
	if !o.started.Load() {
		return fault.Wrap(errorkinds.ErrSessionNotStarted,
			fctx.With(ctx, "error_at", "start-sensors"),
			ftag.With(errorkinds.TagSystemError),
			fmsg.With("The session has not been started"),
		)
	}

	var errs error
	var continuous []sensor.Kind

	for _, kind := range kinds {
		if !kind.Valid() {
			errs = multierr.Append(errs,
				fault.Wrap(errorkinds.ErrUnknownKind,
					fctx.With(ctx, "kind", kind.String()),
					ftag.With(errorkinds.TagSystemError),
					fmsg.With("The kind is not a known sensor kind"),
				),
			)
			continue
		}

		if kind.Class() == sensor.Continuous {
			continuous = append(continuous, kind)
			continue
		}

		errs = multierr.Append(errs, o.controller.Start(ctx, kind))
	}

	if len(continuous) > 0 {
		errs = multierr.Append(errs, o.hub.Start(ctx, continuous...))
	}

	return errs
}

// StopSensors requests an orderly stop of the provided kinds. Stopping an
// idle or unknown kind is a no-op.
func (o *Orchestrator) StopSensors(kinds ...sensor.Kind) error {
	if !o.started.Load() {
		return fault.Wrap(errorkinds.ErrSessionNotStarted,
			fctx.With(context.Background(), "error_at", "stop-sensors"),
			ftag.With(errorkinds.TagSystemError),
			fmsg.With("The session has not been started"),
		)
	}

	for _, kind := range kinds {
		if !kind.Valid() {
			continue
		}

		if kind.Class() == sensor.Continuous {
			o.hub.Stop(kind)
			continue
		}

		o.controller.Stop(kind)
	}

	return nil
}

// Describe returns the descriptor of a sensor kind, including its
// availability on the running platform stack.
func (o *Orchestrator) Describe(kind sensor.Kind) sensor.Descriptor {
	if !o.started.Load() {
		return kind.Describe()
	}

	return o.registry.Describe(kind)
}

// Latest returns the most recent normalized reading observed for a kind.
func (o *Orchestrator) Latest(kind sensor.Kind) (sensor.Reading, bool) {
	if !o.started.Load() || !kind.Valid() {
		return sensor.Reading{}, false
	}

	if kind.Class() == sensor.Continuous {
		return o.hub.Snapshot(kind)
	}

	return o.controller.Latest(kind)
}

// StateOf returns the lifecycle state of a kind. Continuous kinds report
// Active while streaming and Idle otherwise.
func (o *Orchestrator) StateOf(kind sensor.Kind) sensor.SessionState {
	if !o.started.Load() || !kind.Valid() {
		return sensor.StateIdle
	}

	if kind.Class() == sensor.Continuous {
		if o.hub.Streaming(kind) {
			return sensor.StateActive
		}
		return sensor.StateIdle
	}

	return o.controller.StateOf(kind)
}

// Authorization returns the cached authorization state of a domain.
func (o *Orchestrator) Authorization(domain sensor.Domain) sensor.AuthorizationState {
	if !o.started.Load() {
		return sensor.AuthorizationUnknown
	}

	return o.gate.State(domain)
}

// Peers returns a snapshot of the peers tracked by a running ranging
// session.
func (o *Orchestrator) Peers() []sensor.RangingSample {
	if !o.started.Load() {
		return nil
	}

	return o.controller.Peers()
}
