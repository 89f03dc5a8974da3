package orchestrator

import (
	"context"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/multisense-org/sensor-native/api/config"
	"github.com/multisense-org/sensor-native/api/errorkinds"
	"github.com/multisense-org/sensor-native/api/sensor"
)

// permissionGate resolves and caches one authorization decision per
// permission domain.
//
// Concurrent requests for an unresolved domain collapse into a single
// authorizer prompt; every waiter observes the same decision. Decisions are
// cached forever and never revert to unknown. Prompt delivery errors are not
// cached, so a later request may prompt again.
type permissionGate struct {
	authorizer sensor.Authorizer
	timeout    time.Duration
	logger     *zap.Logger

	states *xsync.MapOf[sensor.Domain, sensor.AuthorizationState]
	flight singleflight.Group
}

func newPermissionGate(authorizer sensor.Authorizer, timeout time.Duration, logger *zap.Logger) *permissionGate {
	if authorizer == nil {
		authorizer = sensor.DefaultAuthorizer{}
	}
	if timeout <= 0 {
		timeout = config.DefaultAuthTimeout
	}

	return &permissionGate{
		authorizer: authorizer,
		timeout:    timeout,
		logger:     logger,
		states:     xsync.NewMapOf[sensor.Domain, sensor.AuthorizationState](),
	}
}

// State returns the cached authorization state of a domain without
// prompting. Kinds without a permission domain are always authorized.
func (g *permissionGate) State(domain sensor.Domain) sensor.AuthorizationState {
	if domain == sensor.DomainNone {
		return sensor.AuthorizationGrantedAlways
	}

	state, _ := g.states.Load(domain)

	return state
}

// Authorize resolves the authorization of a domain, prompting through the
// session authorizer when no decision is cached yet.
//
// The prompt itself is not bound to ctx: a caller that stops waiting
// abandons its own request only, and the in-flight decision is still cached
// for later requests.
func (g *permissionGate) Authorize(ctx context.Context, domain sensor.Domain) (sensor.AuthorizationState, error) {
	if domain == sensor.DomainNone {
		return sensor.AuthorizationGrantedAlways, nil
	}

	if state := g.State(domain); state.Resolved() {
		return state, g.stateErr(state, domain)
	}

	results := g.flight.DoChan(domain.String(), func() (any, error) {
		if state, ok := g.states.Load(domain); ok {
			return state, nil
		}

		return g.prompt(domain)
	})

	select {
	case <-ctx.Done():
		return sensor.AuthorizationUnknown,
			fault.Wrap(errorkinds.ErrCancelled,
				fctx.With(ctx, "domain", domain.String()),
				ftag.With(errorkinds.TagTimeout),
				fmsg.With("Stopped waiting for an authorization decision"),
			)

	case result := <-results:
		if result.Err != nil {
			return sensor.AuthorizationUnknown, result.Err
		}

		state := result.Val.(sensor.AuthorizationState)

		return state, g.stateErr(state, domain)
	}
}

func (g *permissionGate) prompt(domain sensor.Domain) (sensor.AuthorizationState, error) {
	timeout := sensor.NewAuthTimeout(g.timeout)
	defer timeout.Cancel()

	state, err := g.authorizer.RequestAuthorization(timeout, domain)
	if err != nil {
		g.logger.Warn("authorization prompt failed",
			zap.String("domain", domain.String()),
			zap.Error(err),
		)

		return sensor.AuthorizationUnknown,
			fault.Wrap(err,
				fctx.With(context.Background(), "domain", domain.String()),
				ftag.With(errorkinds.TagSystemError),
				fmsg.With("Cannot deliver the authorization prompt"),
			)
	}
	if !state.Resolved() {
		return sensor.AuthorizationUnknown,
			fault.Wrap(errorkinds.ErrPermissionDenied,
				fctx.With(context.Background(), "domain", domain.String()),
				ftag.With(errorkinds.TagPermissionDenied),
				fmsg.With("The authorizer returned no decision"),
			)
	}

	g.states.Store(domain, state)
	g.logger.Debug("authorization resolved",
		zap.String("domain", domain.String()),
		zap.String("state", state.String()),
	)

	return state, nil
}

func (g *permissionGate) stateErr(state sensor.AuthorizationState, domain sensor.Domain) error {
	switch state {
	case sensor.AuthorizationDenied:
		return fault.Wrap(errorkinds.ErrPermissionDenied,
			fctx.With(context.Background(), "domain", domain.String()),
			ftag.With(errorkinds.TagPermissionDenied),
			fmsg.With("Authorization to the permission domain was denied"),
		)

	case sensor.AuthorizationRestricted:
		return fault.Wrap(errorkinds.ErrPermissionRestricted,
			fctx.With(context.Background(), "domain", domain.String()),
			ftag.With(errorkinds.TagPermissionRestricted),
			fmsg.With("The permission domain is restricted by platform policy"),
		)
	}

	return nil
}
