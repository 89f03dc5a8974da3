package sensor

import (
	"context"
	"time"
)

// Authorizer describes an authorization interface for resolving access to
// sensor permission domains.
//
// Implementations bridge to the platform consent surface, and may block until
// the user responds or the provided timeout expires. An implementation must
// return the platform's decision as an AuthorizationState, and reserve the
// error return for prompt delivery failures.
type Authorizer interface {
	// RequestAuthorization prompts for access to a permission domain.
	RequestAuthorization(timeout AuthTimeout, domain Domain) (AuthorizationState, error)
}

// AuthTimeout describes an authorization prompt timeout duration.
// The context value is created with 'context.WithTimeout()'.
type AuthTimeout struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAuthTimeout returns a new authorization timeout token.
func NewAuthTimeout(timeout time.Duration) AuthTimeout {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	return AuthTimeout{ctx, cancel}
}

// Context returns the inner context.
func (a *AuthTimeout) Context() context.Context {
	return a.ctx
}

// Done returns the inner context's Done() channel.
func (a *AuthTimeout) Done() <-chan struct{} {
	return a.ctx.Done()
}

// Cancel cancels the inner context.
func (a *AuthTimeout) Cancel() {
	a.cancel()
}

// DefaultAuthorizer describes a default authorization handler.
type DefaultAuthorizer struct{}

// RequestAuthorization accepts all authorization requests.
func (DefaultAuthorizer) RequestAuthorization(AuthTimeout, Domain) (AuthorizationState, error) {
	return AuthorizationGrantedAlways, nil
}
