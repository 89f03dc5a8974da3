package sensor

// AuthorizationState describes the cached authorization of one permission
// domain. Transitions move monotonically away from AuthorizationUnknown and
// never revert to it.
type AuthorizationState uint8

const (
	AuthorizationUnknown AuthorizationState = iota
	AuthorizationRestricted
	AuthorizationDenied
	AuthorizationGrantedWhileInUse
	AuthorizationGrantedAlways
)

// Authorized reports whether the state permits a session start.
func (a AuthorizationState) Authorized() bool {
	return a == AuthorizationGrantedWhileInUse || a == AuthorizationGrantedAlways
}

// Resolved reports whether the state is a platform decision rather than
// the initial unknown state.
func (a AuthorizationState) Resolved() bool {
	return a != AuthorizationUnknown
}

// String converts an AuthorizationState to a string.
func (a AuthorizationState) String() string {
	switch a {
	case AuthorizationUnknown:
		return "unknown"
	case AuthorizationRestricted:
		return "restricted"
	case AuthorizationDenied:
		return "denied"
	case AuthorizationGrantedWhileInUse:
		return "granted-while-in-use"
	case AuthorizationGrantedAlways:
		return "granted-always"
	}
	return "unknown"
}

// SessionState describes the lifecycle state of one sensor kind.
//
// Sessions move Idle → Requesting → Active → {Completed, Failed, Cancelled}
// and reset to Idle after a terminal state has been observed once.
// Suspended is reachable from Active for peer-session kinds only.
type SessionState uint8

const (
	StateIdle SessionState = iota
	StateRequesting
	StateActive
	StateSuspended
	StateCompleted
	StateFailed
	StateCancelled
)

// Terminal reports whether the state ends a session.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Running reports whether a session in this state holds a live platform
// session object.
func (s SessionState) Running() bool {
	return s == StateActive || s == StateSuspended
}

// String converts a SessionState to a string.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}
