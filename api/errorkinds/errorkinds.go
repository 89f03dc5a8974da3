// Package errorkinds enumerates the sentinel errors and fault tags shared
// across the sensor session implementation.
package errorkinds

import (
	"errors"

	"github.com/Southclaws/fault/ftag"
)

// Sentinel errors returned or carried by session operations.
var (
	// ErrUnavailable marks a kind whose hardware or platform support is absent.
	ErrUnavailable = errors.New("sensor hardware or platform support is unavailable")

	// ErrPermissionDenied marks a start refused by a denied authorization domain.
	ErrPermissionDenied = errors.New("authorization for this sensor domain was denied")

	// ErrPermissionRestricted marks a domain restricted by system policy.
	ErrPermissionRestricted = errors.New("authorization for this sensor domain is restricted")

	// ErrSessionConflict is returned synchronously by a start on a kind
	// whose session is not idle.
	ErrSessionConflict = errors.New("a session for this sensor kind is already in flight")

	// ErrCancelled marks a start abandoned by its caller before activation.
	ErrCancelled = errors.New("the session request was cancelled")

	// ErrInvalidated marks a session torn down unexpectedly by the platform.
	ErrInvalidated = errors.New("the platform invalidated the session")

	// ErrSessionNotStarted is returned by operations on a stopped session.
	ErrSessionNotStarted = errors.New("the sensor session has not been started")

	// ErrSessionExists is returned by a second Start on a running session.
	ErrSessionExists = errors.New("the sensor session has already been started")

	// ErrUnknownKind is returned for kinds outside the closed enumeration.
	ErrUnknownKind = errors.New("unknown sensor kind")

	// ErrPayloadMismatch is returned by reading constructors when the payload
	// variant does not match the kind's expected variant.
	ErrPayloadMismatch = errors.New("reading payload does not match the sensor kind")

	// ErrTokenInvalid is returned for a malformed peer-discovery token.
	ErrTokenInvalid = errors.New("the discovery token is malformed")
)

// Fault tags classifying wrapped errors across the facade.
const (
	TagUnavailable          ftag.Kind = "unavailable"
	TagPermissionDenied     ftag.Kind = "permission_denied"
	TagPermissionRestricted ftag.Kind = "permission_restricted"
	TagSessionConflict      ftag.Kind = "session_conflict"
	TagTimeout              ftag.Kind = "timeout"
	TagInvalidated          ftag.Kind = "invalidated"
	TagSystemError          ftag.Kind = "system_error"
)
