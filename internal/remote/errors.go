package remote

import (
	"errors"
	"fmt"
)

// Kind classifies a failed remote call.
type Kind int

const (
	// KindCommand is any rejection not covered by another kind.
	KindCommand Kind = iota
	// KindAuthentication means the credential is missing or was refused.
	KindAuthentication
	// KindRateLimited is a 429-class response.
	KindRateLimited
	// KindTransport is a malformed response to a command the service may
	// still have accepted.
	KindTransport
)

// String returns a human-readable representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindAuthentication:
		return "authentication"
	case KindRateLimited:
		return "rate limited"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is a classified remote failure.
//
// Error values compare equal under errors.Is when their kinds match, so the
// sentinels below can be used as targets.
type Error struct {
	Kind   Kind
	Op     string // Operation that failed, e.g. "play"
	Status int    // HTTP status when known
	Err    error  // Underlying cause
}

// Error returns the error message.
func (e *Error) Error() string {
	msg := "remote: " + e.Kind.String()
	if e.Op != "" {
		msg = fmt.Sprintf("remote: %s: %s", e.Op, e.Kind)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Temporary reports whether the failure is expected to clear on its own.
func (e *Error) Temporary() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTransport
}

// Sentinels for errors.Is.
var (
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrRateLimited    = &Error{Kind: KindRateLimited}
	ErrTransport      = &Error{Kind: KindTransport}
	ErrCommand        = &Error{Kind: KindCommand}

	// ErrDeviceNotFound is returned when no output device owned by this
	// player could be resolved.
	ErrDeviceNotFound = errors.New("remote: no playback device found")
)

// IsRateLimited reports whether err is a 429-class failure.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTransport reports whether err is a malformed acknowledgment.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
