package discordwebhook

import (
	"discord-trigger/internal/core"
)

// Kind which of the failure kinds an Error is.
type Kind int

const (
	KindConfiguration Kind = iota + 1 // token or parameters unusable, nothing was dialed
	KindAuthentication                // login rejected
	KindConnection                    // gateway failed before a message resolved
	KindTimeout                       // deadline elapsed before a message resolved
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindAuthentication:
		return "AuthenticationError"
	case KindConnection:
		return "ConnectionError"
	case KindTimeout:
		return "TimeoutError"
	default:
		return "UnknownError"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindConfiguration:
		return core.ErrConfiguration
	case KindAuthentication:
		return core.ErrAuthentication
	case KindConnection:
		return core.ErrConnection
	case KindTimeout:
		return core.ErrTimeout
	default:
		return nil
	}
}

// Error A terminal failure of the trigger. Matches the core failure kinds through errors.Is.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}
