package httpd

import (
	"errors"
	"fmt"
)

// Kind classifies failures by who is at fault and how the server reacts.
type Kind int

const (
	// KindConfiguration covers a missing root, unreadable key material or a port that cannot be bound. Fatal at startup.
	KindConfiguration Kind = iota + 1
	// KindProtocol is a malformed or truncated request. The connection is dropped, with a 404 page when one can still be sent.
	KindProtocol
	// KindOperational is a socket, file or process failure while serving. Logged, the server keeps running.
	KindOperational
	// KindResourceExhaustion means every worker is busy and work is queueing.
	KindResourceExhaustion
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindProtocol:
		return "protocol"
	case KindOperational:
		return "operational"
	case KindResourceExhaustion:
		return "resource_exhaustion"
	default:
		return "unknown"
	}
}

// Error carries a Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func protocolErrorf(op, format string, args ...any) *Error {
	return &Error{Kind: KindProtocol, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, &Error{Kind: KindProtocol}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
