package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes server errors by where in the lifecycle they surfaced.
type Kind string

const (
	// KindBind is a failure to acquire the listening socket. Fatal at startup.
	KindBind Kind = "bind"
	// KindTransport is a failure while talking to a single peer.
	KindTransport Kind = "transport"
	// KindConfig is an invalid or unreadable configuration.
	KindConfig Kind = "config"
	// KindLifecycle is a rejected state machine transition.
	KindLifecycle Kind = "lifecycle"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrBind      = &ServerError{Kind: KindBind}
	ErrTransport = &ServerError{Kind: KindTransport}
	ErrConfig    = &ServerError{Kind: KindConfig}
	ErrLifecycle = &ServerError{Kind: KindLifecycle}
)

// ServerError is a structured error carrying the failing operation and, when
// relevant, the network address involved.
type ServerError struct {
	Kind Kind
	Op   string
	Addr string
	Err  error
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op
	}
	if e.Addr != "" {
		msg += " " + e.Addr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *ServerError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a ServerError of the same kind.
func (e *ServerError) Is(target error) bool {
	var t *ServerError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// NewBindError wraps a listen failure on addr.
func NewBindError(addr string, err error) *ServerError {
	return &ServerError{Kind: KindBind, Op: "listen", Addr: addr, Err: err}
}

// NewTransportError wraps a failure writing to or reading from a peer.
func NewTransportError(op, remote string, err error) *ServerError {
	return &ServerError{Kind: KindTransport, Op: op, Addr: remote, Err: err}
}

// NewConfigError wraps a configuration problem.
func NewConfigError(format string, args ...interface{}) *ServerError {
	return &ServerError{Kind: KindConfig, Op: "config", Err: fmt.Errorf(format, args...)}
}

// NewLifecycleError reports a transition the state machine does not allow.
func NewLifecycleError(from, to fmt.Stringer) *ServerError {
	return &ServerError{
		Kind: KindLifecycle,
		Op:   "transition",
		Err:  fmt.Errorf("%s -> %s is not allowed", from, to),
	}
}

// IsBindError reports whether err, or anything it wraps, is a bind failure.
func IsBindError(err error) bool {
	return errors.Is(err, ErrBind)
}
