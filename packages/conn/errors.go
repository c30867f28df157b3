package conn

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Kind classifies connection errors
type Kind string

const (
	KindInvalidState      Kind = "invalid-state"      // configuration outside Unconfigured, conflicting streaming modes
	KindInvalidArgument   Kind = "invalid-argument"   // negative lengths, missing arguments
	KindProtocolViolation Kind = "protocol-violation" // unsupported or late request method
	KindPermissionDenied  Kind = "permission-denied"  // missing grant or unsupported capability
	KindRetryRequired     Kind = "retry-required"     // streaming body blocks auth or redirect handling
	KindIOFailure         Kind = "io-failure"         // transport failure, unresolvable target
)

// Kind sentinels. errors.Is(err, ErrInvalidState) matches any *Error of that kind.
var (
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrProtocolViolation = &Error{Kind: KindProtocolViolation}
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrRetryRequired     = &Error{Kind: KindRetryRequired}
	ErrIOFailure         = &Error{Kind: KindIOFailure}
)

// Underlying causes
var (
	ErrUnsupportedOperation = errors.New("operation not supported by transport")
	ErrContentLength        = errors.New("fixed-length body size mismatch")
	ErrErrorStatus          = errors.New("server returned error status")
	ErrNoTransport          = errors.New("no transport configured")
	ErrDisconnected         = errors.New("connection released")
)

// Error is a kinded connection error
type Error struct {
	Op   string // operation that failed, e.g. "SetMethod"
	Kind Kind
	Err  error
}

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches kind sentinels: an *Error with no Op and no Err matches by Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Err == nil {
		return e.Kind == t.Kind
	}
	return e == t
}

// KindOf returns the Kind of the first *Error or *RetryError in err's chain.
func KindOf(err error) (Kind, bool) {
	var re *RetryError
	if errors.As(err, &re) {
		return KindRetryRequired, true
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// RetryError reports that a streamed request needs authentication or a
// redirect the connection cannot replay. It carries what a caller needs
// to reissue the request by hand.
type RetryError struct {
	Target     *url.URL
	Location   string // redirect target, empty for authentication
	StatusCode int
	Reason     string
	Header     http.Header
}

func (e *RetryError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s: %d %s: redirect to %s cannot be followed while streaming", KindRetryRequired, e.StatusCode, e.Reason, e.Location)
	}
	return fmt.Sprintf("%s: %d %s: authentication cannot be retried while streaming", KindRetryRequired, e.StatusCode, e.Reason)
}

// Is lets errors.Is(err, ErrRetryRequired) match.
func (e *RetryError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Err == nil && t.Kind == KindRetryRequired
}

// IsAuthentication reports whether the retry was caused by a 401 or 407
func (e *RetryError) IsAuthentication() bool {
	return e.StatusCode == StatusUnauthorized || e.StatusCode == StatusProxyAuth
}
