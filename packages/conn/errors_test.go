package conn

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_KindMatching(t *testing.T) {
	err := newError("SetMethod", KindProtocolViolation, errors.New("invalid HTTP method: PATCH"))

	assert.ErrorIs(t, err, ErrProtocolViolation)
	assert.NotErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "SetMethod: protocol-violation: invalid HTTP method: PATCH", err.Error())

	wrapped := fmt.Errorf("configure: %w", err)
	assert.ErrorIs(t, wrapped, ErrProtocolViolation)
	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindProtocolViolation, kind)
}

func TestError_Messages(t *testing.T) {
	assert.Equal(t, "invalid-state", ErrInvalidState.Error())
	assert.Equal(t, "Connect: io-failure", newError("Connect", KindIOFailure, nil).Error())
	assert.Equal(t, "io-failure: boom", newError("", KindIOFailure, errors.New("boom")).Error())
}

func TestError_UnwrapsCause(t *testing.T) {
	err := newError("SetAuthenticator", KindPermissionDenied, ErrUnsupportedOperation)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	other := newError("SetAuthenticator", KindPermissionDenied, ErrUnsupportedOperation)
	assert.False(t, errors.Is(err, other), "only kind sentinels match by kind")
}

func TestKindOf_Foreign(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
	_, ok = KindOf(nil)
	assert.False(t, ok)
}

func TestRetryError(t *testing.T) {
	u, _ := url.Parse("http://example.com/a")
	redirect := &RetryError{Target: u, Location: "http://example.com/b", StatusCode: StatusMovedTemp, Reason: "Found"}
	auth := &RetryError{Target: u, StatusCode: StatusProxyAuth, Reason: "Proxy Authentication Required"}

	assert.ErrorIs(t, redirect, ErrRetryRequired)
	assert.NotErrorIs(t, redirect, ErrIOFailure)
	assert.False(t, redirect.IsAuthentication())
	assert.True(t, auth.IsAuthentication())
	assert.Contains(t, redirect.Error(), "redirect to http://example.com/b")
	assert.Contains(t, auth.Error(), "authentication cannot be retried")

	kind, ok := KindOf(fmt.Errorf("upload: %w", auth))
	assert.True(t, ok)
	assert.Equal(t, KindRetryRequired, kind)
}
