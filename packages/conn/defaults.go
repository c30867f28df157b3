package conn

import (
	"sync/atomic"

	"github.com/abdul-hamid-achik/hitconn/packages/security"
)

// Checker authorizes privileged operations. *security.Policy satisfies it.
type Checker interface {
	Check(g security.Grant) error
}

// Defaults holds process-wide connection settings. A Connection reads them
// once, when it is created; later changes do not reach existing connections.
type Defaults struct {
	followRedirects atomic.Bool
}

// NewDefaults returns defaults with redirect following enabled
func NewDefaults() *Defaults {
	d := &Defaults{}
	d.followRedirects.Store(true)
	return d
}

// ProcessDefaults is used by connections created without WithDefaults.
var ProcessDefaults = NewDefaults()

// FollowRedirects returns the redirect default for new connections
func (d *Defaults) FollowRedirects() bool {
	return d.followRedirects.Load()
}

// SetFollowRedirects changes the redirect default for connections created
// afterwards. checker must hold security.GrantSetFactory; a nil checker
// falls back to security.DefaultPolicy.
func (d *Defaults) SetFollowRedirects(checker Checker, follow bool) error {
	if checker == nil {
		checker = security.DefaultPolicy()
	}
	if err := checker.Check(security.GrantSetFactory); err != nil {
		return newError("SetFollowRedirects", KindPermissionDenied, err)
	}
	d.followRedirects.Store(follow)
	return nil
}

// FollowRedirects returns ProcessDefaults' redirect default
func FollowRedirects() bool {
	return ProcessDefaults.FollowRedirects()
}

// SetFollowRedirects changes ProcessDefaults' redirect default under the default policy
func SetFollowRedirects(follow bool) error {
	return ProcessDefaults.SetFollowRedirects(nil, follow)
}
