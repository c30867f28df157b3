package security

import (
	"errors"
	"fmt"
	"sync"
)

// Grant names a privileged capability a caller may hold.
type Grant string

const (
	// GrantAllowTrace permits selecting the TRACE request method
	GrantAllowTrace Grant = "allow-trace"
	// GrantSetFactory permits changing process-wide connection defaults
	GrantSetFactory Grant = "set-factory"
)

// ErrDenied is returned when a grant is not held
var ErrDenied = errors.New("permission denied")

// Policy is a set of granted capabilities. The zero value grants nothing.
type Policy struct {
	mu      sync.RWMutex
	granted map[Grant]bool
}

// NewPolicy creates a policy holding the given grants
func NewPolicy(grants ...Grant) *Policy {
	p := &Policy{granted: make(map[Grant]bool)}
	for _, g := range grants {
		p.granted[g] = true
	}
	return p
}

// DefaultPolicy allows changing process defaults but not TRACE.
func DefaultPolicy() *Policy {
	return NewPolicy(GrantSetFactory)
}

// AllowAll returns a policy holding every known grant
func AllowAll() *Policy {
	return NewPolicy(GrantAllowTrace, GrantSetFactory)
}

// Allow adds a grant to the policy
func (p *Policy) Allow(g Grant) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.granted == nil {
		p.granted = make(map[Grant]bool)
	}
	p.granted[g] = true
}

// Revoke removes a grant from the policy
func (p *Policy) Revoke(g Grant) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.granted, g)
}

// Check returns nil if g is granted, or an error wrapping ErrDenied.
func (p *Policy) Check(g Grant) error {
	if p == nil {
		return fmt.Errorf("%w: %s", ErrDenied, g)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.granted[g] {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDenied, g)
}

// Grants returns the granted capabilities
func (p *Policy) Grants() []Grant {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Grant, 0, len(p.granted))
	for g := range p.granted {
		out = append(out, g)
	}
	return out
}
