package security

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Check(t *testing.T) {
	p := NewPolicy(GrantSetFactory)

	assert.NoError(t, p.Check(GrantSetFactory))

	err := p.Check(GrantAllowTrace)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDenied))
	assert.Contains(t, err.Error(), "allow-trace")
}

func TestPolicy_AllowRevoke(t *testing.T) {
	var p Policy
	assert.Error(t, p.Check(GrantAllowTrace))

	p.Allow(GrantAllowTrace)
	assert.NoError(t, p.Check(GrantAllowTrace))

	p.Revoke(GrantAllowTrace)
	assert.Error(t, p.Check(GrantAllowTrace))
}

func TestPolicy_NilDeniesEverything(t *testing.T) {
	var p *Policy
	assert.ErrorIs(t, p.Check(GrantSetFactory), ErrDenied)
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.NoError(t, p.Check(GrantSetFactory))
	assert.Error(t, p.Check(GrantAllowTrace))

	assert.NoError(t, AllowAll().Check(GrantAllowTrace))
	assert.Len(t, AllowAll().Grants(), 2)
}

func TestNetPermission(t *testing.T) {
	p := NewNetPermission("Example.COM", 443)
	assert.Equal(t, "example.com:443", p.Address())
	assert.Equal(t, "example.com:443 connect,resolve", p.String())

	v6 := NewNetPermission("::1", 8080)
	assert.Equal(t, "[::1]:8080", v6.Address())
}

func TestNetPermission_Implies(t *testing.T) {
	full := NewNetPermission("example.com", 80)
	connectOnly := NetPermission{Host: "example.com", Port: 80, Actions: []string{ActionConnect}}

	assert.True(t, full.Implies(connectOnly))
	assert.False(t, connectOnly.Implies(full))
	assert.False(t, full.Implies(NewNetPermission("example.com", 81)))
	assert.False(t, full.Implies(NewNetPermission("example.org", 80)))
}
