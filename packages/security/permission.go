package security

import (
	"net"
	"strconv"
	"strings"
)

// Network actions carried by a NetPermission
const (
	ActionConnect = "connect"
	ActionResolve = "resolve"
)

// NetPermission describes the network access needed to reach one host and port
type NetPermission struct {
	Host    string
	Port    int
	Actions []string
}

// NewNetPermission builds a connect+resolve permission for host:port
func NewNetPermission(host string, port int) NetPermission {
	return NetPermission{
		Host:    strings.ToLower(host),
		Port:    port,
		Actions: []string{ActionConnect, ActionResolve},
	}
}

// Address returns the host:port form, bracketing IPv6 literals
func (p NetPermission) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Implies reports whether p covers other: same host and port, and every action of other.
func (p NetPermission) Implies(other NetPermission) bool {
	if !strings.EqualFold(p.Host, other.Host) || p.Port != other.Port {
		return false
	}
	for _, a := range other.Actions {
		if !p.hasAction(a) {
			return false
		}
	}
	return true
}

func (p NetPermission) hasAction(action string) bool {
	for _, a := range p.Actions {
		if a == action {
			return true
		}
	}
	return false
}

func (p NetPermission) String() string {
	return p.Address() + " " + strings.Join(p.Actions, ",")
}
