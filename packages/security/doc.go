// Package security holds the permission checks consulted by connections.
//
// A Policy is a set of grants. Connections ask for GrantAllowTrace before
// accepting the TRACE method, and process defaults ask for GrantSetFactory
// before their redirect policy may change. NetPermission describes the
// host and port a connection needs to reach.
package security
