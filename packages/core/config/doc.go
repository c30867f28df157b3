// Package config handles configuration loading and management for hitconn.
//
// It provides functionality for:
//   - Loading configuration from hitconn.json or hitconn.yaml files
//   - Default configuration values
//   - Applying settings to connection defaults, the security policy and
//     the transport client
package config
