// Package cmd implements the hitconn CLI commands using Cobra.
//
// Available commands:
//   - fetch: Perform one exchange and print status line, headers and body
//   - probe: Repeat an exchange and summarize status classes and latency
//   - status: List the named HTTP status codes
//   - init: Write a hitconn.yaml with default settings
//   - version: Show hitconn version information
//   - completion: Generate shell completion scripts
//
// Commands read hitconn.yaml or hitconn.json from the working directory,
// overlay their flags, and exit with the codes in exitcodes.go.
package cmd
