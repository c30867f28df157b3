// Package output renders exchanges, probe summaries and the status
// catalogue.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output, written on Flush
package output
