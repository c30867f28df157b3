// Package probe repeats an HTTP exchange to measure a target.
//
// Every exchange runs on its own conn.Connection; connections are never
// shared between goroutines. Workers are bounded with an errgroup, starts
// are paced with a token bucket, and latencies go into an HDR histogram.
package probe
