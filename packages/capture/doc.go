// Package capture extracts values from a completed exchange.
//
// It supports capturing values from:
//   - Response body (gjson paths)
//   - Response headers
//   - Response status code
//
// Selectors such as "body:data.id" or "header:ETag" are parsed with
// ParseSelector; the fetch command prints the result of --select.
package capture
