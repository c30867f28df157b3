// Package transport implements conn.Transport on top of net/http.
//
// Client adds the pieces a Connection relies on:
//   - Redirects follow the connection's instance flag, up to a maximum
//   - Fixed-length bodies are sent with Content-Length, chunked bodies with
//     Transfer-Encoding: chunked, one chunk per streamed piece
//   - A 401 or 407 is answered once with Basic or Digest credentials from
//     the connection's authenticator; streamed requests get a RetryError
//   - Proxy use is recorded so Connection.UsingProxy can report it
//   - Optional rate limiting and a response body size cap
package transport
