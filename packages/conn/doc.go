// Package conn provides Connection, a single HTTP request/response exchange
// with an explicit lifecycle.
//
// A Connection moves through three states:
//   - Unconfigured: method, streaming mode, redirect policy, request headers
//     and authenticator may be set
//   - Connected: the Transport has started sending the request; configuration
//     is rejected and, once the exchange completes, the response can be read
//   - Disconnected: released; every further call fails
//
// The Transport does the network work. The connection validates configuration
// before the exchange and exposes the already materialized result after it:
// status code and reason phrase, header fields by index (index 0 is the status
// line), the normal body, and the error body of a 4xx/5xx response.
//
// Usage:
//
//	c, err := conn.Open("https://example.com/upload", conn.WithTransport(t))
//	if err != nil { ... }
//	defer c.Disconnect()
//	_ = c.SetMethod(conn.MethodPut)
//	_ = c.SetChunkedStreamingMode(8192)
//	w, _ := c.OutputStream(ctx)
//	io.Copy(w, file)
//	if err := c.Connect(ctx); err != nil { ... }
//	code, _ := c.ResponseCode()
//
// Streaming modes commit the body to the wire as it is written, so the
// transport cannot replay it for authentication or redirects; it reports a
// *RetryError instead.
package conn
