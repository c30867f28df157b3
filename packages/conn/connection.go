package conn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/abdul-hamid-achik/hitconn/packages/security"
)

// State is the lifecycle position of a Connection
type State int

const (
	StateUnconfigured State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// outcome is what a streamed exchange goroutine reports back
type outcome struct {
	res *Result
	err error
}

// Connection is one HTTP exchange: configured while Unconfigured, exchanged
// once, inspected, then released. It is not safe for concurrent use.
type Connection struct {
	id     uuid.UUID
	target *url.URL

	method          string
	streaming       StreamingMode
	followRedirects bool
	header          http.Header
	authenticator   Authenticator
	state           State

	transport Transport
	defaults  *Defaults
	checker   Checker
	resolver  Resolver
	logger    logrus.FieldLogger

	// request body
	body    *bytes.Buffer
	out     io.WriteCloser
	pending chan outcome
	cancel  context.CancelFunc

	// exchange result, valid once completed is set
	completed   bool
	result      *Result
	exchangeErr error

	statusResolved  bool
	responseCode    int
	responseMessage string
}

// Option configures a Connection at creation
type Option func(*Connection)

// WithTransport sets the transport that performs the exchange
func WithTransport(t Transport) Option {
	return func(c *Connection) {
		c.transport = t
	}
}

// WithDefaults reads the redirect default from d instead of ProcessDefaults
func WithDefaults(d *Defaults) Option {
	return func(c *Connection) {
		if d != nil {
			c.defaults = d
		}
	}
}

// WithChecker sets the checker consulted for TRACE
func WithChecker(ch Checker) Option {
	return func(c *Connection) {
		if ch != nil {
			c.checker = ch
		}
	}
}

// WithResolver makes Permission resolve the target host
func WithResolver(r Resolver) Option {
	return func(c *Connection) {
		c.resolver = r
	}
}

// WithLogger sets the logger; the logrus standard logger is used otherwise
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an Unconfigured connection to target with method GET. The
// instance redirect flag is captured from the defaults here.
func New(target *url.URL, opts ...Option) (*Connection, error) {
	if target == nil {
		return nil, newError("New", KindInvalidArgument, errors.New("nil target"))
	}
	c := &Connection{
		id:           uuid.New(),
		target:       target,
		method:       MethodGet,
		header:       make(http.Header),
		defaults:     ProcessDefaults,
		checker:      security.DefaultPolicy(),
		logger:       logrus.StandardLogger(),
		responseCode: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.followRedirects = c.defaults.FollowRedirects()
	c.log().Debug("connection created")
	return c, nil
}

// Open parses rawURL and creates a connection to it
func Open(rawURL string, opts ...Option) (*Connection, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, newError("Open", KindInvalidArgument, err)
	}
	return New(u, opts...)
}

func (c *Connection) log() logrus.FieldLogger {
	return c.logger.WithFields(logrus.Fields{
		"conn_id": c.id.String(),
		"method":  c.method,
		"url":     c.target.String(),
	})
}

// ID returns the connection's unique identifier
func (c *Connection) ID() uuid.UUID {
	return c.id
}

// Target returns the resource the connection was created for
func (c *Connection) Target() *url.URL {
	return c.target
}

// State returns the current lifecycle state
func (c *Connection) State() State {
	return c.state
}

func (c *Connection) String() string {
	return fmt.Sprintf("%s %s [%s]", c.method, c.target, c.state)
}

// SetMethod selects the request method. It fails with KindProtocolViolation
// once the connection has left Unconfigured or when m is not an accepted
// method, and with KindPermissionDenied for TRACE without GrantAllowTrace.
func (c *Connection) SetMethod(m string) error {
	const op = "SetMethod"
	if c.state != StateUnconfigured {
		return newError(op, KindProtocolViolation, fmt.Errorf("cannot reset method: %s", c.state))
	}
	if m == "" {
		return newError(op, KindInvalidArgument, errors.New("empty method"))
	}
	if !IsValidMethod(m) {
		return newError(op, KindProtocolViolation, fmt.Errorf("invalid HTTP method: %s", m))
	}
	if m == MethodTrace {
		if err := c.checker.Check(security.GrantAllowTrace); err != nil {
			return newError(op, KindPermissionDenied, err)
		}
	}
	c.method = m
	return nil
}

// Method returns the request method, GET unless changed
func (c *Connection) Method() string {
	return c.method
}

// SetFixedLengthStreamingMode declares that exactly n body bytes will be
// streamed. Negative n is KindInvalidArgument in every state.
func (c *Connection) SetFixedLengthStreamingMode(n int64) error {
	const op = "SetFixedLengthStreamingMode"
	if n < 0 {
		return newError(op, KindInvalidArgument, fmt.Errorf("invalid content length: %d", n))
	}
	if err := c.checkStreamingSelectable(op); err != nil {
		return err
	}
	c.streaming = FixedLength(n)
	return nil
}

// SetChunkedStreamingMode streams the body in chunks of chunkSize bytes,
// header included. Sizes of 5 or less become DefaultChunkSize.
func (c *Connection) SetChunkedStreamingMode(chunkSize int) error {
	const op = "SetChunkedStreamingMode"
	if err := c.checkStreamingSelectable(op); err != nil {
		return err
	}
	c.streaming = Chunked(chunkSize)
	return nil
}

func (c *Connection) checkStreamingSelectable(op string) error {
	if c.state != StateUnconfigured {
		return newError(op, KindInvalidState, fmt.Errorf("already %s", c.state))
	}
	if c.streaming.Streamed() {
		return newError(op, KindInvalidState, fmt.Errorf("%s streaming mode already set", c.streaming.Kind))
	}
	return nil
}

// StreamingMode returns the selected body strategy
func (c *Connection) StreamingMode() StreamingMode {
	return c.streaming
}

// ChunkSize returns the effective chunk size, or -1 when not chunked
func (c *Connection) ChunkSize() int {
	if c.streaming.Kind != StreamChunked {
		return -1
	}
	return c.streaming.ChunkSize
}

// SetInstanceFollowRedirects overrides the redirect flag captured at creation
func (c *Connection) SetInstanceFollowRedirects(follow bool) error {
	if c.state != StateUnconfigured {
		return newError("SetInstanceFollowRedirects", KindInvalidState, fmt.Errorf("already %s", c.state))
	}
	c.followRedirects = follow
	return nil
}

// InstanceFollowRedirects reports whether this connection follows 3xx responses
func (c *Connection) InstanceFollowRedirects() bool {
	return c.followRedirects
}

// SetRequestHeader replaces the values of a request header
func (c *Connection) SetRequestHeader(key, value string) error {
	if err := c.checkHeaderMutable("SetRequestHeader", key); err != nil {
		return err
	}
	c.header.Set(key, value)
	return nil
}

// AddRequestHeader appends a value to a request header
func (c *Connection) AddRequestHeader(key, value string) error {
	if err := c.checkHeaderMutable("AddRequestHeader", key); err != nil {
		return err
	}
	c.header.Add(key, value)
	return nil
}

func (c *Connection) checkHeaderMutable(op, key string) error {
	if key == "" {
		return newError(op, KindInvalidArgument, errors.New("empty header name"))
	}
	if c.state != StateUnconfigured {
		return newError(op, KindInvalidState, fmt.Errorf("already %s", c.state))
	}
	return nil
}

// RequestHeader returns the first value of a request header
func (c *Connection) RequestHeader(key string) string {
	return c.header.Get(key)
}

// RequestHeaders returns a copy of the request headers
func (c *Connection) RequestHeaders() http.Header {
	return c.header.Clone()
}

// SetAuthenticator installs a for this connection. The transport must
// implement AuthenticatorSupport; otherwise the call fails with
// KindPermissionDenied wrapping ErrUnsupportedOperation.
func (c *Connection) SetAuthenticator(a Authenticator) error {
	const op = "SetAuthenticator"
	if a == nil {
		return newError(op, KindInvalidArgument, errors.New("nil authenticator"))
	}
	if c.state != StateUnconfigured {
		return newError(op, KindInvalidState, fmt.Errorf("already %s", c.state))
	}
	if s, ok := c.transport.(AuthenticatorSupport); !ok || !s.SupportsAuthenticator() {
		return newError(op, KindPermissionDenied, fmt.Errorf("%w: %T", ErrUnsupportedOperation, c.transport))
	}
	c.authenticator = a
	return nil
}

// OutputStream returns the writer for the request body. In the default mode
// the body is buffered and sent by Connect. In a streaming mode the exchange
// starts now, the connection becomes Connected, and writes go to the wire;
// close the writer before calling Connect.
//
// A GET request with a body is sent as POST. HEAD and TRACE cannot carry a body.
func (c *Connection) OutputStream(ctx context.Context) (io.WriteCloser, error) {
	const op = "OutputStream"
	if c.out != nil && !c.completed {
		return c.out, nil
	}
	switch c.state {
	case StateDisconnected:
		return nil, newError(op, KindInvalidState, ErrDisconnected)
	case StateConnected:
		return nil, newError(op, KindInvalidState, errors.New("cannot write request body after the exchange"))
	}
	if c.streaming.Streamed() && c.transport == nil {
		return nil, newError(op, KindInvalidState, ErrNoTransport)
	}
	if c.method == MethodGet {
		c.log().Debug("switching GET to POST for request body")
		c.method = MethodPost
	}
	if !allowsBody(c.method) {
		return nil, newError(op, KindProtocolViolation, fmt.Errorf("%s does not support a request body", c.method))
	}

	if !c.streaming.Streamed() {
		c.body = &bytes.Buffer{}
		c.out = &bufferedBody{buf: c.body}
		return c.out, nil
	}

	pr, pw := io.Pipe()
	req := c.snapshot(pr)
	switch c.streaming.Kind {
	case StreamFixedLength:
		req.ContentLength = c.streaming.Length
		c.out = newFixedLengthBody(pw, c.streaming.Length)
	case StreamChunked:
		req.ContentLength = -1
		c.out = newChunkedBody(pw, c.streaming.PayloadSize())
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.pending = make(chan outcome, 1)
	c.state = StateConnected
	c.log().WithField("streaming", c.streaming.String()).Debug("streamed exchange started")

	go func(ch chan<- outcome) {
		res, err := c.transport.Exchange(ctx, req)
		if err != nil {
			pr.CloseWithError(err)
		} else {
			pr.CloseWithError(io.ErrClosedPipe)
		}
		ch <- outcome{res: res, err: err}
	}(c.pending)

	return c.out, nil
}

func (c *Connection) snapshot(body io.Reader) *Request {
	return &Request{
		ID:              c.id,
		Method:          c.method,
		URL:             c.target,
		Header:          c.header.Clone(),
		Body:            body,
		ContentLength:   0,
		Streaming:       c.streaming,
		FollowRedirects: c.followRedirects,
		Authenticator:   c.authenticator,
	}
}

// Connect performs the exchange, or waits for a streamed one to finish.
// It returns the exchange error, which later accessors report as well.
// Calling Connect again returns the same result without a new exchange.
func (c *Connection) Connect(ctx context.Context) error {
	const op = "Connect"
	if c.state == StateDisconnected {
		return newError(op, KindInvalidState, ErrDisconnected)
	}
	if c.completed {
		return c.exchangeErr
	}
	if c.transport == nil {
		return newError(op, KindInvalidState, ErrNoTransport)
	}

	if c.streaming.Streamed() {
		return c.awaitStreamed(ctx)
	}

	req := c.snapshot(nil)
	if c.out != nil {
		_ = c.out.Close()
	}
	if c.body != nil {
		req.Body = bytes.NewReader(c.body.Bytes())
		req.ContentLength = int64(c.body.Len())
	}
	c.state = StateConnected
	start := time.Now()
	res, err := c.transport.Exchange(ctx, req)
	c.complete(res, err, time.Since(start))
	return c.exchangeErr
}

func (c *Connection) awaitStreamed(ctx context.Context) error {
	if c.pending == nil {
		if _, err := c.OutputStream(ctx); err != nil {
			return err
		}
	}
	start := time.Now()
	closeErr := c.out.Close()

	select {
	case o := <-c.pending:
		c.cancel()
		c.pending = nil
		if closeErr != nil {
			o.res, o.err = nil, closeErr
		}
		c.complete(o.res, o.err, time.Since(start))
		return c.exchangeErr
	case <-ctx.Done():
		return newError("Connect", KindIOFailure, ctx.Err())
	}
}

func (c *Connection) complete(res *Result, err error, elapsed time.Duration) {
	c.completed = true
	if err != nil {
		var re *RetryError
		var ce *Error
		switch {
		case errors.As(err, &re), errors.As(err, &ce):
			c.exchangeErr = err
		default:
			c.exchangeErr = newError("Connect", KindIOFailure, err)
		}
		c.log().WithError(err).WithField("elapsed", elapsed).Debug("exchange failed")
		return
	}
	if res == nil {
		res = &Result{}
	}
	c.result = res
	c.log().WithFields(logrus.Fields{
		"status":  res.StatusLine,
		"elapsed": elapsed,
		"proxied": res.Proxied,
	}).Debug("exchange completed")
}

// Disconnect releases the connection. It aborts an unfinished streamed
// body, lets a Releaser transport decide about the socket, and makes every
// later call fail. Repeated calls do nothing.
func (c *Connection) Disconnect() {
	if c.state == StateDisconnected {
		return
	}
	if c.pending != nil {
		if pw, ok := c.pipeWriter(); ok {
			pw.CloseWithError(ErrDisconnected)
		}
		c.cancel()
		c.pending = nil
	}
	if r, ok := c.transport.(Releaser); ok && c.result != nil {
		r.Release(c.result)
	}
	c.state = StateDisconnected
	c.body = nil
	c.out = nil
	c.log().Debug("connection released")
}

func (c *Connection) pipeWriter() (*io.PipeWriter, bool) {
	switch w := c.out.(type) {
	case *fixedLengthBody:
		return w.pw, true
	case *chunkedBody:
		return w.pw, true
	}
	return nil, false
}

// ResponseCode returns the status code of the completed exchange. It is -1
// before the exchange completes or when the status line is not valid HTTP.
// A failed exchange reports its error: KindIOFailure or a *RetryError.
func (c *Connection) ResponseCode() (int, error) {
	if c.state == StateDisconnected {
		return -1, newError("ResponseCode", KindInvalidState, ErrDisconnected)
	}
	if !c.completed {
		return -1, nil
	}
	if c.exchangeErr != nil {
		return -1, c.exchangeErr
	}
	if !c.statusResolved {
		if sl, ok := ParseStatusLine(c.result.StatusLine); ok {
			c.responseCode = sl.Code
			c.responseMessage = sl.Reason
		}
		c.statusResolved = true
	}
	return c.responseCode, nil
}

// ResponseMessage returns the reason phrase, or "" when there is none.
func (c *Connection) ResponseMessage() (string, error) {
	if _, err := c.ResponseCode(); err != nil {
		return "", err
	}
	return c.responseMessage, nil
}

// HeaderFieldKey returns the key of the nth response header. Index 0 is the
// status line, which has no key. ok is false when there is no key.
func (c *Connection) HeaderFieldKey(n int) (string, bool) {
	f, ok := c.headerAt(n)
	if !ok || f.Key == "" {
		return "", false
	}
	return f.Key, true
}

// HeaderField returns the value of the nth response header; index 0 holds
// the status line. Walk n upward until both HeaderFieldKey and HeaderField
// report absent.
func (c *Connection) HeaderField(n int) (string, bool) {
	f, ok := c.headerAt(n)
	if !ok {
		return "", false
	}
	return f.Value, true
}

func (c *Connection) headerAt(n int) (HeaderField, bool) {
	if n < 0 || c.state == StateDisconnected || c.result == nil {
		return HeaderField{}, false
	}
	if c.result.StatusLine != "" {
		if n == 0 {
			return HeaderField{Value: c.result.StatusLine}, true
		}
		n--
	}
	if n >= len(c.result.Header) {
		return HeaderField{}, false
	}
	return c.result.Header[n], true
}

// HeaderFieldByName returns the first value of the named response header
func (c *Connection) HeaderFieldByName(name string) (string, bool) {
	if c.state == StateDisconnected {
		return "", false
	}
	return c.result.Get(name)
}

// HeaderFieldDate parses the named header as an HTTP date, returning def
// when it is missing or malformed.
func (c *Connection) HeaderFieldDate(name string, def time.Time) time.Time {
	v, ok := c.HeaderFieldByName(name)
	if !ok {
		return def
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return def
	}
	return t
}

// ContentLength returns the Content-Length response header, or -1
func (c *Connection) ContentLength() int64 {
	v, ok := c.HeaderFieldByName("Content-Length")
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// ContentType returns the Content-Type response header
func (c *Connection) ContentType() string {
	v, _ := c.HeaderFieldByName("Content-Type")
	return v
}

// ResponseHeader returns the response headers, without the status line
func (c *Connection) ResponseHeader() http.Header {
	if c.state == StateDisconnected {
		return make(http.Header)
	}
	return c.result.HTTPHeader()
}

// InputStream returns the response body of a completed exchange. A 4xx or
// 5xx status fails with KindIOFailure wrapping ErrErrorStatus; that body is
// available from ErrorStream.
func (c *Connection) InputStream() (io.Reader, error) {
	const op = "InputStream"
	if c.state == StateDisconnected {
		return nil, newError(op, KindInvalidState, ErrDisconnected)
	}
	if !c.completed {
		return nil, newError(op, KindInvalidState, errors.New("exchange not completed"))
	}
	code, err := c.ResponseCode()
	if err != nil {
		return nil, err
	}
	if IsError(code) {
		return nil, newError(op, KindIOFailure, fmt.Errorf("%w: %d %s", ErrErrorStatus, code, c.responseMessage))
	}
	return bytes.NewReader(c.result.Body), nil
}

// ErrorStream returns the body the server sent with an error status. It is
// nil when no exchange completed, the status was not an error, or the body
// was empty. It never starts an exchange.
func (c *Connection) ErrorStream() (io.Reader, error) {
	if c.state == StateDisconnected {
		return nil, newError("ErrorStream", KindInvalidState, ErrDisconnected)
	}
	if !c.completed || c.exchangeErr != nil {
		return nil, nil
	}
	code, _ := c.ResponseCode()
	if !IsError(code) || len(c.result.Body) == 0 {
		return nil, nil
	}
	return bytes.NewReader(c.result.Body), nil
}

// UsingProxy reports whether the exchange is known to have gone through a
// proxy. false does not prove that it did not.
func (c *Connection) UsingProxy() bool {
	return c.state != StateDisconnected && c.result != nil && c.result.Proxied
}

// Permission returns the network permission needed to reach the target.
// It fails with KindIOFailure when host or port cannot be determined, or
// when a configured Resolver cannot resolve the host.
func (c *Connection) Permission(ctx context.Context) (security.NetPermission, error) {
	const op = "Permission"
	host := c.target.Hostname()
	if host == "" {
		return security.NetPermission{}, newError(op, KindIOFailure, fmt.Errorf("no host in %q", c.target.String()))
	}
	port, err := targetPort(c.target)
	if err != nil {
		return security.NetPermission{}, newError(op, KindIOFailure, err)
	}
	if c.resolver != nil {
		if _, err := c.resolver.LookupHost(ctx, host); err != nil {
			return security.NetPermission{}, newError(op, KindIOFailure, err)
		}
	}
	return security.NewNetPermission(host, port), nil
}

func targetPort(u *url.URL) (int, error) {
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return 0, fmt.Errorf("invalid port %q", p)
		}
		return n, nil
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		return 80, nil
	case "https":
		return 443, nil
	}
	return 0, fmt.Errorf("no default port for scheme %q", u.Scheme)
}
