package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
)

const (
	// DefaultTimeout is the default exchange timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
	// DefaultMaxBodySize caps how much of a response body is read into memory
	DefaultMaxBodySize = 32 << 20
)

// ErrBodyTooLarge is returned when a response body exceeds the configured limit.
var ErrBodyTooLarge = errors.New("response body too large")

// Client performs conn exchanges over net/http. It implements
// conn.Transport, conn.AuthenticatorSupport and conn.Releaser.
type Client struct {
	httpClient     *http.Client
	transport      *http.Transport
	timeout        time.Duration
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	defaultHeaders map[string]string
	limiter        *rate.Limiter
	maxBodySize    int64
	closeOnRelease bool
	logger         logrus.FieldLogger
}

type ClientOption func(*Client)

// exchangeKey carries the per-exchange policy through the request context
// so the shared redirect and proxy hooks can read it.
type exchangeKey struct{}

type exchangePolicy struct {
	follow   bool
	streamed bool
	proxied  atomic.Bool
}

func policyFrom(ctx context.Context) *exchangePolicy {
	p, _ := ctx.Value(exchangeKey{}).(*exchangePolicy)
	return p
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:        DefaultTimeout,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		defaultHeaders: make(map[string]string),
		maxBodySize:    DefaultMaxBodySize,
		logger:         logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.transport = &http.Transport{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		Proxy:               c.proxyFunc(),
	}

	if !c.validateSSL {
		c.transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	c.httpClient = &http.Client{
		Transport:     c.transport,
		Timeout:       c.timeout,
		CheckRedirect: c.checkRedirect,
	}

	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// WithDefaultHeaders sets headers added to every request unless the
// connection sets them itself
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders[k] = v
		}
	}
}

// WithValidateSSL enables or disables certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy routes every request through proxyURL. Without it the
// HTTP_PROXY family of environment variables is honored.
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithRateLimit allows at most rps requests per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxBodySize limits how many response body bytes are kept; 0 means no limit
func WithMaxBodySize(n int64) ClientOption {
	return func(c *Client) {
		c.maxBodySize = n
	}
}

// WithCloseOnRelease makes Release drop idle pooled connections
func WithCloseOnRelease(enabled bool) ClientOption {
	return func(c *Client) {
		c.closeOnRelease = enabled
	}
}

func WithLogger(l logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func (c *Client) proxyFunc() func(*http.Request) (*neturl.URL, error) {
	base := http.ProxyFromEnvironment
	if c.proxyURL != "" {
		if u, err := neturl.Parse(c.proxyURL); err == nil {
			base = http.ProxyURL(u)
		}
	}
	return func(req *http.Request) (*neturl.URL, error) {
		u, err := base(req)
		if err == nil && u != nil {
			if p := policyFrom(req.Context()); p != nil {
				p.proxied.Store(true)
			}
		}
		return u, err
	}
}

func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	p := policyFrom(req.Context())
	if p == nil || !p.follow || p.streamed {
		return http.ErrUseLastResponse
	}
	if len(via) > c.maxRedirects {
		return http.ErrUseLastResponse
	}
	return nil
}

// SupportsAuthenticator reports that Client honors per-connection authenticators
func (c *Client) SupportsAuthenticator() bool {
	return true
}

// Release is called when a connection is disconnected. The body has already
// been read, so the socket is back in the pool unless WithCloseOnRelease is set.
func (c *Client) Release(*conn.Result) {
	if c.closeOnRelease {
		c.transport.CloseIdleConnections()
	}
}

// Exchange sends req and materializes the response. A streamed request whose
// response asks for a redirect (when following) or for credentials (when an
// authenticator is set) yields a *conn.RetryError.
func (c *Client) Exchange(ctx context.Context, req *conn.Request) (*conn.Result, error) {
	if req == nil || req.URL == nil {
		return nil, errors.New("nil request")
	}
	if err := ValidateURL(req.URL.String()); err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	log := c.logger.WithFields(logrus.Fields{
		"conn_id": req.ID.String(),
		"method":  req.Method,
		"url":     req.URL.String(),
	})

	if req.Streamed() {
		return c.exchangeStreamed(ctx, req, log)
	}

	var payload []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		payload = b
	}

	policy := &exchangePolicy{follow: req.FollowRedirects}
	resp, err := c.send(ctx, req, policy, bytesBody(payload), int64(len(payload)), "", "")
	if err != nil {
		return nil, err
	}

	if req.Authenticator != nil && needsCredentials(resp.StatusCode) {
		key, value, err := c.authorize(req, resp)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		if key != "" {
			log.WithField("status", resp.StatusCode).Debug("retrying with credentials")
			drain(resp)
			policy = &exchangePolicy{follow: req.FollowRedirects}
			resp, err = c.send(ctx, req, policy, bytesBody(payload), int64(len(payload)), key, value)
			if err != nil {
				return nil, err
			}
		}
	}

	res, err := c.materialize(resp, policy)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"status": res.StatusLine, "proxied": res.Proxied}).Debug("exchange completed")
	return res, nil
}

func (c *Client) exchangeStreamed(ctx context.Context, req *conn.Request, log logrus.FieldLogger) (*conn.Result, error) {
	policy := &exchangePolicy{follow: req.FollowRedirects, streamed: true}

	var body io.Reader = req.Body
	length := req.Streaming.Length
	switch req.Streaming.Kind {
	case conn.StreamChunked:
		length = -1
	case conn.StreamFixedLength:
		if length == 0 {
			body = nil
		}
	}

	resp, err := c.send(ctx, req, policy, body, length, "", "")
	if err != nil {
		return nil, err
	}

	code := resp.StatusCode
	location := resp.Header.Get("Location")
	switch {
	case policy.follow && conn.IsRedirect(code) && code != http.StatusNotModified && location != "":
		drain(resp)
		log.WithField("status", code).Debug("redirect needs a replay")
		return nil, retryError(req, resp, location)
	case req.Authenticator != nil && needsCredentials(code):
		drain(resp)
		log.WithField("status", code).Debug("authentication needs a replay")
		return nil, retryError(req, resp, "")
	}

	res, err := c.materialize(resp, policy)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"status": res.StatusLine, "streaming": req.Streaming.String()}).Debug("streamed exchange completed")
	return res, nil
}

func (c *Client) send(ctx context.Context, req *conn.Request, policy *exchangePolicy, body io.Reader, length int64, authKey, authValue string) (*http.Response, error) {
	ctx = context.WithValue(ctx, exchangeKey{}, policy)

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		httpReq.ContentLength = length
	}

	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if authKey != "" {
		httpReq.Header.Set(authKey, authValue)
	}

	return c.httpClient.Do(httpReq)
}

// materialize reads the whole body and flattens the header into ordered fields
func (c *Client) materialize(resp *http.Response, policy *exchangePolicy) (*conn.Result, error) {
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if c.maxBodySize > 0 {
		r = io.LimitReader(resp.Body, c.maxBodySize+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if c.maxBodySize > 0 && int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, c.maxBodySize)
	}

	res := &conn.Result{
		StatusLine: resp.Proto + " " + resp.Status,
		Header:     headerFields(resp.Header),
		Body:       body,
		Proxied:    policy.proxied.Load(),
	}
	if resp.Request != nil {
		res.FinalURL = resp.Request.URL
	}
	return res, nil
}

// headerFields orders keys lexically with one field per value
func headerFields(h http.Header) []conn.HeaderField {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]conn.HeaderField, 0, len(keys))
	for _, k := range keys {
		for _, v := range h[k] {
			fields = append(fields, conn.HeaderField{Key: k, Value: v})
		}
	}
	return fields
}

func retryError(req *conn.Request, resp *http.Response, location string) *conn.RetryError {
	return &conn.RetryError{
		Target:     req.URL,
		Location:   location,
		StatusCode: resp.StatusCode,
		Reason:     strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "),
		Header:     resp.Header.Clone(),
	}
}

func needsCredentials(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusProxyAuthRequired
}

func bytesBody(b []byte) io.Reader {
	if len(b) == 0 {
		return nil
	}
	return bytes.NewReader(b)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}
