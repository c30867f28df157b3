package conn

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// HeaderField is one response header line, kept in transport order
type HeaderField struct {
	Key   string
	Value string
}

// Request is the configuration snapshot a Connection hands to its Transport.
type Request struct {
	ID     uuid.UUID
	Method string
	URL    *url.URL
	Header http.Header

	// Body is nil when there is nothing to send. For streaming modes it is
	// fed by the caller's writes as the exchange runs.
	Body          io.Reader
	ContentLength int64 // -1 when unknown (chunked)

	Streaming       StreamingMode
	FollowRedirects bool
	Authenticator   Authenticator
}

// Streamed reports whether the body is committed to the wire as it is written.
// Streamed requests cannot be replayed for authentication or redirects.
func (r *Request) Streamed() bool {
	return r.Streaming.Streamed()
}

// Result is what a completed exchange materialized.
type Result struct {
	StatusLine string // raw status line, e.g. "HTTP/1.1 200 OK"; empty for non-HTTP responses
	Header     []HeaderField
	Body       []byte
	Proxied    bool // set only when proxy use is positively known
	FinalURL   *url.URL
}

// Get returns the first value for key, matched case-insensitively.
func (r *Result) Get(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, f := range r.Header {
		if strings.EqualFold(f.Key, key) {
			return f.Value, true
		}
	}
	return "", false
}

// HTTPHeader folds the ordered fields into an http.Header
func (r *Result) HTTPHeader() http.Header {
	h := make(http.Header)
	if r == nil {
		return h
	}
	for _, f := range r.Header {
		h.Add(f.Key, f.Value)
	}
	return h
}

// Transport performs the socket-level exchange for a Connection.
//
// Exchange returns a *RetryError when a streamed request meets a response
// demanding authentication or a redirect. Any other error is treated as
// an I/O failure.
type Transport interface {
	Exchange(ctx context.Context, req *Request) (*Result, error)
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(ctx context.Context, req *Request) (*Result, error)

func (f TransportFunc) Exchange(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}

// AuthenticatorSupport is implemented by transports that can act on an Authenticator.
// Transports without it reject SetAuthenticator.
type AuthenticatorSupport interface {
	SupportsAuthenticator() bool
}

// Releaser is implemented by transports that own pooled sockets. Release is
// called once when the Connection is disconnected; whether the socket closes
// is the transport's decision.
type Releaser interface {
	Release(res *Result)
}

// Challenge describes an authentication request from the server or a proxy
type Challenge struct {
	Target *url.URL
	Scheme string // "Basic", "Digest"
	Realm  string
	Proxy  bool
}

// Credentials answer a Challenge
type Credentials struct {
	Username string
	Password string
}

// Authenticator supplies credentials for a Challenge.
// Returning an error abandons authentication and leaves the 401 in place.
type Authenticator interface {
	Authenticate(ch Challenge) (Credentials, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface
type AuthenticatorFunc func(ch Challenge) (Credentials, error)

func (f AuthenticatorFunc) Authenticate(ch Challenge) (Credentials, error) {
	return f(ch)
}

// StaticAuthenticator answers every challenge with the same credentials
type StaticAuthenticator Credentials

func (s StaticAuthenticator) Authenticate(Challenge) (Credentials, error) {
	return Credentials(s), nil
}

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}
