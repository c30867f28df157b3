package conn

import (
	"context"
	"io"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitconn/packages/security"
)

type fakeTransport struct {
	result *Result
	err    error

	calls   int
	lastReq *Request
	body    []byte
}

func (f *fakeTransport) Exchange(ctx context.Context, req *Request) (*Result, error) {
	f.calls++
	f.lastReq = req
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		f.body = b
		if err != nil {
			return nil, err
		}
	}
	return f.result, f.err
}

// authTransport opts in to authenticators and pooled release
type authTransport struct {
	fakeTransport
	released int
}

func (a *authTransport) SupportsAuthenticator() bool { return true }

func (a *authTransport) Release(*Result) { a.released++ }

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func newTestConn(t *testing.T, rawURL string, tr Transport, opts ...Option) *Connection {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	all := append([]Option{
		WithTransport(tr),
		WithDefaults(NewDefaults()),
		WithChecker(security.AllowAll()),
		WithLogger(quietLogger()),
	}, opts...)
	c, err := New(u, all...)
	require.NoError(t, err)
	return c
}

func okResult(statusLine string, body string, header ...HeaderField) *Result {
	return &Result{StatusLine: statusLine, Header: header, Body: []byte(body)}
}
