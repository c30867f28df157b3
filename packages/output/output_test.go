package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
	"github.com/abdul-hamid-achik/hitconn/packages/probe"
)

func init() {
	color.NoColor = true
}

func completedConn(t *testing.T, res *conn.Result, err error) *conn.Connection {
	t.Helper()
	tr := conn.TransportFunc(func(ctx context.Context, req *conn.Request) (*conn.Result, error) {
		return res, err
	})
	c, openErr := conn.Open("http://example.com/items/1", conn.WithTransport(tr), conn.WithDefaults(conn.NewDefaults()))
	require.NoError(t, openErr)
	_ = c.Connect(context.Background())
	return c
}

func notFound() *conn.Result {
	return &conn.Result{
		StatusLine: "HTTP/1.1 404 Not Found",
		Header: []conn.HeaderField{
			{Key: "Content-Type", Value: "application/json"},
			{Key: "X-Request-Id", Value: "abc"},
		},
		Body: []byte(`{"error":"missing"}`),
	}
}

func TestSnapshot_WalksHeaders(t *testing.T) {
	c := completedConn(t, notFound(), nil)
	ex := Snapshot(c, 12*time.Millisecond, nil)

	assert.Equal(t, "GET", ex.Method)
	assert.Equal(t, "http://example.com/items/1", ex.URL)
	assert.Equal(t, "HTTP/1.1 404 Not Found", ex.StatusLine)
	assert.Equal(t, 404, ex.StatusCode)
	assert.Equal(t, "Not Found", ex.Message)
	assert.Equal(t, []conn.HeaderField{
		{Key: "Content-Type", Value: "application/json"},
		{Key: "X-Request-Id", Value: "abc"},
	}, ex.Headers)
	assert.Equal(t, `{"error":"missing"}`, string(ex.Body), "error body comes from the error stream")
	assert.NoError(t, ex.Err)
	assert.True(t, ex.Failed())
}

func TestSnapshot_Failure(t *testing.T) {
	c := completedConn(t, nil, errors.New("dial tcp: connection refused"))
	_, connectErr := c.ResponseCode()
	ex := Snapshot(c, time.Millisecond, connectErr)

	assert.Equal(t, -1, ex.StatusCode)
	assert.Empty(t, ex.Headers)
	assert.ErrorIs(t, ex.Err, conn.ErrIOFailure)
	assert.True(t, ex.Failed())
}

func TestConsole_Exchange(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatExchange(Snapshot(completedConn(t, notFound(), nil), 12*time.Millisecond, nil))

	out := buf.String()
	assert.Contains(t, out, "HTTP/1.1 404 Not Found (12ms)")
	assert.Contains(t, out, `{"error":"missing"}`)
	assert.NotContains(t, out, "X-Request-Id", "headers only in verbose mode")
}

func TestConsole_ExchangeVerbose(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithVerbose(true), WithNoColor(true))
	f.FormatExchange(Snapshot(completedConn(t, notFound(), nil), 0, nil))

	out := buf.String()
	assert.Contains(t, out, "GET http://example.com/items/1")
	assert.Contains(t, out, "Content-Type: application/json")
	assert.Contains(t, out, "X-Request-Id: abc")
}

func TestConsole_Captures(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	ex := Snapshot(completedConn(t, notFound(), nil), 0, nil)
	ex.Captures = map[string]any{"error": "missing", "list": []any{1, 2}}
	f.FormatExchange(ex)

	out := buf.String()
	assert.Contains(t, out, "error = missing")
	assert.Contains(t, out, "list = [array with 2 items]")
	assert.NotContains(t, out, `{"error":"missing"}`, "captures replace the body")
}

func TestConsole_Error(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatError(errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestConsole_Summary(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatSummary("http://example.com", &probe.Summary{
		Total:     10,
		Errors:    1,
		ErrorRate: 0.1,
		Codes:     map[int]int64{200: 9},
		Classes:   map[string]int64{"2xx": 9},
		P50:       5 * time.Millisecond,
		P99:       20 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "Probe: http://example.com")
	assert.Contains(t, out, "Succeeded: 9")
	assert.Contains(t, out, "Errors:    1 (10.0%)")
	assert.Contains(t, out, "2xx:")
	assert.Contains(t, out, "p50 5ms")
}

func TestConsole_Statuses(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatStatuses(conn.Catalogue)

	out := buf.String()
	assert.Contains(t, out, "StatusServerError")
	assert.Contains(t, out, "(deprecated)")
	assert.Contains(t, out, "404  StatusNotFound")
}

func TestJSON_Flush(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	f.FormatExchange(Snapshot(completedConn(t, notFound(), nil), 1500*time.Microsecond, nil))

	failed := completedConn(t, nil, errors.New("refused"))
	_, err := failed.ResponseCode()
	f.FormatExchange(Snapshot(failed, 0, err))
	require.NoError(t, f.Flush())

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out.Exchanges, 2)

	ok := out.Exchanges[0]
	assert.Equal(t, 404, ok.StatusCode)
	assert.Equal(t, "HTTP/1.1 404 Not Found", ok.StatusLine)
	assert.Equal(t, []JSONHeader{{"Content-Type", "application/json"}, {"X-Request-Id", "abc"}}, ok.Headers)
	assert.Equal(t, 1.5, ok.Duration)
	assert.Equal(t, 19, ok.BodyBytes)

	bad := out.Exchanges[1]
	assert.Equal(t, -1, bad.StatusCode)
	assert.Equal(t, "io-failure", bad.ErrorKind)
	assert.NotEmpty(t, out.Time)
}

func TestJSON_SummaryAndStatuses(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	f.FormatSummary("http://example.com", &probe.Summary{
		Total:   3,
		Codes:   map[int]int64{200: 2, 503: 1},
		Classes: map[string]int64{"2xx": 2, "5xx": 1},
		P95:     2 * time.Millisecond,
	})
	f.FormatStatuses(conn.Catalogue[:2])
	require.NoError(t, f.Flush())

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.NotNil(t, out.Probe)
	assert.Equal(t, int64(2), out.Probe.Succeeded)
	assert.Equal(t, map[string]int64{"200": 2, "503": 1}, out.Probe.Codes)
	assert.Equal(t, 2.0, out.Probe.P95)
	require.Len(t, out.Statuses, 2)
	assert.Equal(t, 100, out.Statuses[0].Code)
}

func TestNew(t *testing.T) {
	f, err := New("json", &bytes.Buffer{}, false, true)
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	f, err = New("", &bytes.Buffer{}, false, true)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleFormatter{}, f)

	_, err = New("xml", &bytes.Buffer{}, false, true)
	assert.Error(t, err)
}
