package conn

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pieceTransport records the size of every read it gets from the body pipe.
// Each pipe write surfaces as exactly one read when the buffer is big enough.
type pieceTransport struct {
	pieces  []int
	body    strings.Builder
	lastReq *Request
}

func (p *pieceTransport) Exchange(ctx context.Context, req *Request) (*Result, error) {
	p.lastReq = req
	buf := make([]byte, 1<<16)
	for {
		n, err := req.Body.Read(buf)
		if n > 0 {
			p.pieces = append(p.pieces, n)
			p.body.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return okResult("HTTP/1.1 200 OK", "stored"), nil
}

func TestChunked_Modes(t *testing.T) {
	assert.Equal(t, StreamingMode{Kind: StreamChunked, ChunkSize: 4096}, Chunked(5))
	assert.Equal(t, StreamingMode{Kind: StreamChunked, ChunkSize: 6}, Chunked(6))
	assert.Equal(t, "chunked(4096)", Chunked(0).String())
	assert.Equal(t, "fixed-length(12)", FixedLength(12).String())
	assert.Equal(t, "none", StreamingMode{}.String())
	assert.False(t, StreamingMode{}.Streamed())
	assert.True(t, FixedLength(0).Streamed())
}

func TestChunked_PayloadSize(t *testing.T) {
	assert.Equal(t, 4096-4-4, Chunked(4096).PayloadSize())
	assert.Equal(t, 10, Chunked(16).PayloadSize())
	assert.Equal(t, 1, Chunked(6).PayloadSize())
	assert.Equal(t, 0, FixedLength(10).PayloadSize())
}

func TestStreamKind_String(t *testing.T) {
	assert.Equal(t, "none", StreamNone.String())
	assert.Equal(t, "fixed-length", StreamFixedLength.String())
	assert.Equal(t, "chunked", StreamChunked.String())
}

func TestFixedLength_ExactBody(t *testing.T) {
	tr := &pieceTransport{}
	c := newTestConn(t, "http://example.com/upload", tr)
	require.NoError(t, c.SetMethod(MethodPut))
	require.NoError(t, c.SetFixedLengthStreamingMode(11))

	w, err := c.OutputStream(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConnected, c.State(), "streaming starts the exchange")

	_, err = io.WriteString(w, "hello ")
	require.NoError(t, err)
	_, err = io.WriteString(w, "world")
	require.NoError(t, err)

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, "hello world", tr.body.String())
	assert.Equal(t, int64(11), tr.lastReq.ContentLength)
	assert.Equal(t, FixedLength(11), tr.lastReq.Streaming)

	code, err := c.ResponseCode()
	require.NoError(t, err)
	assert.Equal(t, 200, code)
}

func TestFixedLength_Overrun(t *testing.T) {
	c := newTestConn(t, "http://example.com/upload", &pieceTransport{})
	require.NoError(t, c.SetFixedLengthStreamingMode(5))

	w, err := c.OutputStream(context.Background())
	require.NoError(t, err)
	_, err = io.WriteString(w, "too long")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIOFailure)
	assert.ErrorIs(t, err, ErrContentLength)

	err = c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrContentLength)
	code, _ := c.ResponseCode()
	assert.Equal(t, -1, code)
}

func TestFixedLength_ShortBody(t *testing.T) {
	c := newTestConn(t, "http://example.com/upload", &pieceTransport{})
	require.NoError(t, c.SetFixedLengthStreamingMode(5))

	w, err := c.OutputStream(context.Background())
	require.NoError(t, err)
	_, err = io.WriteString(w, "abc")
	require.NoError(t, err)

	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIOFailure)
	assert.ErrorIs(t, err, ErrContentLength)
}

func TestFixedLength_ZeroWithoutWriting(t *testing.T) {
	tr := &pieceTransport{}
	c := newTestConn(t, "http://example.com/upload", tr)
	require.NoError(t, c.SetFixedLengthStreamingMode(0))

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, MethodPost, tr.lastReq.Method)
	assert.Empty(t, tr.pieces)
}

func TestChunked_Framing(t *testing.T) {
	tr := &pieceTransport{}
	c := newTestConn(t, "http://example.com/upload", tr)
	require.NoError(t, c.SetMethod(MethodPost))
	require.NoError(t, c.SetChunkedStreamingMode(16))

	w, err := c.OutputStream(context.Background())
	require.NoError(t, err)
	_, err = io.WriteString(w, strings.Repeat("a", 7))
	require.NoError(t, err)
	_, err = io.WriteString(w, strings.Repeat("b", 18))
	require.NoError(t, err)

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, []int{10, 10, 5}, tr.pieces)
	assert.Equal(t, strings.Repeat("a", 7)+strings.Repeat("b", 18), tr.body.String())
	assert.Equal(t, int64(-1), tr.lastReq.ContentLength)
}

func TestStreamed_RetryRequired(t *testing.T) {
	tr := TransportFunc(func(ctx context.Context, req *Request) (*Result, error) {
		_, _ = io.Copy(io.Discard, req.Body)
		return nil, &RetryError{Target: req.URL, StatusCode: StatusUnauthorized, Reason: "Unauthorized"}
	})
	c := newTestConn(t, "http://example.com/upload", tr)
	require.NoError(t, c.SetChunkedStreamingMode(1024))

	w, err := c.OutputStream(context.Background())
	require.NoError(t, err)
	_, _ = io.WriteString(w, "payload")

	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetryRequired)
	var re *RetryError
	require.True(t, errors.As(err, &re))
	assert.True(t, re.IsAuthentication())
}

func TestStreamed_NoTransport(t *testing.T) {
	c := newTestConn(t, "http://example.com", nil)
	require.NoError(t, c.SetChunkedStreamingMode(100))
	_, err := c.OutputStream(context.Background())
	assert.ErrorIs(t, err, ErrNoTransport)
	assert.Equal(t, MethodGet, c.Method(), "a failed call leaves the method alone")
	assert.Equal(t, StateUnconfigured, c.State())
}

func TestStreamed_DisconnectAborts(t *testing.T) {
	done := make(chan error, 1)
	tr := TransportFunc(func(ctx context.Context, req *Request) (*Result, error) {
		_, err := io.Copy(io.Discard, req.Body)
		done <- err
		return nil, err
	})
	c := newTestConn(t, "http://example.com/upload", tr)
	require.NoError(t, c.SetFixedLengthStreamingMode(100))

	w, err := c.OutputStream(context.Background())
	require.NoError(t, err)
	_, err = io.WriteString(w, "partial")
	require.NoError(t, err)

	c.Disconnect()
	assert.ErrorIs(t, <-done, ErrDisconnected)
	assert.Equal(t, StateDisconnected, c.State())
}
