package conn

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

const (
	// DefaultChunkSize replaces chunk sizes too small to hold a chunk header
	DefaultChunkSize = 4096
	// minChunkSize covers the size digit, two CRLFs and nothing else
	minChunkSize = 5
)

// StreamKind selects how a request body is sent
type StreamKind int

const (
	StreamNone StreamKind = iota
	StreamFixedLength
	StreamChunked
)

func (k StreamKind) String() string {
	switch k {
	case StreamFixedLength:
		return "fixed-length"
	case StreamChunked:
		return "chunked"
	default:
		return "none"
	}
}

// StreamingMode is the active body strategy of a Connection.
type StreamingMode struct {
	Kind      StreamKind
	Length    int64 // declared byte count for StreamFixedLength
	ChunkSize int   // effective chunk size, header included, for StreamChunked
}

// FixedLength returns a fixed-length mode; n must be non-negative.
func FixedLength(n int64) StreamingMode {
	return StreamingMode{Kind: StreamFixedLength, Length: n}
}

// Chunked returns a chunked mode, substituting DefaultChunkSize when size <= 5.
func Chunked(size int) StreamingMode {
	if size <= minChunkSize {
		size = DefaultChunkSize
	}
	return StreamingMode{Kind: StreamChunked, ChunkSize: size}
}

// Streamed reports whether a streaming strategy is selected
func (m StreamingMode) Streamed() bool {
	return m.Kind != StreamNone
}

// PayloadSize is the number of body bytes per chunk once the hex size line
// and the two CRLFs are taken out of ChunkSize. Zero unless chunked.
func (m StreamingMode) PayloadSize() int {
	if m.Kind != StreamChunked {
		return 0
	}
	p := m.ChunkSize - len(strconv.FormatInt(int64(m.ChunkSize), 16)) - 4
	if p < 1 {
		p = 1
	}
	return p
}

func (m StreamingMode) String() string {
	switch m.Kind {
	case StreamFixedLength:
		return fmt.Sprintf("fixed-length(%d)", m.Length)
	case StreamChunked:
		return fmt.Sprintf("chunked(%d)", m.ChunkSize)
	default:
		return "none"
	}
}

// bufferedBody collects the whole body in memory until Connect.
type bufferedBody struct {
	buf    *bytes.Buffer
	closed bool
}

func (b *bufferedBody) Write(p []byte) (int, error) {
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	return b.buf.Write(p)
}

func (b *bufferedBody) Close() error {
	b.closed = true
	return nil
}

// fixedLengthBody passes exactly remaining bytes to the transport.
type fixedLengthBody struct {
	pw        *io.PipeWriter
	declared  int64
	remaining int64
	closed    bool
	err       error
}

func newFixedLengthBody(pw *io.PipeWriter, n int64) *fixedLengthBody {
	return &fixedLengthBody{pw: pw, declared: n, remaining: n}
}

func (f *fixedLengthBody) Write(p []byte) (int, error) {
	if f.closed {
		return 0, io.ErrClosedPipe
	}
	if f.err != nil {
		return 0, f.err
	}
	if int64(len(p)) > f.remaining {
		f.err = newError("Write", KindIOFailure,
			fmt.Errorf("%w: write of %d bytes exceeds %d remaining of %d declared", ErrContentLength, len(p), f.remaining, f.declared))
		f.pw.CloseWithError(f.err)
		return 0, f.err
	}
	n, err := f.pw.Write(p)
	f.remaining -= int64(n)
	if err != nil {
		return n, newError("Write", KindIOFailure, err)
	}
	return n, nil
}

func (f *fixedLengthBody) Close() error {
	if f.closed {
		return f.err
	}
	f.closed = true
	if f.err != nil {
		return f.err
	}
	if f.remaining > 0 {
		f.err = newError("Close", KindIOFailure,
			fmt.Errorf("%w: closed with %d of %d declared bytes unwritten", ErrContentLength, f.remaining, f.declared))
		f.pw.CloseWithError(f.err)
		return f.err
	}
	return f.pw.Close()
}

// chunkedBody hands the transport one payload-sized piece per pipe write,
// which the transport frames as one chunk.
type chunkedBody struct {
	pw     *io.PipeWriter
	buf    []byte
	size   int
	closed bool
}

func newChunkedBody(pw *io.PipeWriter, payload int) *chunkedBody {
	return &chunkedBody{pw: pw, buf: make([]byte, 0, payload), size: payload}
}

func (c *chunkedBody) Write(p []byte) (int, error) {
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	written := 0
	for len(p) > 0 {
		n := min(c.size-len(c.buf), len(p))
		c.buf = append(c.buf, p[:n]...)
		p = p[n:]
		written += n
		if len(c.buf) == c.size {
			if err := c.flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (c *chunkedBody) flush() error {
	if len(c.buf) == 0 {
		return nil
	}
	_, err := c.pw.Write(c.buf)
	c.buf = c.buf[:0]
	if err != nil {
		return newError("Write", KindIOFailure, err)
	}
	return nil
}

func (c *chunkedBody) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.flush(); err != nil {
		c.pw.CloseWithError(err)
		return err
	}
	return c.pw.Close()
}
