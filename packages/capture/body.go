package capture

import (
	"io"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
)

// Body returns the body of a completed exchange: the normal body for
// success codes, the error body for 4xx and 5xx. It is nil when the server
// sent an empty error body.
func Body(c *conn.Connection) ([]byte, error) {
	code, err := c.ResponseCode()
	if err != nil {
		return nil, err
	}
	var r io.Reader
	if conn.IsError(code) {
		r, err = c.ErrorStream()
	} else {
		r, err = c.InputStream()
	}
	if err != nil || r == nil {
		return nil, err
	}
	return io.ReadAll(r)
}
