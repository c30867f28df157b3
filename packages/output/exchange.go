package output

import (
	"time"

	"github.com/abdul-hamid-achik/hitconn/packages/capture"
	"github.com/abdul-hamid-achik/hitconn/packages/conn"
)

// Exchange is a rendered view of one completed (or failed) connection
type Exchange struct {
	ID         string
	Method     string
	URL        string
	StatusLine string
	StatusCode int
	Message    string
	Headers    []conn.HeaderField
	Body       []byte
	UsingProxy bool
	Duration   time.Duration
	Err        error
	Captures   map[string]any
}

// Snapshot reads everything worth showing from c. Headers are collected by
// walking the indexed accessors from 0 until both key and value are absent;
// the keyless field at index 0 becomes StatusLine.
func Snapshot(c *conn.Connection, d time.Duration, err error) *Exchange {
	ex := &Exchange{
		ID:         c.ID().String(),
		Method:     c.Method(),
		URL:        c.Target().String(),
		StatusCode: -1,
		Duration:   d,
		Err:        err,
		UsingProxy: c.UsingProxy(),
	}
	if err != nil {
		return ex
	}

	for n := 0; ; n++ {
		key, kok := c.HeaderFieldKey(n)
		value, vok := c.HeaderField(n)
		if !kok && !vok {
			break
		}
		if !kok {
			if n == 0 {
				ex.StatusLine = value
			}
			continue
		}
		ex.Headers = append(ex.Headers, conn.HeaderField{Key: key, Value: value})
	}

	ex.StatusCode, ex.Err = c.ResponseCode()
	if ex.Err != nil {
		return ex
	}
	ex.Message, _ = c.ResponseMessage()
	ex.Body, ex.Err = capture.Body(c)
	return ex
}

// Failed reports whether the exchange errored or returned a 4xx/5xx status
func (e *Exchange) Failed() bool {
	return e.Err != nil || conn.IsError(e.StatusCode)
}
