package capture

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
)

// Source says where a capture reads from
type Source string

const (
	SourceBody   Source = "body"
	SourceHeader Source = "header"
	SourceStatus Source = "status"
)

// Capture names one value to pull out of a response
type Capture struct {
	Name   string
	Source Source
	Path   string // gjson path for body, header name for header
}

// ParseSelector reads "body:<path>", "header:<name>", "status" or a bare
// gjson path, which is taken as a body path. The capture is named after
// the selector.
func ParseSelector(sel string) (Capture, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return Capture{}, fmt.Errorf("empty selector")
	}
	if sel == string(SourceStatus) {
		return Capture{Name: sel, Source: SourceStatus}, nil
	}
	prefix, rest, found := strings.Cut(sel, ":")
	if found {
		switch Source(prefix) {
		case SourceBody:
			return Capture{Name: sel, Source: SourceBody, Path: rest}, nil
		case SourceHeader:
			if rest == "" {
				return Capture{}, fmt.Errorf("header selector needs a name: %q", sel)
			}
			return Capture{Name: sel, Source: SourceHeader, Path: rest}, nil
		}
	}
	return Capture{Name: sel, Source: SourceBody, Path: sel}, nil
}

type Extractor struct {
	code     int
	header   http.Header
	body     []byte
	bodyJSON gjson.Result
}

func NewExtractor(code int, header http.Header, body []byte) *Extractor {
	e := &Extractor{
		code:   code,
		header: header,
		body:   body,
	}
	if isJSON(header.Get("Content-Type"), body) {
		e.bodyJSON = gjson.ParseBytes(body)
	}
	return e
}

// FromConnection builds an extractor over a completed exchange. The body is
// the normal body for success codes and the error body otherwise.
func FromConnection(c *conn.Connection) (*Extractor, error) {
	code, err := c.ResponseCode()
	if err != nil {
		return nil, err
	}
	body, err := Body(c)
	if err != nil {
		return nil, err
	}
	return NewExtractor(code, c.ResponseHeader(), body), nil
}

func isJSON(contentType string, body []byte) bool {
	if strings.Contains(contentType, "json") {
		return true
	}
	return contentType == "" && gjson.ValidBytes(body)
}

func (e *Extractor) Extract(c Capture) (any, bool) {
	switch c.Source {
	case SourceBody:
		return e.extractFromBody(c.Path)
	case SourceHeader:
		return e.extractFromHeader(c.Path)
	case SourceStatus:
		return e.code, e.code >= 0
	default:
		return nil, false
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return string(e.body), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	values := e.header.Values(name)
	switch len(values) {
	case 0:
		return nil, false
	case 1:
		return values[0], true
	}
	return values, true
}

// ExtractAll returns every capture that resolved, keyed by name
func ExtractAll(e *Extractor, captures []Capture) map[string]any {
	results := make(map[string]any)

	for _, c := range captures {
		if value, ok := e.Extract(c); ok {
			results[c.Name] = value
		}
	}

	return results
}
