package conn

import (
	"strconv"
	"strings"
)

// StatusLine is a parsed response status line, e.g. "HTTP/1.1 404 Not Found".
type StatusLine struct {
	Proto  string
	Code   int
	Reason string
}

// ParseStatusLine parses an HTTP status line. ok is false when the line is
// not HTTP or carries no three-digit code; a missing reason phrase is fine.
func ParseStatusLine(line string) (StatusLine, bool) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return StatusLine{}, false
	}
	if !strings.HasPrefix(parts[0], "HTTP/") {
		return StatusLine{}, false
	}
	if len(parts[1]) != 3 {
		return StatusLine{}, false
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || code < 100 {
		return StatusLine{}, false
	}
	sl := StatusLine{Proto: parts[0], Code: code}
	if len(parts) == 3 {
		sl.Reason = strings.TrimSpace(parts[2])
	}
	return sl, true
}

func (s StatusLine) String() string {
	if s.Reason == "" {
		return s.Proto + " " + strconv.Itoa(s.Code)
	}
	return s.Proto + " " + strconv.Itoa(s.Code) + " " + s.Reason
}
