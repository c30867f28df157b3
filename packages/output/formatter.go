package output

import (
	"fmt"
	"io"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
	"github.com/abdul-hamid-achik/hitconn/packages/probe"
)

// Formatter renders command results
type Formatter interface {
	FormatExchange(ex *Exchange)
	FormatSummary(target string, s *probe.Summary)
	FormatStatuses(entries []conn.StatusEntry)
	FormatError(err error)
	// Flush writes anything the formatter accumulated
	Flush() error
}

// New returns the formatter for format, "console" or "json"
func New(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch format {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}
