package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
	"github.com/abdul-hamid-achik/hitconn/packages/probe"
)

// maxBodyPreview bounds the body shown without --verbose
const maxBodyPreview = 2048

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func statusColor(code int) *color.Color {
	switch {
	case conn.IsSuccess(code):
		return color.New(color.FgGreen, color.Bold)
	case conn.IsRedirect(code), conn.IsInformational(code):
		return color.New(color.FgCyan, color.Bold)
	case conn.IsClientError(code):
		return color.New(color.FgYellow, color.Bold)
	case conn.IsServerError(code):
		return color.New(color.FgRed, color.Bold)
	}
	return color.New(color.Bold)
}

func (f *ConsoleFormatter) FormatExchange(ex *Exchange) {
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	if f.verbose {
		fmt.Fprintf(f.writer, "%s %s %s\n", faint("*"), bold(ex.Method+" "+ex.URL), faint("["+ex.ID+"]"))
	}

	if ex.Err != nil {
		f.FormatError(ex.Err)
		return
	}

	status := ex.StatusLine
	if status == "" {
		status = fmt.Sprintf("%d", ex.StatusCode)
	}
	fmt.Fprintf(f.writer, "%s %s\n", statusColor(ex.StatusCode).Sprint(status), cyan(fmt.Sprintf("(%dms)", ex.Duration.Milliseconds())))

	if f.verbose {
		for _, h := range ex.Headers {
			fmt.Fprintf(f.writer, "%s: %s\n", bold(h.Key), h.Value)
		}
		if ex.UsingProxy {
			fmt.Fprintf(f.writer, "%s\n", faint("* via proxy"))
		}
	}

	if len(ex.Captures) > 0 {
		names := make([]string, 0, len(ex.Captures))
		for name := range ex.Captures {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(f.writer, "%s = %s\n", name, formatValue(ex.Captures[name], 200))
		}
		return
	}

	if len(ex.Body) > 0 {
		fmt.Fprintln(f.writer)
		fmt.Fprintln(f.writer, f.bodyText(ex.Body))
	}
}

func (f *ConsoleFormatter) bodyText(body []byte) string {
	if !utf8.Valid(body) {
		return fmt.Sprintf("[%d bytes of binary data]", len(body))
	}
	text := strings.TrimRight(string(body), "\n")
	if !f.verbose && len(text) > maxBodyPreview {
		return text[:maxBodyPreview] + fmt.Sprintf("\n... (%d more bytes, use --verbose)", len(text)-maxBodyPreview)
	}
	return text
}

func (f *ConsoleFormatter) FormatSummary(target string, s *probe.Summary) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Probe: "+target))
	fmt.Fprintf(f.writer, "  Requests:  %d in %s (%.1f/s)\n", s.Total, s.Duration.Round(time.Millisecond), s.RPS)
	fmt.Fprintf(f.writer, "  Succeeded: %s\n", green(fmt.Sprintf("%d", s.Succeeded())))
	if s.Errors > 0 {
		fmt.Fprintf(f.writer, "  Errors:    %s\n", red(fmt.Sprintf("%d (%.1f%%)", s.Errors, s.ErrorRate*100)))
	} else {
		fmt.Fprintf(f.writer, "  Errors:    0\n")
	}

	classes := make([]string, 0, len(s.Classes))
	for class := range s.Classes {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		fmt.Fprintf(f.writer, "  %-10s %d\n", class+":", s.Classes[class])
	}

	fmt.Fprintf(f.writer, "\n  Latency   p50 %s  p95 %s  p99 %s  max %s\n\n",
		s.P50, s.P95, s.P99, s.Max)
}

func (f *ConsoleFormatter) FormatStatuses(entries []conn.StatusEntry) {
	faint := color.New(color.Faint).SprintFunc()
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-26s %s", statusColor(e.Code).Sprint(e.Code), e.Name, e.Text)
		if e.Deprecated {
			line += " " + faint("(deprecated)")
		}
		fmt.Fprintln(f.writer, line)
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) Flush() error {
	return nil
}
