package output

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
	"github.com/abdul-hamid-achik/hitconn/packages/probe"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Exchanges []JSONExchange `json:"exchanges,omitempty"`
	Probe     *JSONProbe     `json:"probe,omitempty"`
	Statuses  []JSONStatus   `json:"statuses,omitempty"`
	Errors    []string       `json:"errors,omitempty"`
	Time      string         `json:"time"`
}

// JSONHeader is one response header field, in response order
type JSONHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// JSONExchange represents a single exchange
type JSONExchange struct {
	ID         string         `json:"id"`
	Method     string         `json:"method"`
	URL        string         `json:"url"`
	StatusLine string         `json:"statusLine,omitempty"`
	StatusCode int            `json:"statusCode"`
	Message    string         `json:"message,omitempty"`
	Headers    []JSONHeader   `json:"headers,omitempty"`
	Body       string         `json:"body,omitempty"`
	BodyBytes  int            `json:"bodyBytes"`
	UsingProxy bool           `json:"usingProxy"`
	Duration   float64        `json:"duration"`
	Error      string         `json:"error,omitempty"`
	ErrorKind  string         `json:"errorKind,omitempty"`
	Captures   map[string]any `json:"captures,omitempty"`
}

// JSONProbe represents a probe summary; durations are in milliseconds
type JSONProbe struct {
	URL       string           `json:"url"`
	Total     int64            `json:"total"`
	Succeeded int64            `json:"succeeded"`
	Errors    int64            `json:"errors"`
	ErrorRate float64          `json:"errorRate"`
	RPS       float64          `json:"rps"`
	Codes     map[string]int64 `json:"codes,omitempty"`
	Classes   map[string]int64 `json:"classes,omitempty"`
	P50       float64          `json:"p50"`
	P95       float64          `json:"p95"`
	P99       float64          `json:"p99"`
	Min       float64          `json:"min"`
	Max       float64          `json:"max"`
	Mean      float64          `json:"mean"`
	Duration  float64          `json:"duration"`
}

// JSONStatus is one status catalogue entry
type JSONStatus struct {
	Code       int    `json:"code"`
	Name       string `json:"name"`
	Text       string `json:"text"`
	Deprecated bool   `json:"deprecated,omitempty"`
}

// JSONFormatter accumulates results and writes them as one document on Flush
type JSONFormatter struct {
	writer io.Writer
	out    JSONOutput
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (f *JSONFormatter) FormatExchange(ex *Exchange) {
	je := JSONExchange{
		ID:         ex.ID,
		Method:     ex.Method,
		URL:        ex.URL,
		StatusLine: ex.StatusLine,
		StatusCode: ex.StatusCode,
		Message:    ex.Message,
		BodyBytes:  len(ex.Body),
		UsingProxy: ex.UsingProxy,
		Duration:   ms(ex.Duration),
		Captures:   ex.Captures,
	}
	for _, h := range ex.Headers {
		je.Headers = append(je.Headers, JSONHeader{Key: h.Key, Value: h.Value})
	}
	if utf8.Valid(ex.Body) {
		je.Body = string(ex.Body)
	}
	if ex.Err != nil {
		je.Error = ex.Err.Error()
		if kind, ok := conn.KindOf(ex.Err); ok {
			je.ErrorKind = string(kind)
		}
	}
	f.out.Exchanges = append(f.out.Exchanges, je)
}

func (f *JSONFormatter) FormatSummary(target string, s *probe.Summary) {
	jp := &JSONProbe{
		URL:       target,
		Total:     s.Total,
		Succeeded: s.Succeeded(),
		Errors:    s.Errors,
		ErrorRate: s.ErrorRate,
		RPS:       s.RPS,
		Classes:   s.Classes,
		P50:       ms(s.P50),
		P95:       ms(s.P95),
		P99:       ms(s.P99),
		Min:       ms(s.Min),
		Max:       ms(s.Max),
		Mean:      ms(s.Mean),
		Duration:  ms(s.Duration),
	}
	if len(s.Codes) > 0 {
		jp.Codes = make(map[string]int64, len(s.Codes))
		for code, n := range s.Codes {
			jp.Codes[strconv.Itoa(code)] = n
		}
	}
	f.out.Probe = jp
}

func (f *JSONFormatter) FormatStatuses(entries []conn.StatusEntry) {
	for _, e := range entries {
		f.out.Statuses = append(f.out.Statuses, JSONStatus{
			Code:       e.Code,
			Name:       e.Name,
			Text:       e.Text,
			Deprecated: e.Deprecated,
		})
	}
}

func (f *JSONFormatter) FormatError(err error) {
	f.out.Errors = append(f.out.Errors, err.Error())
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush() error {
	f.out.Time = time.Now().Format(time.RFC3339)
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.out)
}
