package probe

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
)

// Latencies are recorded in microseconds between 1us and 60s
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Metrics aggregates exchange outcomes. It is safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	histogram *hdrhistogram.Histogram
	total     int64
	errors    int64
	codes     map[int]int64

	startTime time.Time
	endTime   time.Time
}

// NewMetrics creates a new Metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
		codes:     make(map[int]int64),
	}
}

// Start marks the beginning of the run
func (m *Metrics) Start() {
	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
}

// Stop marks the end of the run
func (m *Metrics) Stop() {
	m.mu.Lock()
	m.endTime = time.Now()
	m.mu.Unlock()
}

// Record records one exchange. A non-nil err counts as an error and its
// code is ignored; otherwise code is tallied, -1 included.
func (m *Metrics) Record(code int, duration time.Duration, err error) {
	latencyUs := duration.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	if err != nil {
		m.errors++
	} else {
		m.codes[code]++
	}
	_ = m.histogram.RecordValue(latencyUs)
}

// Summary is the final result of a probe run
type Summary struct {
	Duration time.Duration
	Total    int64
	Errors   int64
	Codes    map[int]int64
	Classes  map[string]int64 // "2xx", "4xx", ... and "other" for unparsable status lines

	RPS       float64
	ErrorRate float64

	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// Succeeded counts exchanges that completed with a 1xx to 3xx status
func (s *Summary) Succeeded() int64 {
	return s.Classes["1xx"] + s.Classes["2xx"] + s.Classes["3xx"]
}

// GetSummary returns the metrics summary
func (m *Metrics) GetSummary() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	duration := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	s := &Summary{
		Duration: duration,
		Total:    m.total,
		Errors:   m.errors,
		Codes:    make(map[int]int64, len(m.codes)),
		Classes:  make(map[string]int64),
	}
	for code, n := range m.codes {
		s.Codes[code] = n
		s.Classes[classOf(code)] += n
	}

	if duration.Seconds() > 0 {
		s.RPS = float64(m.total) / duration.Seconds()
	}
	if m.total > 0 {
		s.ErrorRate = float64(m.errors) / float64(m.total)
		s.P50 = time.Duration(m.histogram.ValueAtQuantile(50)) * time.Microsecond
		s.P95 = time.Duration(m.histogram.ValueAtQuantile(95)) * time.Microsecond
		s.P99 = time.Duration(m.histogram.ValueAtQuantile(99)) * time.Microsecond
		s.Min = time.Duration(m.histogram.Min()) * time.Microsecond
		s.Max = time.Duration(m.histogram.Max()) * time.Microsecond
		s.Mean = time.Duration(m.histogram.Mean()) * time.Microsecond
	}
	return s
}

func classOf(code int) string {
	switch {
	case conn.IsInformational(code):
		return "1xx"
	case conn.IsSuccess(code):
		return "2xx"
	case conn.IsRedirect(code):
		return "3xx"
	case conn.IsClientError(code):
		return "4xx"
	case conn.IsServerError(code):
		return "5xx"
	}
	return "other"
}
