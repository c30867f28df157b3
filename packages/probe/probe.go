package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
)

const (
	DefaultCount       = 20
	DefaultConcurrency = 5
)

// Config describes a probe run: Count exchanges against URL, at most
// Concurrency at a time, started no faster than Rate per second.
type Config struct {
	URL         string
	Method      string
	Header      http.Header
	Body        []byte
	Count       int
	Concurrency int
	Rate        float64 // exchanges per second; 0 means unpaced
	Timeout     time.Duration

	// ConnOptions are passed to every connection, typically the transport
	ConnOptions []conn.Option
}

// Validate fills defaults and rejects unusable settings
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("probe: URL is required")
	}
	if c.Method == "" {
		c.Method = conn.MethodGet
	}
	if !conn.IsValidMethod(c.Method) {
		return fmt.Errorf("probe: invalid HTTP method: %s", c.Method)
	}
	if c.Count <= 0 {
		c.Count = DefaultCount
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Concurrency > c.Count {
		c.Concurrency = c.Count
	}
	if c.Rate < 0 {
		return fmt.Errorf("probe: rate must not be negative: %g", c.Rate)
	}
	return nil
}

// Prober repeats one exchange, each on a fresh Connection
type Prober struct {
	config  Config
	limiter *rate.Limiter
	metrics *Metrics
	logger  logrus.FieldLogger
}

type Option func(*Prober)

func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Prober) {
		if l != nil {
			p.logger = l
		}
	}
}

// New validates cfg and returns a prober for it
func New(cfg Config, opts ...Option) (*Prober, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Prober{
		config:  cfg,
		metrics: NewMetrics(),
		logger:  logrus.StandardLogger(),
	}
	if cfg.Rate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run performs the exchanges and returns the summary. Failed exchanges are
// counted, not returned; Run fails only when ctx ends before all exchanges
// were started, and still returns the partial summary.
func (p *Prober) Run(ctx context.Context) (*Summary, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)

	p.metrics.Start()
	var runErr error
	for i := 0; i < p.config.Count; i++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(gctx); err != nil {
				runErr = err
				break
			}
		}
		if err := gctx.Err(); err != nil {
			runErr = err
			break
		}
		i := i
		g.Go(func() error {
			p.exchange(gctx, i)
			return nil
		})
	}
	_ = g.Wait()
	p.metrics.Stop()

	summary := p.metrics.GetSummary()
	p.logger.WithFields(logrus.Fields{
		"url":    p.config.URL,
		"total":  summary.Total,
		"errors": summary.Errors,
		"p99":    summary.P99,
	}).Debug("probe finished")
	return summary, runErr
}

func (p *Prober) exchange(ctx context.Context, seq int) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	code, err := p.once(ctx)
	elapsed := time.Since(start)
	p.metrics.Record(code, elapsed, err)

	log := p.logger.WithFields(logrus.Fields{"seq": seq, "status": code, "elapsed": elapsed})
	if err != nil {
		log.WithError(err).Debug("probe exchange failed")
		return
	}
	log.Debug("probe exchange completed")
}

func (p *Prober) once(ctx context.Context) (int, error) {
	c, err := conn.Open(p.config.URL, p.config.ConnOptions...)
	if err != nil {
		return -1, err
	}
	defer c.Disconnect()

	if err := c.SetMethod(p.config.Method); err != nil {
		return -1, err
	}
	for k, vs := range p.config.Header {
		for _, v := range vs {
			if err := c.AddRequestHeader(k, v); err != nil {
				return -1, err
			}
		}
	}
	if len(p.config.Body) > 0 {
		w, err := c.OutputStream(ctx)
		if err != nil {
			return -1, err
		}
		if _, err := w.Write(p.config.Body); err != nil {
			return -1, err
		}
	}
	if err := c.Connect(ctx); err != nil {
		return -1, err
	}
	code, err := c.ResponseCode()
	if err != nil {
		return -1, err
	}
	if r, _ := c.InputStream(); r != nil {
		_, _ = io.Copy(io.Discard, r)
	}
	return code, nil
}
