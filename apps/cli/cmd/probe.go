package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
	"github.com/abdul-hamid-achik/hitconn/packages/probe"
	"github.com/abdul-hamid-achik/hitconn/packages/security"
	"github.com/abdul-hamid-achik/hitconn/packages/transport"
)

var probeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Repeat an exchange and report status classes and latency",
	Long: `Open a fresh connection per exchange, repeat it --count times with at
most --concurrency in flight, and summarize status classes and latency
percentiles.

Examples:
  hitconn probe https://api.example.com/health
  hitconn probe https://api.example.com/health -n 200 -c 20
  hitconn probe https://api.example.com/health -n 100 -r 10
  hitconn probe https://api.example.com/items -X POST -d '{}' -H 'Content-Type: application/json'`,
	Args: cobra.ExactArgs(1),
	RunE: probeCommand,
}

var (
	probeCountFlag       int
	probeConcurrencyFlag int
	probeRateFlag        float64
	probeMethodFlag      string
	probeHeaderFlags     []string
	probeDataFlag        string
	probeMaxErrorsFlag   float64
)

func init() {
	probeCmd.Flags().IntVarP(&probeCountFlag, "count", "n", getEnvInt("HITCONN_COUNT", 0), "Number of exchanges (env: HITCONN_COUNT)")
	probeCmd.Flags().IntVarP(&probeConcurrencyFlag, "concurrency", "c", getEnvInt("HITCONN_CONCURRENCY", 0), "Maximum exchanges in flight (env: HITCONN_CONCURRENCY)")
	probeCmd.Flags().Float64VarP(&probeRateFlag, "rate", "r", 0, "Exchanges started per second (0 is unpaced)")
	probeCmd.Flags().StringVarP(&probeMethodFlag, "method", "X", conn.MethodGet, "Request method")
	probeCmd.Flags().StringArrayVarP(&probeHeaderFlags, "header", "H", nil, "Request header 'Key: Value' (repeatable)")
	probeCmd.Flags().StringVarP(&probeDataFlag, "data", "d", "", "Request body")
	probeCmd.Flags().Float64Var(&probeMaxErrorsFlag, "max-errors", 0, "Fail when the failed-exchange rate exceeds this fraction (0 fails on any failure)")
}

func probeCommand(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if probeMaxErrorsFlag < 0 || probeMaxErrorsFlag > 1 {
		return usageError(fmt.Errorf("--max-errors must be between 0 and 1: %g", probeMaxErrorsFlag))
	}

	header := http.Header{}
	for _, h := range probeHeaderFlags {
		key, value, err := parseHeader(h)
		if err != nil {
			return usageError(err)
		}
		header.Add(key, value)
	}

	policy := security.DefaultPolicy()
	defaults := conn.NewDefaults()
	if err := s.cfg.Apply(defaults, policy); err != nil {
		return configError(err)
	}

	count := s.cfg.Count
	if probeCountFlag > 0 {
		count = probeCountFlag
	}
	concurrency := s.cfg.Concurrency
	if probeConcurrencyFlag > 0 {
		concurrency = probeConcurrencyFlag
	}

	// One client shared by every connection so sockets are pooled
	client := transport.NewClient(append(s.cfg.TransportOptions(), transport.WithLogger(s.logger))...)
	cfg := probe.Config{
		URL:         args[0],
		Method:      strings.ToUpper(probeMethodFlag),
		Header:      header,
		Count:       count,
		Concurrency: concurrency,
		Rate:        probeRateFlag,
		Timeout:     s.cfg.TimeoutDuration(),
		ConnOptions: []conn.Option{
			conn.WithTransport(client),
			conn.WithDefaults(defaults),
			conn.WithChecker(policy),
			conn.WithLogger(s.logger),
		},
	}
	if probeDataFlag != "" {
		cfg.Body = []byte(probeDataFlag)
	}
	if err := transport.ValidateURL(cfg.URL); err != nil {
		return usageError(err)
	}

	prober, err := probe.New(cfg, probe.WithLogger(s.logger))
	if err != nil {
		return usageError(err)
	}

	formatter, err := s.formatter(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	summary, runErr := prober.Run(ctx)
	if summary != nil {
		formatter.FormatSummary(cfg.URL, summary)
	}
	if runErr != nil && !errors.Is(runErr, ctx.Err()) {
		formatter.FormatError(runErr)
	}
	if err := formatter.Flush(); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}

	if summary == nil || summary.Total == 0 {
		return withExit(ExitNetworkError, nil)
	}
	if summary.ErrorRate > probeMaxErrorsFlag {
		return withExit(ExitNetworkError, nil)
	}
	return nil
}
