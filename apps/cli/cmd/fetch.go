package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitconn/packages/capture"
	"github.com/abdul-hamid-achik/hitconn/packages/conn"
	"github.com/abdul-hamid-achik/hitconn/packages/core/config"
	"github.com/abdul-hamid-achik/hitconn/packages/output"
	"github.com/abdul-hamid-achik/hitconn/packages/security"
	"github.com/abdul-hamid-achik/hitconn/packages/transport"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Perform one HTTP exchange and show the response",
	Long: `Perform one HTTP exchange through a connection and print the
status line, headers and body.

Examples:
  hitconn fetch https://api.example.com/health
  hitconn fetch https://api.example.com/items -X PUT -d '{"name":"a"}' -H 'Content-Type: application/json'
  hitconn fetch https://api.example.com/upload --data-file big.bin --chunked 8192
  hitconn fetch https://api.example.com/upload --data-file big.bin --fixed-length
  hitconn fetch https://api.example.com/private --user alice:secret
  hitconn fetch https://api.example.com/users/1 --select body:name --select header:ETag
  hitconn fetch https://api.example.com/items --data-file item.json --watch`,
	Args: cobra.ExactArgs(1),
	RunE: fetchCommand,
}

// WatchDebounceDelay is the debounce delay for file watch events
var WatchDebounceDelay = 300 * time.Millisecond

var (
	methodFlag      string
	headerFlags     []string
	dataFlag        string
	dataFileFlag    string
	fixedLengthFlag bool
	chunkedFlag     int
	noFollowFlag    bool
	userFlag        string
	allowTraceFlag  bool
	proxyFlag       string
	insecureFlag    bool
	timeoutFlag     string
	selectFlags     []string
	watchFlag       bool
)

func init() {
	// Request flags
	fetchCmd.Flags().StringVarP(&methodFlag, "method", "X", "", "Request method (default GET, POST when a body is sent)")
	fetchCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "Request header 'Key: Value' (repeatable)")
	fetchCmd.Flags().StringVarP(&dataFlag, "data", "d", "", "Request body")
	fetchCmd.Flags().StringVar(&dataFileFlag, "data-file", "", "Read the request body from a file")
	fetchCmd.Flags().BoolVar(&fixedLengthFlag, "fixed-length", false, "Stream the body with its exact Content-Length")
	fetchCmd.Flags().IntVar(&chunkedFlag, "chunked", 0, "Stream the body in chunks of this size (0 uses the configured chunkSize)")
	fetchCmd.Flags().StringVar(&userFlag, "user", getEnvString("HITCONN_USER", ""), "Credentials 'user:password' answered to Basic or Digest challenges (env: HITCONN_USER)")
	fetchCmd.Flags().BoolVar(&allowTraceFlag, "allow-trace", false, "Permit the TRACE method")
	fetchCmd.Flags().StringSliceVar(&selectFlags, "select", nil, "Print captured values instead of the body: status, header:<name>, body:<gjson path>")

	// Network flags
	fetchCmd.Flags().BoolVar(&noFollowFlag, "no-follow", false, "Do not follow redirects")
	fetchCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HITCONN_PROXY", ""), "Proxy URL for HTTP requests (env: HITCONN_PROXY)")
	fetchCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITCONN_INSECURE", false), "Disable SSL certificate validation (env: HITCONN_INSECURE)")
	fetchCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HITCONN_TIMEOUT", ""), "Request timeout (e.g., 30s, 1m) (env: HITCONN_TIMEOUT)")

	fetchCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Re-run when the data file or config file changes")
}

// fetchConfig overlays the fetch network flags onto cfg
func fetchConfig(cfg *config.Config) (*config.Config, error) {
	overlay := &config.Config{Proxy: proxyFlag}
	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil || d <= 0 {
			return nil, usageError(fmt.Errorf("invalid timeout: %q", timeoutFlag))
		}
		overlay.Timeout = int(d.Milliseconds())
	}
	if insecureFlag {
		overlay.ValidateSSL = config.BoolPtr(false)
	}
	if noFollowFlag {
		overlay.FollowRedirects = config.BoolPtr(false)
	}
	if allowTraceFlag {
		overlay.AllowTrace = config.BoolPtr(true)
	}
	return cfg.Merge(overlay), nil
}

// parseHeader splits a 'Key: Value' flag
func parseHeader(h string) (string, string, error) {
	key, value, ok := strings.Cut(h, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid header %q, want 'Key: Value'", h)
	}
	return key, strings.TrimSpace(value), nil
}

// parseUser splits a 'user:password' flag
func parseUser(u string) (conn.Credentials, error) {
	name, password, ok := strings.Cut(u, ":")
	if !ok || name == "" {
		return conn.Credentials{}, fmt.Errorf("invalid --user %q, want 'user:password'", u)
	}
	return conn.Credentials{Username: name, Password: password}, nil
}

func requestBody() ([]byte, error) {
	if dataFlag != "" && dataFileFlag != "" {
		return nil, usageError(errors.New("--data and --data-file are mutually exclusive"))
	}
	if dataFileFlag != "" {
		data, err := os.ReadFile(dataFileFlag)
		if err != nil {
			return nil, usageError(fmt.Errorf("cannot read data file: %w", err))
		}
		return data, nil
	}
	if dataFlag != "" {
		return []byte(dataFlag), nil
	}
	return nil, nil
}

func fetchCommand(cmd *cobra.Command, args []string) error {
	if fixedLengthFlag && cmd.Flags().Changed("chunked") {
		return usageError(errors.New("--fixed-length and --chunked are mutually exclusive"))
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := fetchOnce(ctx, cmd, args[0])
	if !watchFlag {
		return err
	}
	return watchFetch(ctx, cmd, args[0])
}

// fetchOnce loads settings, performs the exchange and renders it
func fetchOnce(ctx context.Context, cmd *cobra.Command, target string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	cfg, err := fetchConfig(s.cfg)
	if err != nil {
		return err
	}

	selectors := make([]capture.Capture, 0, len(selectFlags))
	for _, sel := range selectFlags {
		c, err := capture.ParseSelector(sel)
		if err != nil {
			return usageError(err)
		}
		selectors = append(selectors, c)
	}

	body, err := requestBody()
	if err != nil {
		return err
	}
	if body == nil && (fixedLengthFlag || cmd.Flags().Changed("chunked")) {
		return usageError(errors.New("--fixed-length and --chunked need a request body (--data or --data-file)"))
	}

	formatter, err := s.formatter(cmd)
	if err != nil {
		return err
	}

	policy := security.DefaultPolicy()
	defaults := conn.NewDefaults()
	if err := cfg.Apply(defaults, policy); err != nil {
		return configError(err)
	}

	client := transport.NewClient(append(cfg.TransportOptions(), transport.WithLogger(s.logger))...)
	c, err := conn.Open(target,
		conn.WithTransport(client),
		conn.WithDefaults(defaults),
		conn.WithChecker(policy),
		conn.WithLogger(s.logger),
	)
	if err != nil {
		return usageError(err)
	}
	defer c.Disconnect()

	chunkSize := 0
	if cmd.Flags().Changed("chunked") {
		chunkSize = chunkedFlag
		if chunkSize <= 0 {
			chunkSize = cfg.ChunkSize
		}
	}
	if err := configure(c, body, chunkSize); err != nil {
		return err
	}

	start := time.Now()
	var writeErr error
	if body != nil {
		w, err := c.OutputStream(ctx)
		if err != nil {
			return usageError(err)
		}
		_, writeErr = w.Write(body)
	}
	// Connect closes a streamed body; its error wins over the write's
	connectErr := c.Connect(ctx)
	if connectErr == nil {
		connectErr = writeErr
	}
	ex := output.Snapshot(c, time.Since(start), connectErr)

	if connectErr == nil && len(selectors) > 0 {
		if e, err := capture.FromConnection(c); err == nil {
			ex.Captures = capture.ExtractAll(e, selectors)
		}
	}

	formatter.FormatExchange(ex)
	if err := formatter.Flush(); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}

	switch {
	case ex.Err != nil:
		return withExit(classify(ex.Err), nil)
	case ex.Failed():
		return withExit(ExitHTTPError, nil)
	}
	return nil
}

// configure applies the request flags to an unconfigured connection.
// A positive chunkSize selects chunked streaming.
func configure(c *conn.Connection, body []byte, chunkSize int) error {
	if methodFlag != "" {
		if err := c.SetMethod(strings.ToUpper(methodFlag)); err != nil {
			if errors.Is(err, conn.ErrPermissionDenied) {
				return usageError(fmt.Errorf("%w (use --allow-trace)", err))
			}
			return usageError(err)
		}
	}
	for _, h := range headerFlags {
		key, value, err := parseHeader(h)
		if err != nil {
			return usageError(err)
		}
		if err := c.AddRequestHeader(key, value); err != nil {
			return usageError(err)
		}
	}
	if userFlag != "" {
		creds, err := parseUser(userFlag)
		if err != nil {
			return usageError(err)
		}
		if err := c.SetAuthenticator(conn.StaticAuthenticator(creds)); err != nil {
			return configError(err)
		}
	}

	switch {
	case fixedLengthFlag && body != nil:
		if err := c.SetFixedLengthStreamingMode(int64(len(body))); err != nil {
			return usageError(err)
		}
	case chunkSize > 0 && body != nil:
		if err := c.SetChunkedStreamingMode(chunkSize); err != nil {
			return usageError(err)
		}
	}
	return nil
}

// watchFetch re-runs the fetch whenever the data file or the config file
// is written, until ctx is cancelled
func watchFetch(ctx context.Context, cmd *cobra.Command, target string) error {
	watched := map[string]bool{}
	if dataFileFlag != "" {
		if abs, err := filepath.Abs(dataFileFlag); err == nil {
			watched[abs] = true
		}
	}
	if path, err := configPath(); err == nil && path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			watched[abs] = true
		}
	}
	if len(watched) == 0 {
		return usageError(errors.New("--watch needs --data-file or a config file"))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories so editors that replace files are still seen
	dirs := map[string]bool{}
	for path := range watched {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	// Re-runs happen one at a time on a single worker; a change seen while
	// one is running queues at most one more
	ctx, stop := context.WithCancel(ctx)
	rerun := make(chan string, 1)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case name := <-rerun:
				fmt.Fprintf(cmd.ErrOrStderr(), "\nFile changed: %s\nRe-running...\n\n", name)
				if err := fetchOnce(ctx, cmd, target); err != nil {
					var ee *exitError
					if !errors.As(err, &ee) || ee.err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					}
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n")
			}
		}
	}()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case rerun <- name:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watcher error: %v\n", err)
		}
	}
}
