package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitconn/packages/core/config"
	"github.com/abdul-hamid-achik/hitconn/packages/output"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag  string
	verboseFlag bool
	noColorFlag bool
	outputFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "hitconn",
	Short: "One URL, one exchange, every detail.",
	Long: `hitconn drives single HTTP exchanges through a stateful connection:
pick the method, stream the body fixed-length or chunked, decide about
redirects and credentials, then walk the response headers in order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || ee.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("HITCONN_CONFIG", ""), "Path to config file (env: HITCONN_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("HITCONN_VERBOSE", false), "Show request line, headers and debug logs (env: HITCONN_VERBOSE)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITCONN_NO_COLOR", false), "Disable colored output (env: HITCONN_NO_COLOR)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", getEnvString("HITCONN_OUTPUT", ""), "Output format: console, json (env: HITCONN_OUTPUT)")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// settings is the effective configuration of one command invocation
type settings struct {
	cfg    *config.Config
	path   string // config file in effect; empty when running on defaults
	logger *logrus.Logger
}

// configPath returns --config, or the first config file found in the
// working directory
func configPath() (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for _, name := range config.ConfigFilenames {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// loadSettings reads the config file and overlays the persistent flags
// the user actually set
func loadSettings(cmd *cobra.Command) (*settings, error) {
	path, err := configPath()
	if err != nil {
		return nil, configError(err)
	}

	cfg := config.DefaultConfig()
	if path != "" {
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, configError(err)
		}
	}

	flags := cmd.Flags()
	overlay := &config.Config{}
	if flags.Changed("verbose") || verboseFlag {
		overlay.Verbose = config.BoolPtr(verboseFlag)
	}
	if flags.Changed("no-color") || noColorFlag {
		overlay.NoColor = config.BoolPtr(noColorFlag)
	}
	if outputFlag != "" {
		overlay.Output = outputFlag
	}
	cfg = cfg.Merge(overlay)
	if err := cfg.Validate(); err != nil {
		return nil, configError(err)
	}

	return &settings{cfg: cfg, path: path, logger: newLogger(cmd, cfg)}, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(cfg.Level())
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors:    cfg.GetNoColor(),
		DisableTimestamp: true,
	})
	return logger
}

func (s *settings) formatter(cmd *cobra.Command) (output.Formatter, error) {
	f, err := output.New(s.cfg.Output, cmd.OutOrStdout(), s.cfg.GetVerbose(), s.cfg.GetNoColor())
	if err != nil {
		return nil, usageError(err)
	}
	return f, nil
}
