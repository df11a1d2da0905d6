package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/telhawk-systems/telhawk-correlate/internal/config"
	"github.com/telhawk-systems/telhawk-correlate/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "thawk-correlate",
	Short: "TelHawk batch detection and correlation",
	Long: `thawk-correlate loads telemetry exported from cloud audit logs, host traces
and network flow logs, enriches every event, evaluates the built-in detection
rules and delivers the resulting alerts.

Configuration is read from $HOME/.thawk/correlate.yaml (or
$TELHAWK_CONFIG_DIR/correlate.yaml), overridden by THAWK_* environment
variables and then by command-line flags.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.thawk/correlate.yaml)")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "json", "log format: json, text")
}

// loadConfig reads configuration with the command's flags layered on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(cfgFile, cmd.Flags())
}

// newLogger builds the process logger. Logs go to the command's stderr so
// alert output on stdout stays machine-readable.
func newLogger(cfg *config.Config, w io.Writer) *logging.Logger {
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format, w)
	logging.SetDefault(logger)
	return logger
}
