package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/telhawk-systems/telhawk-correlate/internal/metrics"
	"github.com/telhawk-systems/telhawk-correlate/internal/output"
	"github.com/telhawk-systems/telhawk-correlate/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Correlate the telemetry in a data directory",
	Long: `Load <source>.jsonl files from the data directory, enrich the events,
evaluate every detection rule and deliver the alerts to each enabled sink.

Examples:
  # Correlate ./data and print a table
  thawk-correlate run

  # Emit JSON and write alerts somewhere else
  thawk-correlate run --data-dir /srv/telemetry --output json --output-file /tmp/alerts.json

  # Evaluate rules in parallel and export metrics for node-exporter
  thawk-correlate run --concurrent --metrics /var/lib/node_exporter/correlate.prom`,
	RunE: runCorrelate,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("data-dir", "data", "directory holding <source>.jsonl files")
	runCmd.Flags().String("output-file", "alerts.json", "write alerts as JSON to this file (empty to disable)")
	runCmd.Flags().Bool("concurrent", false, "evaluate rules in parallel")
	runCmd.Flags().String("metrics", "", "write Prometheus metrics to this textfile")
}

func runCorrelate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	if path := cfg.Path(); path != "" {
		logger.DebugContext(ctx, "loaded config", "path", path)
	}

	p, err := pipeline.FromConfig(ctx, cfg, logger, metrics.New())
	if err != nil {
		return fmt.Errorf("failed to set up pipeline: %w", err)
	}
	defer p.Close()

	res, runErr := p.Run(ctx)
	if res == nil {
		return runErr
	}

	stdout := cmd.OutOrStdout()
	// the summary line must not corrupt JSON on stdout
	summary := stdout
	switch cfg.Output.Format {
	case "json":
		if err := output.WriteJSON(stdout, output.Project(res.RunID, res.Findings)); err != nil {
			return err
		}
		summary = cmd.ErrOrStderr()
	default:
		if err := output.RenderTable(stdout, res.Findings); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	if cfg.Output.Path != "" {
		printSummary(summary, len(res.Findings), cfg.Output.Path)
	}
	return nil
}

func printSummary(w io.Writer, n int, path string) {
	fmt.Fprintf(w, "\nWrote %d alerts to %s\n", n, path)
}
