package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/telhawk-systems/telhawk-correlate/internal/detection"
)

var rulesCmd = &cobra.Command{
	Use:     "rules",
	Aliases: []string{"ls-rules"},
	Short:   "List the built-in detection rules",
	Long:    "List the detection rules evaluated by run, with the thresholds from the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rules := detection.Describe(detection.Catalog(cfg.Thresholds))
		w := cmd.OutOrStdout()
		if cfg.Output.Format == "json" {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(rules)
		}

		headers := []string{"ID", "Severity", "Technique", "Title"}
		widths := make([]int, len(headers))
		for i, h := range headers {
			widths[i] = len(h)
		}
		rows := make([][]string, len(rules))
		for i, r := range rules {
			rows[i] = []string{r.ID, string(r.Severity), r.Technique, r.Title}
			for j, cell := range rows[i] {
				widths[j] = max(widths[j], len(cell))
			}
		}

		headerColor := color.New(color.FgWhite, color.Bold)
		for i, h := range headers {
			headerColor.Fprintf(w, "%-*s  ", widths[i], h)
		}
		fmt.Fprintln(w)
		for i := range headers {
			fmt.Fprint(w, strings.Repeat("-", widths[i])+"  ")
		}
		fmt.Fprintln(w)
		for _, row := range rows {
			for i, cell := range row {
				fmt.Fprintf(w, "%-*s  ", widths[i], cell)
			}
			fmt.Fprintln(w)
		}

		th := cfg.Thresholds
		fmt.Fprintf(w, "\nThresholds: dns_query_length=%d dns_query_volume=%d failure_count=%d failure_window=%s\n",
			th.DNSQueryLength, th.DNSQueryVolume, th.FailureCount, th.FailureWindow)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
