package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// NoDetections is printed when a run produced no findings.
const NoDetections = "No detections generated."

var severityColors = map[telemetry.Severity]*color.Color{
	telemetry.SeverityLow:      color.New(color.FgCyan),
	telemetry.SeverityMedium:   color.New(color.FgYellow),
	telemetry.SeverityHigh:     color.New(color.FgRed),
	telemetry.SeverityCritical: color.New(color.FgRed, color.Bold),
}

var headerColor = color.New(color.FgWhite, color.Bold)

// WriteJSON writes alerts as an indented JSON array.
func WriteJSON(w io.Writer, alerts []Alert) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(alerts)
}

func tableHeader() string {
	return fmt.Sprintf("%-8s | %-10s | Title", "Severity", "Technique")
}

// FormatTable renders findings as a plain text table, one line per finding.
func FormatTable(findings []*telemetry.Finding) string {
	header := tableHeader()
	rows := []string{header, strings.Repeat("-", len(header))}
	for _, f := range findings {
		rows = append(rows, fmt.Sprintf("%-8s | %-10s | %s", f.Severity, f.Technique, f.Title))
	}
	return strings.Join(rows, "\n")
}

// RenderTable writes the findings table to w with severities coloured. Colour
// is dropped automatically when stdout is not a terminal.
func RenderTable(w io.Writer, findings []*telemetry.Finding) error {
	if len(findings) == 0 {
		_, err := fmt.Fprintln(w, NoDetections)
		return err
	}

	header := tableHeader()
	if _, err := headerColor.Fprintln(w, header); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", len(header))); err != nil {
		return err
	}
	for _, f := range findings {
		sev := fmt.Sprintf("%-8s", f.Severity)
		if c, ok := severityColors[f.Severity]; ok {
			sev = c.Sprint(sev)
		}
		if _, err := fmt.Fprintf(w, "%s | %-10s | %s\n", sev, f.Technique, f.Title); err != nil {
			return err
		}
	}
	return nil
}
