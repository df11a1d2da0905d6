package logging

import (
	"log/slog"
	"time"
)

// Common field names for consistent logging across the pipeline.
const (
	FieldRunID     = "run_id"
	FieldSource    = "source"
	FieldPath      = "path"
	FieldRule      = "rule"
	FieldTechnique = "technique"
	FieldSeverity  = "severity"
	FieldAsset     = "asset"
	FieldIP        = "ip"
	FieldCount     = "count"
	FieldSink      = "sink"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)

// RunID returns a slog attribute for the pipeline run ID.
func RunID(id string) slog.Attr {
	return slog.String(FieldRunID, id)
}

// Source returns a slog attribute for a telemetry source name.
func Source(name string) slog.Attr {
	return slog.String(FieldSource, name)
}

// Path returns a slog attribute for a file path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Rule returns a slog attribute for a detection rule ID.
func Rule(id string) slog.Attr {
	return slog.String(FieldRule, id)
}

// Technique returns a slog attribute for an ATT&CK technique tag.
func Technique(id string) slog.Attr {
	return slog.String(FieldTechnique, id)
}

// Severity returns a slog attribute for a finding severity.
func Severity(s string) slog.Attr {
	return slog.String(FieldSeverity, s)
}

// Asset returns a slog attribute for an asset identifier.
func Asset(name string) slog.Attr {
	return slog.String(FieldAsset, name)
}

// IP returns a slog attribute for an IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Count returns a slog attribute for a count.
func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}

// Sink returns a slog attribute for an alert sink name.
func Sink(name string) slog.Attr {
	return slog.String(FieldSink, name)
}

// Duration returns a slog attribute for a duration in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
