// Package output projects findings into alert documents and delivers them to
// one or more sinks.
package output

import (
	"context"
	"time"

	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// Run identifies the pipeline invocation that produced a batch of findings.
type Run struct {
	ID         string
	StartedAt  time.Time
	EventCount int
}

// Sink is a write-only alert destination.
type Sink interface {
	Name() string
	Write(ctx context.Context, run Run, findings []*telemetry.Finding) error
	Close() error
}

// Alert is the serialized form of a finding.
type Alert struct {
	ID          string              `json:"id"`
	Fingerprint string              `json:"fingerprint"`
	RunID       string              `json:"run_id,omitempty"`
	RuleID      string              `json:"rule_id"`
	AlertType   string              `json:"alert_type"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Severity    telemetry.Severity  `json:"severity"`
	Technique   string              `json:"technique"`
	Events      []telemetry.Payload `json:"events"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
}

// NewAlert projects a finding. Events carry the raw payloads in finding order.
func NewAlert(runID string, f *telemetry.Finding) Alert {
	events := make([]telemetry.Payload, len(f.Events))
	for i, ev := range f.Events {
		events[i] = ev.Payload()
	}
	return Alert{
		ID:          f.ID,
		Fingerprint: f.Fingerprint(),
		RunID:       runID,
		RuleID:      f.RuleID,
		AlertType:   f.Title,
		Title:       f.Title,
		Description: f.Description,
		Severity:    f.Severity,
		Technique:   f.Technique,
		Events:      events,
		Metadata:    f.Metadata,
	}
}

// Project converts findings to alerts, preserving order.
func Project(runID string, findings []*telemetry.Finding) []Alert {
	alerts := make([]Alert, len(findings))
	for i, f := range findings {
		alerts[i] = NewAlert(runID, f)
	}
	return alerts
}
