// Package detection evaluates the fixed rule catalog over a time-sorted
// collection of enriched events.
package detection

import "github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"

// Rule is one detection. Evaluate must be pure: it never mutates the events
// and every finding it returns bundles at least one of them.
type Rule interface {
	ID() string
	Title() string
	Description() string
	Technique() string
	Severity() telemetry.Severity
	Evaluate(events []*telemetry.EnrichedEvent) []*telemetry.Finding
}

// meta carries the static attributes shared by every rule implementation.
type meta struct {
	id          string
	title       string
	description string
	technique   string
	severity    telemetry.Severity
}

func (m meta) ID() string                   { return m.id }
func (m meta) Title() string                { return m.title }
func (m meta) Description() string          { return m.description }
func (m meta) Technique() string            { return m.technique }
func (m meta) Severity() telemetry.Severity { return m.severity }

// finding builds a finding for the rule. title overrides the catalog title
// for rules that name the offending entity.
func (m meta) finding(title string, events []*telemetry.EnrichedEvent, metadata map[string]any) *telemetry.Finding {
	if title == "" {
		title = m.title
	}
	return &telemetry.Finding{
		RuleID:      m.id,
		Title:       title,
		Description: m.description,
		Severity:    m.severity,
		Technique:   m.technique,
		Events:      events,
		Metadata:    metadata,
	}
}
