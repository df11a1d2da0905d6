package detection

import (
	"context"
	"time"

	"github.com/telhawk-systems/telhawk-correlate/internal/logging"
	"github.com/telhawk-systems/telhawk-correlate/internal/metrics"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

// Engine runs a rule set over one enriched collection.
type Engine struct {
	rules      []Rule
	logger     *logging.Logger
	metrics    *metrics.Metrics
	concurrent bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records per-rule timings and finding counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithConcurrency evaluates rules in parallel. Output order is unchanged.
func WithConcurrency(enabled bool) Option {
	return func(e *Engine) { e.concurrent = enabled }
}

// NewEngine creates an engine over rules.
func NewEngine(rules []Rule, opts ...Option) *Engine {
	e := &Engine{
		rules:  rules,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the configured rules in evaluation order.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Run evaluates every rule over events, which must be sorted by timestamp.
// Findings come back grouped by rule in catalog order, each with its ID
// assigned. The only error is cancellation of ctx.
func (e *Engine) Run(ctx context.Context, events []*telemetry.EnrichedEvent) ([]*telemetry.Finding, error) {
	perRule := make([][]*telemetry.Finding, len(e.rules))

	if e.concurrent {
		g, gctx := errgroup.WithContext(ctx)
		for i, rule := range e.rules {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				perRule[i] = e.evaluate(gctx, rule, events)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, rule := range e.rules {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			perRule[i] = e.evaluate(ctx, rule, events)
		}
	}

	var findings []*telemetry.Finding
	for _, fs := range perRule {
		findings = append(findings, fs...)
	}

	e.logger.InfoContext(ctx, "detection complete",
		logging.Count(len(findings)),
		"rules", len(e.rules),
		"events", len(events),
	)
	return findings, nil
}

func (e *Engine) evaluate(ctx context.Context, rule Rule, events []*telemetry.EnrichedEvent) []*telemetry.Finding {
	start := time.Now()
	findings := rule.Evaluate(events)
	elapsed := time.Since(start)

	for _, f := range findings {
		f.AssignID()
		e.metrics.RecordFinding(f.RuleID, string(f.Severity))
	}
	e.metrics.ObserveRule(rule.ID(), elapsed)

	e.logger.DebugContext(ctx, "rule evaluated",
		logging.Rule(rule.ID()),
		logging.Technique(rule.Technique()),
		logging.Count(len(findings)),
		logging.Duration(elapsed),
	)
	return findings
}
