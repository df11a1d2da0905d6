// Package pipeline runs one batch correlation pass: load telemetry from a
// data directory, enrich it, evaluate every rule and deliver the findings to
// the configured sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/telhawk-systems/telhawk-correlate/internal/detection"
	"github.com/telhawk-systems/telhawk-correlate/internal/enrichment"
	"github.com/telhawk-systems/telhawk-correlate/internal/ingest"
	"github.com/telhawk-systems/telhawk-correlate/internal/logging"
	"github.com/telhawk-systems/telhawk-correlate/internal/metrics"
	"github.com/telhawk-systems/telhawk-correlate/internal/output"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// Result summarises a completed run.
type Result struct {
	RunID         string
	StartedAt     time.Time
	EventCount    int
	EnrichedCount int
	Findings      []*telemetry.Finding
}

// Pipeline wires ingestion, enrichment, detection and delivery together.
type Pipeline struct {
	dataDir  string
	loader   *ingest.Loader
	resolver *enrichment.Resolver
	engine   *detection.Engine
	sinks    *output.Multi
	pending  []output.Sink
	logger   *logging.Logger
	metrics  *metrics.Metrics
	textfile string
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger shared by every stage.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records run metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithMetricsTextfile writes the metrics registry to path after every run.
func WithMetricsTextfile(path string) Option {
	return func(p *Pipeline) { p.textfile = path }
}

// WithSinks adds delivery targets.
func WithSinks(sinks ...output.Sink) Option {
	return func(p *Pipeline) { p.pending = append(p.pending, sinks...) }
}

// New creates a Pipeline reading from dataDir. The engine should already carry
// its own logger and metrics options.
func New(dataDir string, tables enrichment.Tables, engine *detection.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		dataDir: dataDir,
		engine:  engine,
		logger:  logging.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.loader = ingest.NewLoader(p.logger)
	p.resolver = enrichment.NewResolver(tables, p.logger)
	p.sinks = output.NewMulti(p.logger, p.metrics, p.pending...)
	p.pending = nil
	return p
}

// Sinks returns the number of configured delivery targets.
func (p *Pipeline) Sinks() int {
	return p.sinks.Len()
}

// Run executes one pass. Ingestion and detection errors abort the run with no
// result. Delivery errors do not: every sink is attempted, the result is
// returned, and the sink errors are joined into the returned error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := p.now()
	runID := newRunID()
	ctx = logging.ContextWithRunID(ctx, runID)

	res, err := p.run(ctx, runID, started)

	elapsed := p.now().Sub(started)
	p.metrics.ObserveRun(elapsed, err)
	if werr := p.metrics.WriteTextfile(p.textfile); werr != nil {
		p.logger.WarnContext(ctx, "failed to write metrics textfile", logging.Path(p.textfile), logging.Error(werr))
		err = errors.Join(err, fmt.Errorf("write metrics textfile: %w", werr))
	}

	if err != nil {
		p.logger.ErrorContext(ctx, "correlation run finished with errors", logging.Duration(elapsed), logging.Error(err))
	} else {
		p.logger.InfoContext(ctx, "correlation run complete",
			logging.Count(len(res.Findings)),
			logging.Duration(elapsed),
		)
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, runID string, started time.Time) (*Result, error) {
	files, err := ingest.Discover(p.dataDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		p.logger.WarnContext(ctx, "no telemetry files found", logging.Path(p.dataDir))
	}

	events, err := p.loader.LoadAll(ctx, files)
	if err != nil {
		return nil, err
	}
	p.recordIngested(events)

	enriched := p.resolver.EnrichAll(ctx, events)
	p.metrics.RecordEnriched(len(enriched))

	findings, err := p.engine.Run(ctx, enriched)
	if err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}

	res := &Result{
		RunID:         runID,
		StartedAt:     started,
		EventCount:    len(events),
		EnrichedCount: len(enriched),
		Findings:      findings,
	}

	run := output.Run{ID: runID, StartedAt: started, EventCount: len(events)}
	if err := p.sinks.Write(ctx, run, findings); err != nil {
		return res, fmt.Errorf("delivery: %w", err)
	}
	return res, nil
}

func (p *Pipeline) recordIngested(events []*telemetry.Event) {
	counts := make(map[telemetry.Source]int)
	for _, ev := range events {
		counts[ev.Source]++
	}
	for src, n := range counts {
		p.metrics.RecordIngested(string(src), n)
	}
}

// Close releases every sink.
func (p *Pipeline) Close() error {
	return p.sinks.Close()
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
