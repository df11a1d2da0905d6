package output

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/telhawk-systems/telhawk-correlate/internal/logging"
	"github.com/telhawk-systems/telhawk-correlate/internal/metrics"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// Multi fans findings out to several sinks. A failing sink does not prevent
// delivery to the rest.
type Multi struct {
	sinks   []Sink
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewMulti creates a Multi over sinks. logger and m may be nil.
func NewMulti(logger *logging.Logger, m *metrics.Metrics, sinks ...Sink) *Multi {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Multi{sinks: sinks, logger: logger, metrics: m}
}

// Name implements Sink.
func (m *Multi) Name() string { return "multi" }

// Len returns the number of wrapped sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// Write delivers findings to every sink and joins their errors.
func (m *Multi) Write(ctx context.Context, run Run, findings []*telemetry.Finding) error {
	var errs []error
	for _, s := range m.sinks {
		start := time.Now()
		err := s.Write(ctx, run, findings)
		m.metrics.RecordSinkWrite(s.Name(), err)
		if err != nil {
			m.logger.ErrorContext(ctx, "sink delivery failed", logging.Sink(s.Name()), logging.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		m.logger.InfoContext(ctx, "findings delivered",
			logging.Sink(s.Name()),
			logging.Count(len(findings)),
			logging.Duration(time.Since(start)),
		)
	}
	return errors.Join(errs...)
}

// Close closes every sink, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
