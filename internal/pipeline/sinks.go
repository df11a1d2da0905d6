package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/telhawk-systems/telhawk-correlate/internal/config"
	"github.com/telhawk-systems/telhawk-correlate/internal/detection"
	"github.com/telhawk-systems/telhawk-correlate/internal/logging"
	"github.com/telhawk-systems/telhawk-correlate/internal/metrics"
	"github.com/telhawk-systems/telhawk-correlate/internal/output"
	"github.com/telhawk-systems/telhawk-correlate/internal/output/natsbus"
	"github.com/telhawk-systems/telhawk-correlate/internal/output/opensearch"
	"github.com/telhawk-systems/telhawk-correlate/internal/output/postgres"
	"github.com/telhawk-systems/telhawk-correlate/internal/output/redisstream"
	"github.com/telhawk-systems/telhawk-correlate/internal/output/webhook"
)

// BuildSinks connects every sink enabled in cfg. The file sink is enabled
// whenever output.path is set. On failure the sinks opened so far are closed.
func BuildSinks(ctx context.Context, cfg *config.Config, logger *logging.Logger) ([]output.Sink, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	var sinks []output.Sink
	fail := func(err error) ([]output.Sink, error) {
		var errs []error
		errs = append(errs, err)
		for _, s := range sinks {
			if cerr := s.Close(); cerr != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), cerr))
			}
		}
		return nil, errors.Join(errs...)
	}

	if cfg.Output.Path != "" {
		sinks = append(sinks, output.NewFileSink(cfg.Output.Path))
	}

	if cfg.Redis.Enabled {
		s, err := redisstream.New(ctx, cfg.Redis.URL, cfg.Redis.Stream, cfg.Redis.MaxLen)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}

	if cfg.NATS.Enabled {
		natsCfg := natsbus.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		natsCfg.MaxReconnects = cfg.NATS.MaxReconnects
		natsCfg.ReconnectWait = cfg.NATS.ReconnectWait
		s, err := natsbus.Connect(natsCfg, logger)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}

	if cfg.OpenSearch.Enabled {
		s, err := opensearch.New(opensearch.Config{
			URL:           cfg.OpenSearch.URL,
			Username:      cfg.OpenSearch.Username,
			Password:      cfg.OpenSearch.Password,
			TLSSkipVerify: cfg.OpenSearch.TLSSkipVerify,
			Index:         cfg.OpenSearch.Index,
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}

	if cfg.Postgres.Enabled {
		url := cfg.Postgres.URL()
		logger.InfoContext(ctx, "running database migrations")
		if err := postgres.Migrate(url); err != nil {
			return fail(err)
		}
		s, err := postgres.New(ctx, url)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}

	if cfg.Webhook.Enabled {
		sinks = append(sinks, webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret,
			webhook.WithTimeout(cfg.Webhook.Timeout),
			webhook.WithMaxRetries(cfg.Webhook.MaxRetries),
			webhook.WithIssuer(cfg.Webhook.Issuer),
		))
	}

	return sinks, nil
}

// FromConfig builds a Pipeline and all of its sinks from cfg.
func FromConfig(ctx context.Context, cfg *config.Config, logger *logging.Logger, m *metrics.Metrics) (*Pipeline, error) {
	tables, err := cfg.Tables()
	if err != nil {
		return nil, err
	}

	sinks, err := BuildSinks(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	engine := detection.NewEngine(
		detection.Catalog(cfg.Thresholds),
		detection.WithLogger(logger),
		detection.WithMetrics(m),
		detection.WithConcurrency(cfg.Engine.Concurrent),
	)

	return New(cfg.DataDir, tables, engine,
		WithLogger(logger),
		WithMetrics(m),
		WithMetricsTextfile(cfg.Metrics.Textfile),
		WithSinks(sinks...),
	), nil
}
