// Package natsbus publishes alerts to NATS subjects keyed by severity, e.g.
// telhawk.findings.critical.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/telhawk-systems/telhawk-correlate/internal/logging"
	"github.com/telhawk-systems/telhawk-correlate/internal/output"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// Publisher is the subset of *nats.Conn used by the sink.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Config holds NATS connection configuration.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Name is the client name for connection identification.
	Name string

	// SubjectPrefix is prepended to the severity to form the subject.
	SubjectPrefix string

	// MaxReconnects is the maximum number of reconnection attempts.
	MaxReconnects int

	// ReconnectWait is the time to wait between reconnection attempts.
	ReconnectWait time.Duration

	// Timeout is the connection timeout.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "telhawk-correlate",
		SubjectPrefix: "telhawk.findings",
		MaxReconnects: 5,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Sink publishes one message per alert.
type Sink struct {
	pub    Publisher
	prefix string
}

// Connect dials NATS and returns a sink owning the connection.
func Connect(cfg Config, logger *logging.Logger) (*Sink, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", logging.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return New(conn, cfg.SubjectPrefix), nil
}

// New creates a sink over an existing publisher.
func New(pub Publisher, subjectPrefix string) *Sink {
	return &Sink{pub: pub, prefix: subjectPrefix}
}

// Subject returns the subject an alert of the given severity is published on.
func (s *Sink) Subject(sev telemetry.Severity) string {
	return s.prefix + "." + string(sev)
}

// Name implements output.Sink.
func (s *Sink) Name() string { return "nats" }

// Write implements output.Sink. The alert ID is set as Nats-Msg-Id so a
// JetStream stream on the subject deduplicates re-runs.
func (s *Sink) Write(ctx context.Context, run output.Run, findings []*telemetry.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	for _, alert := range output.Project(run.ID, findings) {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("marshal alert %s: %w", alert.ID, err)
		}
		msg := &nats.Msg{
			Subject: s.Subject(alert.Severity),
			Data:    data,
			Header:  nats.Header{},
		}
		msg.Header.Set(nats.MsgIdHdr, alert.ID)
		msg.Header.Set("Telhawk-Run-Id", run.ID)
		msg.Header.Set("Telhawk-Rule-Id", alert.RuleID)
		if err := s.pub.PublishMsg(msg); err != nil {
			return fmt.Errorf("publish to %s: %w", msg.Subject, err)
		}
	}

	if err := s.pub.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Close implements output.Sink.
func (s *Sink) Close() error {
	s.pub.Close()
	return nil
}
