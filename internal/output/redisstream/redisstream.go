// Package redisstream appends alerts to a Redis stream so downstream
// consumers can read them with consumer groups.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/telhawk-systems/telhawk-correlate/internal/output"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// Sink writes one stream entry per alert.
type Sink struct {
	client *redis.Client
	stream string
	maxLen int64
	owned  bool
}

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL, stream string, maxLen int64) (*Sink, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	s := NewWithClient(client, stream, maxLen)
	s.owned = true
	return s, nil
}

// NewWithClient wraps an existing client. Close leaves the client open.
func NewWithClient(client *redis.Client, stream string, maxLen int64) *Sink {
	return &Sink{client: client, stream: stream, maxLen: maxLen}
}

// Name implements output.Sink.
func (s *Sink) Name() string { return "redis" }

// Write implements output.Sink. Entries are sent in a single pipeline.
func (s *Sink) Write(ctx context.Context, run output.Run, findings []*telemetry.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, alert := range output.Project(run.ID, findings) {
		body, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("failed to marshal alert %s: %w", alert.ID, err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			MaxLen: s.maxLen,
			Values: map[string]any{
				"id":        alert.ID,
				"run_id":    alert.RunID,
				"rule_id":   alert.RuleID,
				"severity":  string(alert.Severity),
				"technique": alert.Technique,
				"title":     alert.Title,
				"alert":     string(body),
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", s.stream, err)
	}
	return nil
}

// Close implements output.Sink.
func (s *Sink) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
