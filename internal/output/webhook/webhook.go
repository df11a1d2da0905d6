// Package webhook POSTs the alerts of a run to an HTTP endpoint as one JSON
// document, authenticated with an HS256 bearer token.
package webhook

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/telhawk-systems/telhawk-correlate/internal/output"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
	defaultIssuer     = "telhawk-correlate"
	tokenTTL          = 5 * time.Minute
)

// Claims are carried in the bearer token. BodySHA256 binds the token to the
// exact request body.
type Claims struct {
	RunID        string `json:"run_id"`
	FindingCount int    `json:"finding_count"`
	BodySHA256   string `json:"body_sha256"`
	jwt.RegisteredClaims
}

// Payload is the request body.
type Payload struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	EventCount int            `json:"event_count"`
	Alerts     []output.Alert `json:"alerts"`
}

// Option configures a Sink.
type Option func(*Sink)

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithMaxRetries sets how many times a 5xx response is retried. Default: 3.
func WithMaxRetries(n int) Option {
	return func(s *Sink) { s.maxRetries = n }
}

// WithBackoff sets the base delay between retries; it doubles each attempt.
func WithBackoff(d time.Duration) Option {
	return func(s *Sink) { s.backoff = d }
}

// WithIssuer sets the token issuer claim.
func WithIssuer(issuer string) Option {
	return func(s *Sink) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// Sink delivers alerts to a webhook.
type Sink struct {
	client     *http.Client
	url        string
	secret     []byte
	issuer     string
	maxRetries int
	backoff    time.Duration
}

// New creates a webhook sink signing requests with secret.
func New(url, secret string, opts ...Option) *Sink {
	s := &Sink{
		client:     &http.Client{Timeout: defaultTimeout},
		url:        url,
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements output.Sink.
func (s *Sink) Name() string { return "webhook" }

// Write implements output.Sink.
func (s *Sink) Write(ctx context.Context, run output.Run, findings []*telemetry.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	body, err := json.Marshal(Payload{
		RunID:      run.ID,
		StartedAt:  run.StartedAt.UTC(),
		EventCount: run.EventCount,
		Alerts:     output.Project(run.ID, findings),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	token, err := s.sign(run.ID, len(findings), body)
	if err != nil {
		return fmt.Errorf("webhook: sign: %w", err)
	}
	return s.postWithRetry(ctx, body, token)
}

func (s *Sink) sign(runID string, count int, body []byte) (string, error) {
	sum := sha256.Sum256(body)
	now := time.Now()
	claims := Claims{
		RunID:        runID,
		FindingCount: count,
		BodySHA256:   hex.EncodeToString(sum[:]),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   "findings",
			ID:        runID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// postWithRetry sends the body via HTTP POST with retry on 5xx.
func (s *Sink) postWithRetry(ctx context.Context, body []byte, token string) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		lastErr = fmt.Errorf("webhook: HTTP %d", resp.StatusCode)

		// Only retry on 5xx server errors.
		if resp.StatusCode < 500 {
			return lastErr
		}
	}
	return lastErr
}

// Close implements output.Sink.
func (s *Sink) Close() error { return nil }
