// Package opensearch indexes alerts into an OpenSearch index with the bulk
// API. Documents are keyed by finding fingerprint, so re-running over the same
// telemetry overwrites instead of duplicating.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"
	"github.com/telhawk-systems/telhawk-correlate/internal/output"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// Config holds OpenSearch connection settings.
type Config struct {
	URL           string
	Username      string
	Password      string
	TLSSkipVerify bool
	Index         string
}

// DefaultConfig returns sensible defaults for OpenSearch configuration
func DefaultConfig() Config {
	return Config{
		URL:           "https://localhost:9200",
		Username:      "admin",
		TLSSkipVerify: true,
		Index:         "telhawk-findings",
	}
}

// Sink bulk-indexes alerts.
type Sink struct {
	client *opensearch.Client
	index  string
}

// document is the indexed form of an alert.
type document struct {
	output.Alert
	Timestamp time.Time `json:"@timestamp"`
}

// New creates a sink with its own client.
func New(cfg Config) (*Sink, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}
	return NewWithClient(client, cfg.Index), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *opensearch.Client, index string) *Sink {
	return &Sink{client: client, index: index}
}

// Name implements output.Sink.
func (s *Sink) Name() string { return "opensearch" }

// Write implements output.Sink.
func (s *Sink) Write(ctx context.Context, run output.Run, findings []*telemetry.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client:     s.client,
		Index:      s.index,
		NumWorkers: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	stamp := run.StartedAt.UTC()
	if stamp.IsZero() {
		stamp = time.Now().UTC()
	}

	var (
		failed atomic.Int64
		mu     sync.Mutex
		errs   []error
	)
	recordErr := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, alert := range output.Project(run.ID, findings) {
		data, err := json.Marshal(document{Alert: alert, Timestamp: stamp})
		if err != nil {
			recordErr(fmt.Errorf("failed to marshal alert %s: %w", alert.ID, err))
			continue
		}

		err = bi.Add(ctx, opensearchutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: alert.Fingerprint,
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
				if err != nil {
					recordErr(fmt.Errorf("document %s: %w", item.DocumentID, err))
					return
				}
				recordErr(fmt.Errorf("document %s: %s: %s", item.DocumentID, res.Error.Type, res.Error.Reason))
			},
		})
		if err != nil {
			recordErr(fmt.Errorf("failed to add to bulk indexer: %w", err))
		}
	}

	if err := bi.Close(ctx); err != nil {
		recordErr(fmt.Errorf("bulk indexer close error: %w", err))
	}

	if n := failed.Load(); n > 0 {
		errs = append([]error{fmt.Errorf("%d of %d alerts failed to index", n, len(findings))}, errs...)
	}
	return errors.Join(errs...)
}

// Close implements output.Sink.
func (s *Sink) Close() error { return nil }
