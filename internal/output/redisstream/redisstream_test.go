package redisstream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telhawk-systems/telhawk-correlate/internal/output"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func findings(n int) []*telemetry.Finding {
	ev := &telemetry.EnrichedEvent{
		Event: &telemetry.Event{
			Source:    telemetry.SourceSysmon,
			Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Payload:   telemetry.Payload{"event_id": "4625", "sourceIPAddress": "203.0.113.9"},
		},
		Asset: "dc-01",
	}
	out := make([]*telemetry.Finding, n)
	for i := range out {
		out[i] = &telemetry.Finding{
			RuleID:    "credential_brute_force",
			Title:     "RDP brute-force from 203.0.113.9",
			Severity:  telemetry.SeverityHigh,
			Technique: "T1110",
			Events:    []*telemetry.EnrichedEvent{ev},
			Metadata:  map[string]any{"seq": i},
		}
		out[i].AssignID()
	}
	return out
}

func TestSink_Write(t *testing.T) {
	_, client := setupTestRedis(t)
	sink := NewWithClient(client, "telhawk:findings", 0)
	ctx := context.Background()

	require.NoError(t, sink.Write(ctx, output.Run{ID: "run-1"}, findings(2)))

	entries, err := client.XRange(ctx, "telhawk:findings", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	values := entries[0].Values
	assert.Equal(t, "run-1", values["run_id"])
	assert.Equal(t, "credential_brute_force", values["rule_id"])
	assert.Equal(t, "high", values["severity"])
	assert.Equal(t, "T1110", values["technique"])

	var alert output.Alert
	require.NoError(t, json.Unmarshal([]byte(values["alert"].(string)), &alert))
	assert.Equal(t, values["id"], alert.ID)
	assert.Equal(t, "RDP brute-force from 203.0.113.9", alert.AlertType)
	require.Len(t, alert.Events, 1)
}

func TestSink_MaxLen(t *testing.T) {
	_, client := setupTestRedis(t)
	sink := NewWithClient(client, "capped", 2)
	ctx := context.Background()

	require.NoError(t, sink.Write(ctx, output.Run{ID: "r"}, findings(5)))

	n, err := client.XLen(ctx, "capped").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSink_NoFindings(t *testing.T) {
	mr, client := setupTestRedis(t)
	sink := NewWithClient(client, "empty", 0)

	require.NoError(t, sink.Write(context.Background(), output.Run{}, nil))
	assert.False(t, mr.Exists("empty"))
}

func TestSink_ServerDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	sink := NewWithClient(client, "s", 0)
	mr.Close()

	err := sink.Write(context.Background(), output.Run{}, findings(1))
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	sink, err := New(context.Background(), "redis://"+mr.Addr()+"/0", "s", 10)
	require.NoError(t, err)
	assert.Equal(t, "redis", sink.Name())
	assert.NoError(t, sink.Close())

	_, err = New(context.Background(), "not a url", "s", 10)
	assert.Error(t, err)
}
