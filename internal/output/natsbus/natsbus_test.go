package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telhawk-systems/telhawk-correlate/internal/output"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

type fakePublisher struct {
	msgs       []*nats.Msg
	publishErr error
	flushErr   error
	flushed    int
	closed     bool
}

func (f *fakePublisher) PublishMsg(m *nats.Msg) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakePublisher) FlushWithContext(context.Context) error {
	f.flushed++
	return f.flushErr
}

func (f *fakePublisher) Close() { f.closed = true }

func testFindings() []*telemetry.Finding {
	ev := &telemetry.EnrichedEvent{
		Event: &telemetry.Event{
			Source:    telemetry.SourceCloudTrail,
			Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Payload:   telemetry.Payload{"eventName": "ConsoleLogin"},
		},
		Asset: "unknown",
	}
	fs := []*telemetry.Finding{
		{RuleID: "console_login_without_mfa", Title: "AWS console login without MFA", Severity: telemetry.SeverityHigh, Technique: "T1078", Events: []*telemetry.EnrichedEvent{ev}},
		{RuleID: "public_bucket_acl", Title: "S3 bucket exposed to public", Severity: telemetry.SeverityCritical, Technique: "T1530", Events: []*telemetry.EnrichedEvent{ev}},
	}
	for _, f := range fs {
		f.AssignID()
	}
	return fs
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, nats.DefaultURL, cfg.URL)
	assert.Equal(t, "telhawk.findings", cfg.SubjectPrefix)
	assert.Equal(t, 2*time.Second, cfg.ReconnectWait)
}

func TestSink_Write(t *testing.T) {
	pub := &fakePublisher{}
	sink := New(pub, "telhawk.findings")
	findings := testFindings()

	require.NoError(t, sink.Write(context.Background(), output.Run{ID: "run-7"}, findings))
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, 1, pub.flushed)

	msg := pub.msgs[1]
	assert.Equal(t, "telhawk.findings.critical", msg.Subject)
	assert.Equal(t, findings[1].ID, msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, "run-7", msg.Header.Get("Telhawk-Run-Id"))
	assert.Equal(t, "public_bucket_acl", msg.Header.Get("Telhawk-Rule-Id"))

	var alert output.Alert
	require.NoError(t, json.Unmarshal(msg.Data, &alert))
	assert.Equal(t, "S3 bucket exposed to public", alert.AlertType)
	assert.Equal(t, "telhawk.findings.high", pub.msgs[0].Subject)
}

func TestSink_Errors(t *testing.T) {
	boom := errors.New("nats: connection closed")

	t.Run("publish", func(t *testing.T) {
		sink := New(&fakePublisher{publishErr: boom}, "p")
		assert.ErrorIs(t, sink.Write(context.Background(), output.Run{}, testFindings()), boom)
	})

	t.Run("flush", func(t *testing.T) {
		sink := New(&fakePublisher{flushErr: boom}, "p")
		assert.ErrorIs(t, sink.Write(context.Background(), output.Run{}, testFindings()), boom)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		pub := &fakePublisher{}
		err := New(pub, "p").Write(ctx, output.Run{}, testFindings())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, pub.msgs)
	})
}

func TestSink_NoFindingsAndClose(t *testing.T) {
	pub := &fakePublisher{}
	sink := New(pub, "p")

	require.NoError(t, sink.Write(context.Background(), output.Run{}, nil))
	assert.Zero(t, pub.flushed)

	require.NoError(t, sink.Close())
	assert.True(t, pub.closed)
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.Timeout = 200 * time.Millisecond

	_, err := Connect(cfg, nil)
	assert.Error(t, err)
}
