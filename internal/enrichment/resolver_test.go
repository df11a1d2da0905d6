package enrichment_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telhawk-systems/telhawk-correlate/internal/enrichment"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

func testTables() enrichment.Tables {
	return enrichment.NewTables(
		map[string]string{
			"203.0.113.5":   "Known threat actor infrastructure",
			"198.51.100.10": "Anonymous VPN provider",
		},
		map[string]string{
			"203.0.113.5":   "BR",
			"198.51.100.10": "RU",
		},
	)
}

func event(source telemetry.Source, payload telemetry.Payload) *telemetry.Event {
	return &telemetry.Event{
		Source:    source,
		Timestamp: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Payload:   payload,
	}
}

func TestEnrich_CloudTrail(t *testing.T) {
	ev := event(telemetry.SourceCloudTrail, telemetry.Payload{
		"eventName":       "ConsoleLogin",
		"sourceIPAddress": "203.0.113.5",
		"userIdentity": map[string]any{
			"type":     "IAMUser",
			"userName": "alice",
			"arn":      "arn:aws:iam::123456789012:user/alice-arn",
		},
	})

	got := enrichment.Enrich(ev, testTables())

	assert.Same(t, ev, got.Event)
	assert.Equal(t, "alice", got.ActorName())
	assert.Equal(t, "BR", got.GeolocationCode())
	assert.Equal(t, "Known threat actor infrastructure", got.ReputationNote())
	assert.Equal(t, enrichment.UnknownAsset, got.Asset)
}

func TestEnrich_ActorFromARN(t *testing.T) {
	ev := event(telemetry.SourceCloudTrail, telemetry.Payload{
		"userIdentity": map[string]any{"arn": "arn:aws:sts::123456789012:assumed-role/ops/bob"},
		"user":         "ignored",
	})

	got := enrichment.Enrich(ev, testTables())

	require.NotNil(t, got.Actor)
	assert.Equal(t, "bob", *got.Actor)
}

func TestEnrich_ProbePriority(t *testing.T) {
	tests := []struct {
		name      string
		payload   telemetry.Payload
		wantIP    string
		wantActor string
		wantAsset string
	}{
		{
			name: "flat user spellings in order",
			payload: telemetry.Payload{
				"User":    "second",
				"Account": "third",
				"dstuser": "fourth",
			},
			wantActor: "second",
			wantAsset: enrichment.UnknownAsset,
		},
		{
			name: "identity block without usable fields falls through",
			payload: telemetry.Payload{
				"userIdentity": map[string]any{"type": "Root"},
				"dstuser":      "svc",
			},
			wantActor: "svc",
			wantAsset: enrichment.UnknownAsset,
		},
		{
			name: "nested event data for host traces",
			payload: telemetry.Payload{
				"event_id": json.Number("4625"),
				"event_data": map[string]any{
					"SourceIp":        "198.51.100.10",
					"TargetUserName":  "administrator",
					"WorkstationName": "WS-22",
				},
			},
			wantIP:    "198.51.100.10",
			wantActor: "administrator",
			wantAsset: "WS-22",
		},
		{
			name: "top level IP wins over nested",
			payload: telemetry.Payload{
				"srcaddr":    "203.0.113.5",
				"event_data": map[string]any{"SourceIp": "198.51.100.10"},
			},
			wantIP:    "203.0.113.5",
			wantAsset: enrichment.UnknownAsset,
		},
		{
			name: "flow record asset from destination address",
			payload: telemetry.Payload{
				"srcaddr": "10.0.0.4",
				"dstaddr": "10.0.1.9",
			},
			wantIP:    "10.0.0.4",
			wantAsset: "10.0.1.9",
		},
		{
			name: "instance beats hostname",
			payload: telemetry.Payload{
				"hostname": "web-01",
				"instance": "i-0abc",
			},
			wantAsset: "i-0abc",
		},
		{
			name: "category field as last resort",
			payload: telemetry.Payload{
				"detail-type": "GuardDuty Finding",
			},
			wantAsset: "GuardDuty Finding",
		},
		{
			name: "wrong types are skipped",
			payload: telemetry.Payload{
				"sourceIPAddress": json.Number("12"),
				"user":            []any{"x"},
				"hostname":        map[string]any{"name": "x"},
				"event_data":      "not-an-object",
				"detail-type":     json.Number("5"),
			},
			wantAsset: enrichment.UnknownAsset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip, _ := enrichment.Resolve(enrichment.IPProbes, tt.payload)
			actor, _ := enrichment.Resolve(enrichment.ActorProbes, tt.payload)
			got := enrichment.Enrich(event(telemetry.SourceSysmon, tt.payload), testTables())

			assert.Equal(t, tt.wantIP, ip)
			assert.Equal(t, tt.wantActor, actor)
			assert.Equal(t, tt.wantActor, got.ActorName())
			assert.Equal(t, tt.wantAsset, got.Asset)
		})
	}
}

func TestEnrich_UnknownIPHasNoContext(t *testing.T) {
	got := enrichment.Enrich(event(telemetry.SourceVPCFlow, telemetry.Payload{"srcaddr": "10.9.9.9"}), testTables())

	assert.Nil(t, got.Geolocation)
	assert.Nil(t, got.Reputation)
}

func TestEnrich_NoPrefixMatching(t *testing.T) {
	got := enrichment.Enrich(event(telemetry.SourceVPCFlow, telemetry.Payload{"srcaddr": "203.0.113.50"}), testTables())

	assert.Nil(t, got.Geolocation)
	assert.Nil(t, got.Reputation)
}

func TestEnrich_Deterministic(t *testing.T) {
	ev := event(telemetry.SourceCloudTrail, telemetry.Payload{
		"sourceIPAddress": "198.51.100.10",
		"userIdentity":    map[string]any{"userName": "carol"},
		"hostname":        "bastion",
	})
	tables := testTables()

	first := enrichment.Enrich(ev, tables)
	for i := 0; i < 5; i++ {
		again := enrichment.Enrich(ev, tables)
		assert.Equal(t, first, again)
	}
}

func TestEnrich_EmptyPayload(t *testing.T) {
	got := enrichment.Enrich(event(telemetry.SourceGuardDuty, nil), testTables())

	assert.Equal(t, enrichment.UnknownAsset, got.Asset)
	assert.Nil(t, got.Actor)
}

func TestTables_AreCopied(t *testing.T) {
	rep := map[string]string{"1.2.3.4": "bad"}
	tables := enrichment.NewTables(rep, nil)
	rep["1.2.3.4"] = "changed"

	note, ok := tables.Reputation("1.2.3.4")
	require.True(t, ok)
	assert.Equal(t, "bad", note)

	r, g := tables.Len()
	assert.Equal(t, 1, r)
	assert.Equal(t, 0, g)
}

func TestResolver_EnrichAllPreservesOrder(t *testing.T) {
	events := []*telemetry.Event{
		event(telemetry.SourceSysmon, telemetry.Payload{"hostname": "a"}),
		event(telemetry.SourceSysmon, telemetry.Payload{"hostname": "b"}),
		event(telemetry.SourceSysmon, telemetry.Payload{"hostname": "c"}),
	}

	out := enrichment.NewResolver(testTables(), nil).EnrichAll(context.Background(), events)

	require.Len(t, out, 3)
	for i := range events {
		assert.Same(t, events[i], out[i].Event)
	}
	assert.Equal(t, "c", out[2].Asset)
}
