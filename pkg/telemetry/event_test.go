package telemetry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

func TestSortByTime_StableForTies(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &telemetry.Event{Source: telemetry.SourceSysmon, Timestamp: base, Payload: telemetry.Payload{"n": "first"}}
	second := &telemetry.Event{Source: telemetry.SourceVPCFlow, Timestamp: base, Payload: telemetry.Payload{"n": "second"}}
	earlier := &telemetry.Event{Source: telemetry.SourceCloudTrail, Timestamp: base.Add(-time.Minute)}

	events := []*telemetry.Event{first, second, earlier}
	telemetry.SortByTime(events)

	require.Len(t, events, 3)
	assert.Same(t, earlier, events[0])
	assert.Same(t, first, events[1])
	assert.Same(t, second, events[2])
}

func TestEnrichedEvent_OptionalAccessors(t *testing.T) {
	actor := "alice"
	ev := &telemetry.EnrichedEvent{
		Event: &telemetry.Event{Source: telemetry.SourceCloudTrail},
		Asset: "unknown",
		Actor: &actor,
	}

	assert.Equal(t, "alice", ev.ActorName())
	assert.Equal(t, "", ev.GeolocationCode())
	assert.Equal(t, "", ev.ReputationNote())
	assert.Equal(t, telemetry.SourceCloudTrail, ev.Source())
}

func TestParseSource(t *testing.T) {
	s, err := telemetry.ParseSource("sysmon")
	require.NoError(t, err)
	assert.Equal(t, telemetry.SourceSysmon, s)
	assert.True(t, s.IsHostOrNetwork())
	assert.False(t, s.IsAuditLog())

	_, err = telemetry.ParseSource("syslog")
	assert.Error(t, err)

	assert.Equal(t, []telemetry.Source{
		telemetry.SourceCloudTrail,
		telemetry.SourceGuardDuty,
		telemetry.SourceSysmon,
		telemetry.SourceVPCFlow,
	}, telemetry.Sources())
}
