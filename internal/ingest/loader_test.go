package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-03-01T12:30:45Z", want: time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)},
		{in: "2024-03-01T12:30:45.250Z", want: time.Date(2024, 3, 1, 12, 30, 45, 250000000, time.UTC)},
		{in: "2024-03-01T12:30:45.123456Z", want: time.Date(2024, 3, 1, 12, 30, 45, 123456000, time.UTC)},
		{in: "2024-03-01 12:30:45", wantErr: true},
		{in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestExtractTimestamp_KeyPriority(t *testing.T) {
	p := telemetry.Payload{
		"eventTime":  "",
		"timestamp":  "2024-03-01T10:00:00Z",
		"@timestamp": "2024-03-01T11:00:00Z",
	}

	ts, err := ExtractTimestamp(p)

	require.NoError(t, err)
	assert.Equal(t, 10, ts.Hour())
}

func TestExtractTimestamp_NonStringIsError(t *testing.T) {
	_, err := ExtractTimestamp(telemetry.Payload{"eventTime": map[string]any{"x": 1}, "timestamp": "2024-03-01T10:00:00Z"})
	assert.Error(t, err)

	_, err = ExtractTimestamp(telemetry.Payload{"other": "2024-03-01T10:00:00Z"})
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	body := strings.Join([]string{
		`{"eventTime":"2024-03-01T10:00:00Z","eventName":"ConsoleLogin"}`,
		``,
		`   `,
		`{"timestamp":"2024-03-01T09:00:00Z","event_id":4625}`,
	}, "\n")

	events, err := Decode(strings.NewReader(body), SourceFile{Source: telemetry.SourceSysmon, Path: "sysmon.jsonl"})

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, telemetry.SourceSysmon, events[0].Source)
	id, ok := events[1].Payload.Text("event_id")
	assert.True(t, ok)
	assert.Equal(t, "4625", id)
}

func TestDecode_MalformedRecords(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantLine int
	}{
		{name: "missing timestamp", body: "{\"eventTime\":\"2024-03-01T10:00:00Z\"}\n{\"eventName\":\"x\"}", wantLine: 2},
		{name: "unparseable timestamp", body: `{"eventTime":"03/01/2024"}`, wantLine: 1},
		{name: "not an object", body: `["a","b"]`, wantLine: 1},
		{name: "invalid json", body: "\n{oops", wantLine: 2},
		{name: "null record", body: `null`, wantLine: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.body), SourceFile{Source: telemetry.SourceCloudTrail, Path: "cloudtrail.jsonl"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord))

			var mre *MalformedRecordError
			require.True(t, errors.As(err, &mre))
			assert.Equal(t, tt.wantLine, mre.Line)
			assert.Equal(t, telemetry.SourceCloudTrail, mre.Source)
			assert.Contains(t, err.Error(), "cloudtrail.jsonl")
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vpcflow.jsonl", "")
	writeFile(t, dir, "cloudtrail.jsonl", "")
	writeFile(t, dir, "unrelated.jsonl", "")

	files, err := Discover(dir)

	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, telemetry.SourceCloudTrail, files[0].Source)
	assert.Equal(t, telemetry.SourceVPCFlow, files[1].Source)
}

func TestDiscover_MissingDirectory(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoader_LoadAllSortsAcrossSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cloudtrail.jsonl",
		`{"eventTime":"2024-03-01T10:05:00Z","eventName":"B"}`+"\n"+
			`{"eventTime":"2024-03-01T10:00:00Z","eventName":"A"}`+"\n")
	writeFile(t, dir, "sysmon.jsonl",
		`{"@timestamp":"2024-03-01T10:02:00.5Z","event_id":"22"}`+"\n")

	files, err := Discover(dir)
	require.NoError(t, err)

	events, err := NewLoader(nil).LoadAll(context.Background(), files)

	require.NoError(t, err)
	require.Len(t, events, 3)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Timestamp.Before(events[i-1].Timestamp))
	}
	name, _ := events[0].Payload.String("eventName")
	assert.Equal(t, "A", name)
	assert.Equal(t, telemetry.SourceSysmon, events[1].Source)
}

func TestLoader_LoadAllFailsOnMalformedRecord(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cloudtrail.jsonl", `{"eventTime":"2024-03-01T10:00:00Z"}`+"\n")
	writeFile(t, dir, "sysmon.jsonl", `{"event_id":"22"}`+"\n")

	files, err := Discover(dir)
	require.NoError(t, err)

	events, err := NewLoader(nil).LoadAll(context.Background(), files)

	assert.Nil(t, events)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}
