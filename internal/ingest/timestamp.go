package ingest

import (
	"fmt"
	"time"

	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// TimestampKeys are the payload keys that may carry the record time, in
// priority order.
var TimestampKeys = []string{"eventTime", "creationDateTime", "timestamp", "@timestamp"}

// timestampLayouts accept whole and fractional seconds in UTC.
var timestampLayouts = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.999999999Z",
}

// ExtractTimestamp finds the first truthy timestamp key and parses it. A
// non-string value under that key is an error, not a reason to keep looking.
func ExtractTimestamp(p telemetry.Payload) (time.Time, error) {
	for _, key := range TimestampKeys {
		if !p.Truthy(key) {
			continue
		}
		raw, ok := p.String(key)
		if !ok {
			return time.Time{}, fmt.Errorf("timestamp field %q is not a string", key)
		}
		return ParseTimestamp(raw)
	}
	return time.Time{}, fmt.Errorf("missing timestamp (looked for %v)", TimestampKeys)
}

// ParseTimestamp parses an ISO-8601 UTC timestamp with optional fractional
// seconds.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", value)
}
