package detection

import (
	"slices"
	"unicode/utf8"

	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// eventName returns the eventName field when it is a string.
func eventName(p telemetry.Payload) string {
	name, _ := p.String("eventName")
	return name
}

// eventIDIn reports whether the textual event_id is one of ids. Numeric and
// string ids compare the same.
func eventIDIn(p telemetry.Payload, ids ...string) bool {
	id, ok := p.Text("event_id")
	if !ok {
		return false
	}
	return slices.Contains(ids, id)
}

// fromHostOrNetwork filters to host-trace and network-flow sources.
func fromHostOrNetwork(ev *telemetry.EnrichedEvent) bool {
	return ev.Source().IsHostOrNetwork()
}

// fromAuditLog filters to cloud audit-log events.
func fromAuditLog(ev *telemetry.EnrichedEvent) bool {
	return ev.Source().IsAuditLog()
}

// textLength counts characters of a scalar field. Absent and non-scalar
// values count as zero.
func textLength(p telemetry.Payload, key string) int {
	s, ok := p.Text(key)
	if !ok {
		return 0
	}
	return utf8.RuneCountInString(s)
}
