// Package telemetry defines the canonical in-memory model shared by ingestion,
// enrichment, detection and alert projection: events, enriched events and findings.
package telemetry

import "fmt"

// Source identifies the telemetry feed an event was read from.
type Source string

const (
	// SourceCloudTrail is the cloud control-plane audit log.
	SourceCloudTrail Source = "cloudtrail"
	// SourceGuardDuty carries managed intrusion-detection findings.
	SourceGuardDuty Source = "guardduty"
	// SourceSysmon carries host-level process, logon and DNS traces.
	SourceSysmon Source = "sysmon"
	// SourceVPCFlow carries network flow records.
	SourceVPCFlow Source = "vpcflow"
)

var allSources = []Source{SourceCloudTrail, SourceGuardDuty, SourceSysmon, SourceVPCFlow}

// Sources returns every known source in declaration order.
func Sources() []Source {
	out := make([]Source, len(allSources))
	copy(out, allSources)
	return out
}

// IsValid reports whether s is one of the known sources.
func (s Source) IsValid() bool {
	switch s {
	case SourceCloudTrail, SourceGuardDuty, SourceSysmon, SourceVPCFlow:
		return true
	default:
		return false
	}
}

// IsAuditLog reports whether s is the cloud audit-log feed.
func (s Source) IsAuditLog() bool {
	return s == SourceCloudTrail
}

// IsHostOrNetwork reports whether s is a host-trace or network-flow feed.
func (s Source) IsHostOrNetwork() bool {
	return s == SourceSysmon || s == SourceVPCFlow
}

// ParseSource converts a source name into a Source.
func ParseSource(name string) (Source, error) {
	s := Source(name)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown telemetry source: %q", name)
	}
	return s, nil
}
