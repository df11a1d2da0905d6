package detection

import (
	"fmt"
	"slices"
	"time"

	"github.com/telhawk-systems/telhawk-correlate/internal/correlation"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// BruteForce counts failed interactive logons per source IP and flags an IP
// whose densest window of failures reaches the threshold. The finding
// bundles every failure from that IP, not only the densest window.
type BruteForce struct {
	meta
	failures int
	window   time.Duration
}

// NewBruteForce creates the rule with a failure count and window.
func NewBruteForce(failures int, window time.Duration) *BruteForce {
	return &BruteForce{
		meta: meta{
			id:          "credential_brute_force",
			title:       "RDP brute-force",
			description: "Multiple failed RDP authentications in a short window. Review for credential stuffing attempts.",
			technique:   "T1110",
			severity:    telemetry.SeverityHigh,
		},
		failures: failures,
		window:   window,
	}
}

func isFailedLogon(ev *telemetry.EnrichedEvent) bool {
	if !fromHostOrNetwork(ev) {
		return false
	}
	p := ev.Payload()
	return eventIDIn(p, "4625", "rdp-fail") || eventName(p) == "RdpLogonFailed"
}

// failureSourceIP reads the first truthy of sourceIPAddress and srcaddr.
// A truthy value that is not a string disqualifies the event.
func failureSourceIP(p telemetry.Payload) (string, bool) {
	key := "srcaddr"
	if p.Truthy("sourceIPAddress") {
		key = "sourceIPAddress"
	}
	ip, ok := p.String(key)
	if !ok || ip == "" {
		return "", false
	}
	return ip, true
}

// Evaluate implements Rule.
func (r *BruteForce) Evaluate(events []*telemetry.EnrichedEvent) []*telemetry.Finding {
	byIP := correlation.GroupBy(events, func(ev *telemetry.EnrichedEvent) (string, bool) {
		if !isFailedLogon(ev) {
			return "", false
		}
		return failureSourceIP(ev.Payload())
	})

	var findings []*telemetry.Finding
	byIP.Each(func(ip string, group []*telemetry.EnrichedEvent) {
		stamps := make([]time.Time, len(group))
		for i, ev := range group {
			stamps[i] = ev.Timestamp()
		}
		slices.SortFunc(stamps, time.Time.Compare)
		peak := correlation.Densest(stamps, r.window)
		if peak.Count < r.failures {
			return
		}
		findings = append(findings, r.finding(
			fmt.Sprintf("RDP brute-force from %s", ip),
			group,
			map[string]any{
				"source_ip":         ip,
				"failure_count":     len(group),
				"peak_window_count": peak.Count,
				"peak_window_start": stamps[peak.Start],
				"peak_window_end":   stamps[peak.End],
				"window":            r.window.String(),
			},
		))
	})
	return findings
}
