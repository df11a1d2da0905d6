package detection

import (
	"fmt"

	"github.com/telhawk-systems/telhawk-correlate/internal/correlation"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// DNSTunneling groups DNS queries by asset and flags an asset when any query
// name is long or the asset's query volume is high. The finding bundles the
// asset's whole group.
type DNSTunneling struct {
	meta
	queryLength int
	queryVolume int
}

// NewDNSTunneling creates the rule with the given length and volume thresholds.
func NewDNSTunneling(queryLength, queryVolume int) *DNSTunneling {
	return &DNSTunneling{
		meta: meta{
			id:          "dns_tunneling",
			title:       "Possible DNS tunnelling",
			description: "High volume of long DNS queries detected. Investigate for exfiltration via DNS.",
			technique:   "T1071.004",
			severity:    telemetry.SeverityMedium,
		},
		queryLength: queryLength,
		queryVolume: queryVolume,
	}
}

func isDNSQuery(ev *telemetry.EnrichedEvent) bool {
	if !fromHostOrNetwork(ev) {
		return false
	}
	p := ev.Payload()
	return eventIDIn(p, "22", "dns") || eventName(p) == "DnsRequest"
}

// Evaluate implements Rule.
func (r *DNSTunneling) Evaluate(events []*telemetry.EnrichedEvent) []*telemetry.Finding {
	byAsset := correlation.GroupBy(events, func(ev *telemetry.EnrichedEvent) (string, bool) {
		return ev.Asset, isDNSQuery(ev)
	})

	var findings []*telemetry.Finding
	byAsset.Each(func(asset string, group []*telemetry.EnrichedEvent) {
		long := 0
		for _, ev := range group {
			if textLength(ev.Payload(), "QueryName") >= r.queryLength {
				long++
			}
		}
		if long == 0 && len(group) < r.queryVolume {
			return
		}
		findings = append(findings, r.finding(
			fmt.Sprintf("Possible DNS tunnelling on %s", asset),
			group,
			map[string]any{
				"asset":            asset,
				"query_count":      len(group),
				"long_query_count": long,
			},
		))
	})
	return findings
}
