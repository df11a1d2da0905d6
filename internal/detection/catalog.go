package detection

import "github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"

// Catalog returns the fixed rule set in evaluation order.
func Catalog(th Thresholds) []Rule {
	return []Rule{
		NewConsoleLoginWithoutMFA(),
		NewPublicBucketACL(),
		NewDNSTunneling(th.DNSQueryLength, th.DNSQueryVolume),
		NewBruteForce(th.FailureCount, th.FailureWindow),
	}
}

// RuleInfo is the static description of a rule.
type RuleInfo struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Technique   string             `json:"technique"`
	Severity    telemetry.Severity `json:"severity"`
}

// Describe lists the attributes of each rule, preserving order.
func Describe(rules []Rule) []RuleInfo {
	out := make([]RuleInfo, len(rules))
	for i, r := range rules {
		out[i] = RuleInfo{
			ID:          r.ID(),
			Title:       r.Title(),
			Description: r.Description(),
			Technique:   r.Technique(),
			Severity:    r.Severity(),
		}
	}
	return out
}
