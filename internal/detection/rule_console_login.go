package detection

import "github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"

// ConsoleLoginWithoutMFA flags cloud console sign-ins that did not use MFA.
// All matches are bundled into a single finding.
type ConsoleLoginWithoutMFA struct {
	meta
}

// NewConsoleLoginWithoutMFA creates the rule.
func NewConsoleLoginWithoutMFA() *ConsoleLoginWithoutMFA {
	return &ConsoleLoginWithoutMFA{meta: meta{
		id:          "console_login_without_mfa",
		title:       "AWS console login without MFA",
		description: "Console logins detected without MFA from IPs with questionable reputation. Verify whether the users expected this access.",
		technique:   "T1078",
		severity:    telemetry.SeverityHigh,
	}}
}

// Evaluate implements Rule.
func (r *ConsoleLoginWithoutMFA) Evaluate(events []*telemetry.EnrichedEvent) []*telemetry.Finding {
	var matched []*telemetry.EnrichedEvent
	for _, ev := range events {
		if !fromAuditLog(ev) {
			continue
		}
		p := ev.Payload()
		if eventName(p) != "ConsoleLogin" {
			continue
		}
		extra, ok := p.Map("additionalEventData")
		if !ok {
			continue
		}
		if mfa, _ := extra.String("MFAUsed"); mfa == "No" {
			matched = append(matched, ev)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return []*telemetry.Finding{r.finding("", matched, map[string]any{
		"actors": distinctActors(matched),
	})}
}

// distinctActors lists resolved actor names in first-seen order.
func distinctActors(events []*telemetry.EnrichedEvent) []string {
	seen := make(map[string]struct{})
	actors := make([]string, 0)
	for _, ev := range events {
		name := ev.ActorName()
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		actors = append(actors, name)
	}
	return actors
}
