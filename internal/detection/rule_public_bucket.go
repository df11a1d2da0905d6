package detection

import (
	"strings"

	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// PublicBucketACL flags storage ACL changes that grant public access.
type PublicBucketACL struct {
	meta
}

// NewPublicBucketACL creates the rule.
func NewPublicBucketACL() *PublicBucketACL {
	return &PublicBucketACL{meta: meta{
		id:          "public_bucket_acl",
		title:       "S3 bucket exposed to public",
		description: "S3 ACL change granted public access. Confirm business justification and revert if unintended.",
		technique:   "T1530",
		severity:    telemetry.SeverityCritical,
	}}
}

// Evaluate implements Rule.
func (r *PublicBucketACL) Evaluate(events []*telemetry.EnrichedEvent) []*telemetry.Finding {
	var matched []*telemetry.EnrichedEvent
	for _, ev := range events {
		if !fromAuditLog(ev) {
			continue
		}
		p := ev.Payload()
		if eventName(p) != "PutBucketAcl" {
			continue
		}
		params, ok := p.Map("requestParameters")
		if !ok {
			continue
		}
		acl, ok := params.Text("AccessControlList")
		if ok && strings.Contains(strings.ToLower(acl), "public") {
			matched = append(matched, ev)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return []*telemetry.Finding{r.finding("", matched, nil)}
}
