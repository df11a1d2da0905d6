package enrichment

import (
	"strings"

	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// eventDataKey is where host-trace sources nest their per-event fields.
const eventDataKey = "event_data"

// UnknownAsset is the asset value used when nothing in the payload names one.
const UnknownAsset = "unknown"

// Probe is one named attempt at extracting a signal from a payload.
type Probe struct {
	Name    string
	Extract func(p telemetry.Payload) (string, bool)
}

// Resolve runs probes in order and returns the first successful extraction.
func Resolve(probes []Probe, p telemetry.Payload) (string, bool) {
	for _, probe := range probes {
		if v, ok := probe.Extract(p); ok {
			return v, true
		}
	}
	return "", false
}

// IPProbes locate the source IP across audit, flow and host-trace schemas.
var IPProbes = []Probe{
	topLevel("sourceIPAddress"),
	topLevel("source_ip_address"),
	topLevel("srcaddr"),
	topLevel("SourceIp"),
	nested(eventDataKey, "SourceIp"),
}

// ActorProbes locate the acting user. A structured identity block wins over
// flat user fields, which win over the host-trace target user.
var ActorProbes = []Probe{
	nested("userIdentity", "userName"),
	{Name: "userIdentity.arn", Extract: identityARN},
	topLevel("user"),
	topLevel("User"),
	topLevel("Account"),
	topLevel("dstuser"),
	nested(eventDataKey, "TargetUserName"),
}

// AssetProbes locate the host or resource the event concerns. The category
// field is a last resort before UnknownAsset.
var AssetProbes = []Probe{
	topLevel("instance"),
	topLevel("hostname"),
	topLevel("Computer"),
	topLevel("dstaddr"),
	nested(eventDataKey, "Computer"),
	nested(eventDataKey, "WorkstationName"),
	nested(eventDataKey, "TargetComputer"),
	topLevel("detail-type"),
}

func topLevel(key string) Probe {
	return Probe{
		Name: key,
		Extract: func(p telemetry.Payload) (string, bool) {
			return p.String(key)
		},
	}
}

func nested(container, key string) Probe {
	return Probe{
		Name: container + "." + key,
		Extract: func(p telemetry.Payload) (string, bool) {
			inner, ok := p.Map(container)
			if !ok {
				return "", false
			}
			return inner.String(key)
		},
	}
}

// identityARN derives a short name from the last path segment of an ARN,
// e.g. arn:aws:iam::123456789012:user/ops/alice -> alice.
func identityARN(p telemetry.Payload) (string, bool) {
	identity, ok := p.Map("userIdentity")
	if !ok {
		return "", false
	}
	arn, ok := identity.String("arn")
	if !ok {
		return "", false
	}
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		return arn[i+1:], true
	}
	return arn, true
}
