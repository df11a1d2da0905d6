// Package enrichment attaches asset, actor, geolocation and reputation signals
// to events whose payloads follow no shared schema.
package enrichment

import (
	"context"

	"github.com/telhawk-systems/telhawk-correlate/internal/logging"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// Enrich derives an EnrichedEvent from event and the reference tables. It is
// pure and total: malformed payloads just leave signals unresolved.
func Enrich(event *telemetry.Event, tables Tables) *telemetry.EnrichedEvent {
	p := event.Payload

	enriched := &telemetry.EnrichedEvent{
		Event: event,
		Asset: UnknownAsset,
	}
	if asset, ok := Resolve(AssetProbes, p); ok {
		enriched.Asset = asset
	}
	if actor, ok := Resolve(ActorProbes, p); ok {
		enriched.Actor = &actor
	}
	if ip, ok := Resolve(IPProbes, p); ok {
		if geo, ok := tables.Geolocation(ip); ok {
			enriched.Geolocation = &geo
		}
		if note, ok := tables.Reputation(ip); ok {
			enriched.Reputation = &note
		}
	}
	return enriched
}

// Resolver enriches whole event collections against one set of tables.
type Resolver struct {
	tables Tables
	logger *logging.Logger
}

// NewResolver creates a Resolver. A nil logger discards output.
func NewResolver(tables Tables, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{tables: tables, logger: logger}
}

// EnrichAll enriches events, preserving their order.
func (r *Resolver) EnrichAll(ctx context.Context, events []*telemetry.Event) []*telemetry.EnrichedEvent {
	out := make([]*telemetry.EnrichedEvent, len(events))
	var withActor, withReputation int
	for i, ev := range events {
		out[i] = Enrich(ev, r.tables)
		if out[i].Actor != nil {
			withActor++
		}
		if out[i].Reputation != nil {
			withReputation++
		}
	}

	r.logger.DebugContext(ctx, "enrichment complete",
		logging.Count(len(out)),
		"with_actor", withActor,
		"with_reputation", withReputation,
	)
	return out
}
