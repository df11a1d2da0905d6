package telemetry

import (
	"slices"
	"time"
)

// Event is one normalized telemetry record. It is not mutated after ingestion.
type Event struct {
	Source    Source
	Timestamp time.Time
	Payload   Payload
}

// SortByTime orders events ascending by timestamp. Ties keep arrival order.
func SortByTime(events []*Event) {
	slices.SortStableFunc(events, func(a, b *Event) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}

// EnrichedEvent is an Event plus best-effort identity and location signals.
// Asset is always set; the optional signals are nil when unresolved.
type EnrichedEvent struct {
	Event       *Event
	Asset       string
	Actor       *string
	Geolocation *string
	Reputation  *string
}

// Source returns the source of the underlying event.
func (e *EnrichedEvent) Source() Source {
	return e.Event.Source
}

// Timestamp returns the timestamp of the underlying event.
func (e *EnrichedEvent) Timestamp() time.Time {
	return e.Event.Timestamp
}

// Payload returns the raw payload of the underlying event.
func (e *EnrichedEvent) Payload() Payload {
	return e.Event.Payload
}

// ActorName returns the resolved actor or "".
func (e *EnrichedEvent) ActorName() string {
	return deref(e.Actor)
}

// GeolocationCode returns the resolved geolocation or "".
func (e *EnrichedEvent) GeolocationCode() string {
	return deref(e.Geolocation)
}

// ReputationNote returns the resolved reputation note or "".
func (e *EnrichedEvent) ReputationNote() string {
	return deref(e.Reputation)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
