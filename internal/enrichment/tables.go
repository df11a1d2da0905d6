package enrichment

import "maps"

// Tables holds the static reference data used during enrichment. Values are
// copied on construction and never handed out for mutation, so a Tables value
// can be shared by concurrent callers.
type Tables struct {
	reputation  map[string]string
	geolocation map[string]string
}

// NewTables builds Tables from IP→reputation-note and IP→geolocation maps.
func NewTables(reputation, geolocation map[string]string) Tables {
	return Tables{
		reputation:  cloneOrEmpty(reputation),
		geolocation: cloneOrEmpty(geolocation),
	}
}

// Reputation returns the reputation note for ip. Exact key match only.
func (t Tables) Reputation(ip string) (string, bool) {
	v, ok := t.reputation[ip]
	return v, ok
}

// Geolocation returns the geolocation code for ip. Exact key match only.
func (t Tables) Geolocation(ip string) (string, bool) {
	v, ok := t.geolocation[ip]
	return v, ok
}

// Len reports the number of entries in each table.
func (t Tables) Len() (reputation, geolocation int) {
	return len(t.reputation), len(t.geolocation)
}

func cloneOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}
