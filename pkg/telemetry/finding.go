package telemetry

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Severity grades a finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from 1 (low) to 4 (critical). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// ParseSeverity converts a case-insensitive severity name.
func ParseSeverity(name string) (Severity, error) {
	s := Severity(strings.ToLower(name))
	if s.Rank() == 0 {
		return "", fmt.Errorf("unknown severity: %q", name)
	}
	return s, nil
}

// findingNamespace scopes finding IDs derived from fingerprints.
var findingNamespace = uuid.MustParse("6f1c2a52-6a0e-4d53-9a43-5b1d7f0e2c11")

// Finding is the output of one rule evaluation. Events is never empty and
// references members of the enriched collection the run was given.
type Finding struct {
	ID          string
	RuleID      string
	Title       string
	Description string
	Severity    Severity
	Technique   string
	Events      []*EnrichedEvent
	Metadata    map[string]any
}

// Fingerprint returns a stable digest of the rule, title and contributing
// events. Two runs over the same input produce the same fingerprint.
func (f *Finding) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", f.RuleID, f.Title, f.Technique)
	for _, ev := range f.Events {
		fmt.Fprintf(h, "%s\x00%s\x00", ev.Source(), ev.Timestamp().UTC().Format(time.RFC3339Nano))
		// map keys are marshalled sorted, so payload bytes are stable
		body, err := json.Marshal(ev.Payload())
		if err == nil {
			h.Write(body)
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AssignID derives the finding ID from its fingerprint.
func (f *Finding) AssignID() {
	f.ID = uuid.NewSHA1(findingNamespace, []byte(f.Fingerprint())).String()
}
