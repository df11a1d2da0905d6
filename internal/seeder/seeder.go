// Package seeder generates deterministic synthetic telemetry: benign noise
// from every source plus one instance of each attack pattern. With default
// thresholds the output yields exactly one finding per rule.
package seeder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/telhawk-systems/telhawk-correlate/internal/ingest"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// Config holds generator settings.
type Config struct {
	// Seed makes output reproducible.
	Seed int64

	// Start is the earliest timestamp generated.
	Start time.Time

	// Span is the window noise is spread across.
	Span time.Duration

	// NoisePerSource is the number of benign records per source.
	NoisePerSource int
}

// DefaultConfig returns a day of telemetry starting 2024-03-01.
func DefaultConfig() Config {
	return Config{
		Seed:           42,
		Start:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Span:           8 * time.Hour,
		NoisePerSource: 40,
	}
}

// Noise limits that keep benign traffic under the default thresholds.
const (
	noiseHosts         = 5
	maxDNSPerNoiseHost = 3
)

// Generator produces telemetry records.
type Generator struct {
	cfg   Config
	faker *gofakeit.Faker
}

// New creates a Generator.
func New(cfg Config) *Generator {
	return &Generator{cfg: cfg, faker: gofakeit.New(cfg.Seed)}
}

// Generate returns records grouped by source. Noise comes first, then the
// attack patterns in order.
func (g *Generator) Generate() map[telemetry.Source][]Record {
	out := make(map[telemetry.Source][]Record)
	add := func(records []Record) {
		for _, r := range records {
			out[r.Source] = append(out[r.Source], r)
		}
	}

	add(g.cloudTrailNoise())
	add(g.sysmonNoise())
	add(g.flowNoise())
	add(g.guardDutyNoise())
	for _, p := range Patterns() {
		add(p.Generate(g.faker, g.cfg.Start))
	}
	return out
}

// WriteDir writes one <source>.jsonl file per source into dir and returns the
// number of records written per source.
func (g *Generator) WriteDir(dir string) (map[telemetry.Source]int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	records := g.Generate()
	counts := make(map[telemetry.Source]int, len(records))
	for _, src := range telemetry.Sources() {
		path := filepath.Join(dir, ingest.FileName(src))
		if err := writeJSONL(path, records[src]); err != nil {
			return nil, err
		}
		counts[src] = len(records[src])
	}
	return counts, nil
}

func writeJSONL(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r.Payload); err != nil {
			return fmt.Errorf("failed to encode record for %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func (g *Generator) at() time.Time {
	offset := g.faker.Number(0, int(g.cfg.Span/time.Second))
	return g.cfg.Start.Add(time.Duration(offset) * time.Second)
}

func (g *Generator) cloudTrailNoise() []Record {
	f := g.faker
	out := make([]Record, 0, g.cfg.NoisePerSource)
	for range g.cfg.NoisePerSource {
		user := strings.ToLower(f.Username())
		payload := map[string]any{
			"eventTime":       stamp(g.at()),
			"sourceIPAddress": noiseIP(f),
			"userIdentity": map[string]any{
				"type":     "IAMUser",
				"userName": user,
			},
		}
		switch f.Number(0, 3) {
		case 0:
			payload["eventSource"] = "signin.amazonaws.com"
			payload["eventName"] = "ConsoleLogin"
			payload["additionalEventData"] = map[string]any{"MFAUsed": "Yes"}
		case 1:
			payload["eventSource"] = "s3.amazonaws.com"
			payload["eventName"] = "PutBucketAcl"
			payload["requestParameters"] = map[string]any{
				"bucketName":        f.Word() + "-logs",
				"AccessControlList": "private",
			}
		case 2:
			payload["eventSource"] = "s3.amazonaws.com"
			payload["eventName"] = "GetObject"
			payload["requestParameters"] = map[string]any{"bucketName": f.Word() + "-assets", "key": f.Word() + ".csv"}
		default:
			payload["eventSource"] = "ec2.amazonaws.com"
			payload["eventName"] = "DescribeInstances"
		}
		out = append(out, Record{Source: telemetry.SourceCloudTrail, Payload: payload})
	}
	return out
}

func (g *Generator) sysmonNoise() []Record {
	f := g.faker
	out := make([]Record, 0, g.cfg.NoisePerSource)
	dnsPerHost := make(map[string]int)
	for i := range g.cfg.NoisePerSource {
		host := fmt.Sprintf("ws-%02d", i%noiseHosts+1)
		payload := map[string]any{
			"timestamp": stamp(g.at()),
			"hostname":  host,
		}
		kind := f.Number(0, 3)
		if kind == 0 && dnsPerHost[host] >= maxDNSPerNoiseHost {
			kind = 1
		}
		switch kind {
		case 0:
			dnsPerHost[host]++
			payload["event_id"] = 22
			payload["QueryName"] = f.DomainName()
		case 1:
			payload["event_id"] = 1
			payload["Image"] = f.RandomString([]string{
				`C:\Windows\System32\cmd.exe`,
				`C:\Program Files\Mozilla Firefox\firefox.exe`,
				`C:\Windows\explorer.exe`,
			})
			payload["User"] = `CORP\` + strings.ToLower(f.Username())
		case 2:
			payload["event_id"] = 4624
			payload["event_data"] = map[string]any{"TargetUserName": strings.ToLower(f.Username())}
		default:
			// a stray mistyped password, one per source address
			payload["event_id"] = 4625
			payload["sourceIPAddress"] = noiseIP(f)
			payload["event_data"] = map[string]any{"TargetUserName": strings.ToLower(f.Username())}
		}
		out = append(out, Record{Source: telemetry.SourceSysmon, Payload: payload})
	}
	return out
}

func (g *Generator) flowNoise() []Record {
	f := g.faker
	out := make([]Record, 0, g.cfg.NoisePerSource)
	for range g.cfg.NoisePerSource {
		out = append(out, Record{
			Source: telemetry.SourceVPCFlow,
			Payload: map[string]any{
				"timestamp": stamp(g.at()),
				"srcaddr":   noiseIP(f),
				"dstaddr":   noiseIP(f),
				"dstport":   f.RandomString([]string{"443", "53", "22", "8080"}),
				"protocol":  6,
				"bytes":     f.Number(40, 150000),
				"action":    "ACCEPT",
			},
		})
	}
	return out
}

func (g *Generator) guardDutyNoise() []Record {
	f := g.faker
	n := max(g.cfg.NoisePerSource/10, 1)
	out := make([]Record, 0, n)
	for range n {
		out = append(out, Record{
			Source: telemetry.SourceGuardDuty,
			Payload: map[string]any{
				"creationDateTime": stamp(g.at()),
				"detail-type":      "GuardDuty Finding",
				"detail": map[string]any{
					"type":     "Recon:EC2/PortProbeUnprotectedPort",
					"severity": 2,
					"id":       f.UUID(),
				},
			},
		})
	}
	return out
}
