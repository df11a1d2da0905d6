package seeder

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/telhawk-systems/telhawk-correlate/pkg/telemetry"
)

// Record is one generated telemetry line.
type Record struct {
	Source  telemetry.Source
	Payload map[string]any
}

// Pattern generates the events of one suspicious activity.
type Pattern interface {
	// Name returns a short identifier, e.g. "rdp-brute-force"
	Name() string

	// Technique returns the MITRE ATT&CK technique ID the activity maps to
	Technique() string

	// Description returns a human-readable description
	Description() string

	// Generate creates the events, all timestamped at or after start
	Generate(f *gofakeit.Faker, start time.Time) []Record
}

// Patterns returns the built-in attack patterns, one per detection rule.
func Patterns() []Pattern {
	return []Pattern{
		consoleLoginNoMFA{},
		publicBucketACL{},
		dnsTunnel{},
		rdpBruteForce{},
	}
}

const timeLayout = "2006-01-02T15:04:05Z"

func stamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Attack infrastructure. These addresses appear in the default enrichment
// tables and never in generated noise.
const (
	vpnIP         = "198.51.100.10"
	threatActorIP = "203.0.113.5"
	botnetIP      = "198.51.100.77"
	tunnelHost    = "ws-finance-07"
	domainCtrl    = "dc-01"
)

type consoleLoginNoMFA struct{}

func (consoleLoginNoMFA) Name() string      { return "console-login-no-mfa" }
func (consoleLoginNoMFA) Technique() string { return "T1078" }
func (consoleLoginNoMFA) Description() string {
	return "Console sign-in without MFA from an anonymising VPN"
}

func (consoleLoginNoMFA) Generate(f *gofakeit.Faker, start time.Time) []Record {
	user := strings.ToLower(f.Username())
	at := start.Add(2 * time.Hour)
	return []Record{{
		Source: telemetry.SourceCloudTrail,
		Payload: map[string]any{
			"eventTime":       stamp(at),
			"eventSource":     "signin.amazonaws.com",
			"eventName":       "ConsoleLogin",
			"sourceIPAddress": vpnIP,
			"userAgent":       f.UserAgent(),
			"userIdentity": map[string]any{
				"type":     "IAMUser",
				"userName": user,
				"arn":      "arn:aws:iam::123456789012:user/" + user,
			},
			"additionalEventData": map[string]any{
				"MFAUsed":       "No",
				"LoginTo":       "https://console.aws.amazon.com/console/home",
				"MobileVersion": "No",
			},
			"responseElements": map[string]any{"ConsoleLogin": "Success"},
		},
	}}
}

type publicBucketACL struct{}

func (publicBucketACL) Name() string        { return "public-bucket-acl" }
func (publicBucketACL) Technique() string   { return "T1530" }
func (publicBucketACL) Description() string { return "Bucket ACL changed to public-read" }

func (publicBucketACL) Generate(f *gofakeit.Faker, start time.Time) []Record {
	at := start.Add(2*time.Hour + 10*time.Minute)
	return []Record{{
		Source: telemetry.SourceCloudTrail,
		Payload: map[string]any{
			"eventTime":       stamp(at),
			"eventSource":     "s3.amazonaws.com",
			"eventName":       "PutBucketAcl",
			"sourceIPAddress": threatActorIP,
			"userIdentity": map[string]any{
				"type":     "IAMUser",
				"userName": "svc-backup",
			},
			"requestParameters": map[string]any{
				"bucketName":        "finance-exports-" + strings.ToLower(f.LetterN(6)),
				"AccessControlList": "public-read",
			},
		},
	}}
}

type dnsTunnel struct{}

func (dnsTunnel) Name() string        { return "dns-tunnel" }
func (dnsTunnel) Technique() string   { return "T1071.004" }
func (dnsTunnel) Description() string { return "Long encoded DNS queries from a single workstation" }

func (dnsTunnel) Generate(f *gofakeit.Faker, start time.Time) []Record {
	const queries = 30
	at := start.Add(3 * time.Hour)
	out := make([]Record, 0, queries)
	for i := range queries {
		out = append(out, Record{
			Source: telemetry.SourceSysmon,
			Payload: map[string]any{
				"timestamp": stamp(at.Add(time.Duration(i) * 20 * time.Second)),
				"event_id":  22,
				"hostname":  tunnelHost,
				"Image":     `C:\Windows\System32\svchost.exe`,
				"QueryName": hexLabel(f, 48) + ".t.exfil-c2.net",
				"event_data": map[string]any{
					"Computer": tunnelHost,
				},
			},
		})
	}
	return out
}

type rdpBruteForce struct{}

func (rdpBruteForce) Name() string        { return "rdp-brute-force" }
func (rdpBruteForce) Technique() string   { return "T1110" }
func (rdpBruteForce) Description() string { return "Burst of failed RDP logons from a botnet node" }

func (rdpBruteForce) Generate(f *gofakeit.Faker, start time.Time) []Record {
	const attempts = 8
	at := start.Add(4 * time.Hour)
	out := make([]Record, 0, attempts+1)
	for i := range attempts {
		out = append(out, Record{
			Source: telemetry.SourceSysmon,
			Payload: map[string]any{
				"timestamp":       stamp(at.Add(time.Duration(i) * 45 * time.Second)),
				"event_id":        4625,
				"hostname":        domainCtrl,
				"sourceIPAddress": botnetIP,
				"LogonType":       10,
				"event_data": map[string]any{
					"TargetUserName": f.RandomString([]string{"administrator", "admin", "backup"}),
					"Status":         "0xC000006D",
				},
			},
		})
	}
	// the flow log sees the same failures from the network side
	out = append(out, Record{
		Source: telemetry.SourceVPCFlow,
		Payload: map[string]any{
			"timestamp": stamp(at.Add(attempts * 45 * time.Second)),
			"event_id":  "rdp-fail",
			"srcaddr":   botnetIP,
			"dstaddr":   "10.0.0.10",
			"dstport":   3389,
			"action":    "REJECT",
		},
	})
	return out
}

func hexLabel(f *gofakeit.Faker, n int) string {
	const digits = "0123456789abcdef"
	var b strings.Builder
	for range n {
		b.WriteByte(digits[f.Number(0, 15)])
	}
	return b.String()
}

// noiseIP returns a private address; attack infrastructure is all public.
func noiseIP(f *gofakeit.Faker) string {
	return fmt.Sprintf("10.%d.%d.%d", f.Number(1, 254), f.Number(0, 255), f.Number(1, 254))
}
