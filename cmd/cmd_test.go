package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telhawk-systems/telhawk-correlate/internal/detection"
	"github.com/telhawk-systems/telhawk-correlate/internal/output"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("TELHAWK_CONFIG_DIR", t.TempDir())

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, _, err := execute(t, "seed", "--out", dir, "--seed", "42", "--noise", "40",
		"--start", "2024-03-01T00:00:00Z", "--span", "8h")
	require.NoError(t, err)
	return dir
}

func TestCommandsRegistered(t *testing.T) {
	expected := map[string]bool{"run": false, "rules": false, "seed": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := expected[c.Name()]; ok {
			expected[c.Name()] = true
		}
	}
	for name, found := range expected {
		assert.True(t, found, "expected command %q to be registered", name)
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "thawk-correlate "+Version+"\n", stdout)
}

func TestSeedCommand(t *testing.T) {
	dir := t.TempDir()
	stdout, _, err := execute(t, "seed", "--out", dir, "--seed", "42", "--noise", "40",
		"--start", "2024-03-01T00:00:00Z", "--span", "8h")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Generated telemetry in "+dir)
	assert.Contains(t, stdout, "rdp-brute-force")
	assert.FileExists(t, filepath.Join(dir, "sysmon.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "cloudtrail.jsonl"))
}

func TestSeedCommand_InvalidStart(t *testing.T) {
	_, _, err := execute(t, "seed", "--out", t.TempDir(), "--start", "yesterday", "--span", "8h", "--noise", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --start")
}

func TestRunCommand_Table(t *testing.T) {
	dir := seedDir(t)
	alerts := filepath.Join(t.TempDir(), "alerts.json")

	stdout, _, err := execute(t, "run", "--data-dir", dir, "--output", "table",
		"--output-file", alerts, "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(stdout, "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, "Severity | Technique  | Title", lines[0])
	assert.Contains(t, stdout, "Possible DNS tunnelling on ws-finance-07")
	assert.Contains(t, stdout, "RDP brute-force from 198.51.100.77")
	assert.Contains(t, stdout, "Wrote 4 alerts to "+alerts)
	assert.FileExists(t, alerts)
}

func TestRunCommand_JSON(t *testing.T) {
	dir := seedDir(t)

	stdout, stderr, err := execute(t, "run", "--data-dir", dir, "--output", "json",
		"--output-file", filepath.Join(t.TempDir(), "alerts.json"), "--log-level", "error")
	require.NoError(t, err)

	var alerts []output.Alert
	require.NoError(t, json.Unmarshal([]byte(stdout), &alerts), "stdout must be pure JSON")
	require.Len(t, alerts, 4)
	assert.Equal(t, "credential_brute_force", alerts[3].RuleID)
	assert.Contains(t, stderr, "Wrote 4 alerts")
}

func TestRunCommand_NoDetections(t *testing.T) {
	stdout, _, err := execute(t, "run", "--data-dir", t.TempDir(), "--output", "table",
		"--output-file", "", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, output.NoDetections+"\n", stdout)
}

func TestRunCommand_MissingDataDir(t *testing.T) {
	_, _, err := execute(t, "run", "--data-dir", filepath.Join(t.TempDir(), "missing"),
		"--output-file", "", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data directory")
}

func TestRulesCommand(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		stdout, _, err := execute(t, "rules", "--output", "table")
		require.NoError(t, err)
		assert.Contains(t, stdout, "console_login_without_mfa")
		assert.Contains(t, stdout, "T1071.004")
		assert.Contains(t, stdout, "failure_window=15m0s")
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, "rules", "--output", "json")
		require.NoError(t, err)

		var rules []detection.RuleInfo
		require.NoError(t, json.Unmarshal([]byte(stdout), &rules))
		require.Len(t, rules, 4)
		assert.Equal(t, "credential_brute_force", rules[3].ID)
	})
}
