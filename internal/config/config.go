// Package config loads correlate configuration from YAML, environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/telhawk-systems/telhawk-correlate/internal/detection"
	"github.com/telhawk-systems/telhawk-correlate/internal/enrichment"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the config directory.
const FileName = "correlate.yaml"

// EnvPrefix prefixes every environment override, e.g. THAWK_DATA_DIR.
const EnvPrefix = "THAWK"

// Config is the full runtime configuration.
type Config struct {
	DataDir    string               `mapstructure:"data_dir"`
	Thresholds detection.Thresholds `mapstructure:"thresholds"`
	Enrichment EnrichmentConfig     `mapstructure:"enrichment"`
	Engine     EngineConfig         `mapstructure:"engine"`
	Output     OutputConfig         `mapstructure:"output"`
	Logging    LoggingConfig        `mapstructure:"logging"`
	Metrics    MetricsConfig        `mapstructure:"metrics"`

	// Alert sinks
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`

	path string
}

// EnrichmentConfig holds the reference tables. Entries are lists rather than
// maps because IP keys contain dots.
type EnrichmentConfig struct {
	Reputation    []ReputationEntry  `mapstructure:"reputation"`
	Geolocation   []GeolocationEntry `mapstructure:"geolocation"`
	ReferenceFile string             `mapstructure:"reference_file"`
}

// ReputationEntry tags one IP with a threat-intel note.
type ReputationEntry struct {
	IP   string `mapstructure:"ip"`
	Note string `mapstructure:"note"`
}

// GeolocationEntry maps one IP to a country code.
type GeolocationEntry struct {
	IP      string `mapstructure:"ip"`
	Country string `mapstructure:"country"`
}

// EngineConfig tunes rule evaluation.
type EngineConfig struct {
	Concurrent bool `mapstructure:"concurrent"`
}

// OutputConfig controls the primary findings output.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds the Prometheus textfile destination.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// RedisConfig holds Redis stream sink configuration
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Stream  string `mapstructure:"stream"`
	MaxLen  int64  `mapstructure:"max_len"`
}

// NATSConfig holds NATS sink configuration
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// OpenSearchConfig holds OpenSearch sink configuration
type OpenSearchConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	Index         string `mapstructure:"index"`
}

// PostgresConfig holds PostgreSQL sink connection settings
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// URL returns the connection string in URL form, as accepted by both pgx and
// golang-migrate.
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// WebhookConfig holds webhook sink configuration
type WebhookConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	URL        string        `mapstructure:"url"`
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"data-dir":    "data_dir",
	"output":      "output.format",
	"output-file": "output.path",
	"concurrent":  "engine.concurrent",
	"log-level":   "logging.level",
	"log-format":  "logging.format",
	"metrics":     "metrics.textfile",
}

// DefaultPath returns $TELHAWK_CONFIG_DIR/correlate.yaml, falling back to
// $HOME/.thawk/correlate.yaml.
func DefaultPath() string {
	dir := os.Getenv("TELHAWK_CONFIG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return FileName
		}
		dir = filepath.Join(home, ".thawk")
	}
	return filepath.Join(dir, FileName)
}

// Load reads configuration. An explicit path must exist; the default path is
// optional. Flags that were set on the command line override the file and
// environment.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	// Environment variables override with THAWK prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
		if explicit || !missing {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		// No config file - continue with defaults and env vars
		path = ""
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads the configuration and panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path, nil)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Path returns the config file that was read, or "" when defaults were used.
func (c *Config) Path() string {
	return c.path
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("thresholds: %w", err))
	}
	if !slices.Contains([]string{"table", "json"}, c.Output.Format) {
		errs = append(errs, fmt.Errorf("output.format must be table or json, got %q", c.Output.Format))
	}
	if !slices.Contains([]string{"json", "text"}, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format))
	}
	for i, e := range c.Enrichment.Reputation {
		if e.IP == "" {
			errs = append(errs, fmt.Errorf("enrichment.reputation[%d]: ip is required", i))
		}
	}
	for i, e := range c.Enrichment.Geolocation {
		if e.IP == "" {
			errs = append(errs, fmt.Errorf("enrichment.geolocation[%d]: ip is required", i))
		}
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required when redis is enabled"))
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, errors.New("nats.url is required when nats is enabled"))
	}
	if c.OpenSearch.Enabled && c.OpenSearch.URL == "" {
		errs = append(errs, errors.New("opensearch.url is required when opensearch is enabled"))
	}
	if c.Postgres.Enabled && c.Postgres.Host == "" {
		errs = append(errs, errors.New("postgres.host is required when postgres is enabled"))
	}
	if c.Webhook.Enabled {
		if c.Webhook.URL == "" {
			errs = append(errs, errors.New("webhook.url is required when webhook is enabled"))
		}
		if c.Webhook.Secret == "" {
			errs = append(errs, errors.New("webhook.secret is required when webhook is enabled"))
		}
	}
	return errors.Join(errs...)
}

// referenceFile is the on-disk layout of enrichment.reference_file.
type referenceFile struct {
	Reputation  map[string]string `yaml:"reputation"`
	Geolocation map[string]string `yaml:"geolocation"`
}

// Tables builds the enrichment lookup tables. Entries from the reference file
// override inline entries for the same IP.
func (c *Config) Tables() (enrichment.Tables, error) {
	reputation := make(map[string]string, len(c.Enrichment.Reputation))
	for _, e := range c.Enrichment.Reputation {
		reputation[e.IP] = e.Note
	}
	geolocation := make(map[string]string, len(c.Enrichment.Geolocation))
	for _, e := range c.Enrichment.Geolocation {
		geolocation[e.IP] = e.Country
	}

	if c.Enrichment.ReferenceFile != "" {
		data, err := os.ReadFile(c.Enrichment.ReferenceFile)
		if err != nil {
			return enrichment.Tables{}, fmt.Errorf("failed to read reference file: %w", err)
		}
		var ref referenceFile
		if err := yaml.Unmarshal(data, &ref); err != nil {
			return enrichment.Tables{}, fmt.Errorf("failed to parse reference file %s: %w", c.Enrichment.ReferenceFile, err)
		}
		for ip, note := range ref.Reputation {
			reputation[ip] = note
		}
		for ip, country := range ref.Geolocation {
			geolocation[ip] = country
		}
	}

	return enrichment.NewTables(reputation, geolocation), nil
}
