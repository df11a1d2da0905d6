package config

import "github.com/spf13/viper"

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")

	// Detection thresholds
	v.SetDefault("thresholds.dns_query_length", 60)
	v.SetDefault("thresholds.dns_query_volume", 25)
	v.SetDefault("thresholds.failure_count", 6)
	v.SetDefault("thresholds.failure_window", "15m")

	// Enrichment reference data
	v.SetDefault("enrichment.reputation", []map[string]any{
		{"ip": "203.0.113.5", "note": "Known threat actor infrastructure"},
		{"ip": "198.51.100.10", "note": "Anonymous VPN provider"},
		{"ip": "198.51.100.77", "note": "Credential stuffing botnet node"},
	})
	v.SetDefault("enrichment.geolocation", []map[string]any{
		{"ip": "198.51.100.10", "country": "RU"},
		{"ip": "198.51.100.77", "country": "CN"},
		{"ip": "203.0.113.5", "country": "BR"},
	})
	v.SetDefault("enrichment.reference_file", "")

	v.SetDefault("engine.concurrent", false)

	v.SetDefault("output.format", "table")
	v.SetDefault("output.path", "alerts.json")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.textfile", "")

	// Redis stream sink
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.stream", "telhawk:findings")
	v.SetDefault("redis.max_len", 10000)

	// NATS sink
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "telhawk.findings")
	v.SetDefault("nats.max_reconnects", 5)
	v.SetDefault("nats.reconnect_wait", "2s")

	// OpenSearch sink
	v.SetDefault("opensearch.enabled", false)
	v.SetDefault("opensearch.url", "https://localhost:9200")
	v.SetDefault("opensearch.username", "admin")
	v.SetDefault("opensearch.password", "")
	v.SetDefault("opensearch.tls_skip_verify", true)
	v.SetDefault("opensearch.index", "telhawk-findings")

	// PostgreSQL sink
	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.database", "telhawk")
	v.SetDefault("postgres.user", "telhawk")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.sslmode", "disable")

	// Webhook sink
	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.issuer", "telhawk-correlate")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.max_retries", 3)
}
