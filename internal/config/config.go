package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Service configuration constants
const (
	ServiceName    = "product-service"
	ServiceVersion = "0.1.0"
)

// Kafka configuration constants
const (
	ProductStockTopic      = "product-stock-topic"
	ConsumerGroupID        = "product-stock-consumer-group"
	TopicPartitions        = 1
	TopicReplicationFactor = 1
	MetadataTimeout        = 5 * time.Second
	BatchTimeout           = 10 * time.Millisecond
	WriteTimeout           = 10 * time.Second
	ReadErrorBackoff       = 1 * time.Second
)

// OpenTelemetry configuration constants
const (
	LogsPath       = "/otlp/v1/logs"    // Grafana Cloud OTLP path
	TracesPath     = "/otlp/v1/traces"  // Grafana Cloud OTLP path
	MetricsPath    = "/otlp/v1/metrics" // Grafana Cloud OTLP path
	ExportTimeout  = 30 * time.Second
	MetricInterval = 15 * time.Second
	MaxQueueSize   = 2048
)

// HTTP configuration constants
const (
	DefaultHTTPAddr   = ":8080"
	ReadHeaderTimeout = 5 * time.Second
	ShutdownTimeout   = 15 * time.Second
)

// Config holds environment-specific configuration
type Config struct {
	KafkaBroker    string
	DatabaseURL    string
	HTTPAddr       string
	RunMigrations  bool
	OtelEndpoint   string
	OtelAuthHeader string
}

// TelemetryEnabled reports whether an OTLP endpoint was configured.
func (c *Config) TelemetryEnabled() bool {
	return c.OtelEndpoint != ""
}

// LoadConfig loads configuration from environment variables with validation
func LoadConfig() (*Config, error) {
	config := &Config{
		KafkaBroker:    os.Getenv("KAFKA_BROKER"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		HTTPAddr:       getenv("HTTP_ADDR", DefaultHTTPAddr),
		OtelEndpoint:   os.Getenv("OTEL_ENDPOINT"),
		OtelAuthHeader: os.Getenv("OTEL_AUTH_HEADER"),
	}

	runMigrations, err := boolenv("RUN_MIGRATIONS", true)
	if err != nil {
		return nil, err
	}
	config.RunMigrations = runMigrations

	if config.KafkaBroker == "" {
		return nil, fmt.Errorf("KAFKA_BROKER environment variable is required")
	}
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	// Telemetry is optional, but an endpoint without credentials is a misconfiguration.
	if config.OtelEndpoint != "" && config.OtelAuthHeader == "" {
		return nil, fmt.Errorf("OTEL_AUTH_HEADER environment variable is required when OTEL_ENDPOINT is set")
	}

	return config, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolenv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
