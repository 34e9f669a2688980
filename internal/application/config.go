package application

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration loaded at startup.
type Config struct {
	// Server configures the network listeners.
	Server ServerConfig `yaml:"server" validate:"required"`
	// Detector configures the external expression-detector service.
	Detector DetectorConfig `yaml:"detector"`
	// Ingest bounds the streaming ingestion path.
	Ingest IngestConfig `yaml:"ingest"`
	// Scoring carries the audio scorer parameters as a flexible YAML
	// block decoded by the scorer itself.
	Scoring yaml.Node `yaml:"scoring"`
	// Logging configures the optional rotating file logger.
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the WebSocket and metrics listeners.
type ServerConfig struct {
	// ListenAddr is the address of the client-facing listener.
	ListenAddr string `yaml:"listen_addr" validate:"required,hostname_port"`
	// MetricsAddr is the address of the Prometheus /metrics listener.
	// Empty disables the metrics listener.
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

// DetectorConfig configures the expression-detector collaborator.
// An empty URL disables expression scoring entirely; audio-only events
// still work.
type DetectorConfig struct {
	// URL is the detector service endpoint.
	URL string `yaml:"url" validate:"omitempty,url"`
	// TimeoutMS bounds one detector call. A slow call past the timeout
	// yields no result for that frame.
	TimeoutMS int `yaml:"timeout_ms" validate:"omitempty,min=1,max=60000"`
}

// IngestConfig bounds the streaming ingestion path.
type IngestConfig struct {
	// AudioPerSecond is the sustained per-group audio sample rate.
	AudioPerSecond float64 `yaml:"audio_per_second" validate:"omitempty,gt=0"`
	// VideoPerSecond is the sustained per-group video frame rate.
	VideoPerSecond float64 `yaml:"video_per_second" validate:"omitempty,gt=0"`
	// Burst allows temporary spikes above the sustained rates.
	Burst int `yaml:"burst" validate:"omitempty,min=1"`
	// QueueSize is the dispatcher's inbound queue depth.
	QueueSize int `yaml:"queue_size" validate:"omitempty,min=1"`
}

// LoggingConfig configures the rotating file logger. An empty filename
// keeps logging on stderr.
type LoggingConfig struct {
	Filename   string `yaml:"filename"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"omitempty,min=1"`
	MaxBackups int    `yaml:"max_backups" validate:"omitempty,min=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"omitempty,min=0"`
	Compress   bool   `yaml:"compress"`
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:  "0.0.0.0:8000",
			MetricsAddr: "0.0.0.0:9090",
		},
		Detector: DetectorConfig{TimeoutMS: 2000},
		Ingest: IngestConfig{
			AudioPerSecond: 20,
			VideoPerSecond: 10,
			Burst:          10,
			QueueSize:      1024,
		},
		Logging: LoggingConfig{MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 14},
	}
}

// LoadConfig reads, decodes, and validates a YAML configuration file,
// overlaying it on the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}
