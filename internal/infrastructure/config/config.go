package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server    ServerConfig    `koanf:"server"`
	Model     ModelConfig     `koanf:"model"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	Redis     RedisConfig     `koanf:"redis"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type ModelConfig struct {
	// Path to the pretrained classifier artifact; loading it is a
	// startup precondition
	Path string `koanf:"path"`
	// ScoreTimeout bounds a single inference call
	ScoreTimeout time.Duration `koanf:"score_timeout"`
}

type ScoringConfig struct {
	BlockThreshold  float64 `koanf:"block_threshold"`
	ReviewThreshold float64 `koanf:"review_threshold"`
	StateShards     int     `koanf:"state_shards"`
}

// RedisConfig is optional: an empty address selects the in-process
// rate limiter instead of the Redis-backed one.
type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	Burst             int `koanf:"burst"`
}

type TelemetryConfig struct {
	Enabled       bool          `koanf:"enabled"`
	OTLPEndpoint  string        `koanf:"otlp_endpoint"`
	SamplingRate  float64       `koanf:"sampling_rate"`
	ExportTimeout time.Duration `koanf:"export_timeout"`
	BatchTimeout  time.Duration `koanf:"batch_timeout"`
}

// Load builds the configuration from defaults, an optional YAML file,
// and FDS_-prefixed environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Model: ModelConfig{
			Path:         "models/transaction_fraud_model.json",
			ScoreTimeout: 500 * time.Millisecond,
		},
		Scoring: ScoringConfig{
			BlockThreshold:  0.90,
			ReviewThreshold: 0.50,
			StateShards:     64,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			OTLPEndpoint:  "localhost:4317",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
			BatchTimeout:  5 * time.Second,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = "configs/config.yaml"
	}
	// The config file is optional; env vars alone are a valid setup.
	_ = k.Load(file.Provider(path), yaml.Parser())

	if err := k.Load(env.Provider("FDS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "FDS_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Model.Path == "" {
		return fmt.Errorf("model.path must be set")
	}
	if c.Scoring.BlockThreshold <= 0 || c.Scoring.BlockThreshold > 1 {
		return fmt.Errorf("scoring.block_threshold must be in (0,1], got %v", c.Scoring.BlockThreshold)
	}
	if c.Scoring.ReviewThreshold <= 0 || c.Scoring.ReviewThreshold >= c.Scoring.BlockThreshold {
		return fmt.Errorf("scoring.review_threshold must be in (0, block_threshold), got %v", c.Scoring.ReviewThreshold)
	}
	if c.Model.ScoreTimeout <= 0 {
		return fmt.Errorf("model.score_timeout must be positive")
	}
	return nil
}
