// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"mina/internal/service/throttle"
)

// Config holds all configuration for the Mina transcription service.
type Config struct {
	// Server configuration
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9091"`

	// Interim throttling and endpointing thresholds
	InterimThrottleMs            int64   `envconfig:"INTERIM_THROTTLE_MS" default:"400"`
	MinTokenDiff                 int     `envconfig:"MIN_TOKEN_DIFF" default:"5"`
	MinConfidence                float64 `envconfig:"MIN_CONFIDENCE" default:"0.5"`
	VADTailSilenceMs             int64   `envconfig:"VAD_TAIL_SILENCE_MS" default:"800"`
	MinTokensForPunctuationFinal int     `envconfig:"MIN_TOKENS_FOR_PUNCTUATION_FINAL" default:"4"`
	PunctuationBoundaryChars     string  `envconfig:"PUNCTUATION_BOUNDARY_CHARS" default:".!?"`

	// Voice activity detection
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS threshold for speech
	VADFrameDurationMs int64   `envconfig:"VAD_FRAME_DURATION_MS" default:"20"`   // Duration of one audio frame

	// STT provider configuration
	STTProvider     string `envconfig:"STT_PROVIDER" default:"mock"` // mock, google
	STTLanguageCode string `envconfig:"STT_LANGUAGE_CODE" default:"en-US"`
	STTSampleRateHz int    `envconfig:"STT_SAMPLE_RATE_HZ" default:"16000"`

	// Session backpressure limits
	SessionMaxAudioBytes int64 `envconfig:"SESSION_MAX_AUDIO_BYTES" default:"5242880"`
	SessionMaxInterims   int   `envconfig:"SESSION_MAX_INTERIMS" default:"500"`

	// Kafka publishing
	KafkaEnabled      bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers      []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopicInterim string   `envconfig:"KAFKA_TOPIC_INTERIM" default:"mina.transcript.interim"`
	KafkaTopicFinal   string   `envconfig:"KAFKA_TOPIC_FINAL" default:"mina.transcript.final"`
	KafkaPrincipal    string   `envconfig:"KAFKA_PRINCIPAL" default:"svc-mina"`

	// Observability configuration
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load reads configuration from the environment, attempting a .env file
// first. Invalid threshold values reject the whole load; thresholds are
// never silently clamped.
func Load() (*Config, error) {
	// Missing .env is fine; containerized deployments use plain env vars.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ThrottleConfig().Validate(); err != nil {
		return nil, fmt.Errorf("invalid throttle config: %w", err)
	}
	if cfg.VADEnergyThreshold <= 0 {
		return nil, fmt.Errorf("VAD_ENERGY_THRESHOLD must be positive, got %v", cfg.VADEnergyThreshold)
	}
	if cfg.VADFrameDurationMs <= 0 {
		return nil, fmt.Errorf("VAD_FRAME_DURATION_MS must be positive, got %d", cfg.VADFrameDurationMs)
	}
	if cfg.STTProvider != "mock" && cfg.STTProvider != "google" {
		return nil, fmt.Errorf("unknown STT_PROVIDER %q", cfg.STTProvider)
	}

	return &cfg, nil
}

// ThrottleConfig maps the environment options onto the core thresholds.
func (c *Config) ThrottleConfig() throttle.Config {
	return throttle.Config{
		InterimThrottleMs:            c.InterimThrottleMs,
		MinTokenDiff:                 c.MinTokenDiff,
		MinConfidence:                c.MinConfidence,
		VADTailSilenceMs:             c.VADTailSilenceMs,
		MinTokensForPunctuationFinal: c.MinTokensForPunctuationFinal,
		PunctuationBoundaryChars:     c.PunctuationBoundaryChars,
	}
}
