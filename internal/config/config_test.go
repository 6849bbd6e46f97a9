package config

import (
	"os"
	"testing"
)

var throttleEnvVars = []string{
	"PORT", "METRICS_PORT", "LOG_LEVEL",
	"INTERIM_THROTTLE_MS", "MIN_TOKEN_DIFF", "MIN_CONFIDENCE",
	"VAD_TAIL_SILENCE_MS", "MIN_TOKENS_FOR_PUNCTUATION_FINAL",
	"PUNCTUATION_BOUNDARY_CHARS", "VAD_ENERGY_THRESHOLD",
	"VAD_FRAME_DURATION_MS", "STT_PROVIDER", "STT_LANGUAGE_CODE",
	"STT_SAMPLE_RATE_HZ", "SESSION_MAX_AUDIO_BYTES", "SESSION_MAX_INTERIMS",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_PRINCIPAL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range throttleEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port '8080', got %s", cfg.Port)
	}
	if cfg.InterimThrottleMs != 400 {
		t.Errorf("expected default throttle 400ms, got %d", cfg.InterimThrottleMs)
	}
	if cfg.MinTokenDiff != 5 {
		t.Errorf("expected default min token diff 5, got %d", cfg.MinTokenDiff)
	}
	if cfg.MinConfidence != 0.5 {
		t.Errorf("expected default min confidence 0.5, got %v", cfg.MinConfidence)
	}
	if cfg.VADTailSilenceMs != 800 {
		t.Errorf("expected default vad tail 800ms, got %d", cfg.VADTailSilenceMs)
	}
	if cfg.MinTokensForPunctuationFinal != 4 {
		t.Errorf("expected default punctuation floor 4, got %d", cfg.MinTokensForPunctuationFinal)
	}
	if cfg.PunctuationBoundaryChars != ".!?" {
		t.Errorf("expected default boundary chars '.!?', got %s", cfg.PunctuationBoundaryChars)
	}
	if cfg.STTProvider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STTProvider)
	}
	if cfg.KafkaEnabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	os.Setenv("INTERIM_THROTTLE_MS", "300")
	os.Setenv("MIN_TOKEN_DIFF", "3")
	os.Setenv("MIN_CONFIDENCE", "0.7")
	os.Setenv("VAD_TAIL_SILENCE_MS", "1200")
	os.Setenv("MIN_TOKENS_FOR_PUNCTUATION_FINAL", "6")
	os.Setenv("PUNCTUATION_BOUNDARY_CHARS", ".")
	os.Setenv("STT_PROVIDER", "google")
	os.Setenv("LOG_LEVEL", "debug")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.InterimThrottleMs != 300 {
		t.Errorf("expected throttle 300ms, got %d", cfg.InterimThrottleMs)
	}
	if cfg.MinTokenDiff != 3 {
		t.Errorf("expected min token diff 3, got %d", cfg.MinTokenDiff)
	}
	if cfg.MinConfidence != 0.7 {
		t.Errorf("expected min confidence 0.7, got %v", cfg.MinConfidence)
	}
	if cfg.VADTailSilenceMs != 1200 {
		t.Errorf("expected vad tail 1200ms, got %d", cfg.VADTailSilenceMs)
	}
	if cfg.MinTokensForPunctuationFinal != 6 {
		t.Errorf("expected punctuation floor 6, got %d", cfg.MinTokensForPunctuationFinal)
	}
	if cfg.STTProvider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.STTProvider)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}
}

func TestLoad_InvalidThresholds_FailFast(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"negative throttle", "INTERIM_THROTTLE_MS", "-1"},
		{"negative token diff", "MIN_TOKEN_DIFF", "-5"},
		{"confidence above one", "MIN_CONFIDENCE", "1.5"},
		{"confidence below zero", "MIN_CONFIDENCE", "-0.2"},
		{"zero vad tail", "VAD_TAIL_SILENCE_MS", "0"},
		{"zero punctuation floor", "MIN_TOKENS_FOR_PUNCTUATION_FINAL", "0"},
		{"unknown provider", "STT_PROVIDER", "azure"},
		{"zero energy threshold", "VAD_ENERGY_THRESHOLD", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			os.Setenv(tt.key, tt.value)
			defer os.Unsetenv(tt.key)

			if _, err := Load(); err == nil {
				t.Errorf("expected Load to fail for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestThrottleConfig_Mapping(t *testing.T) {
	cfg := &Config{
		InterimThrottleMs:            350,
		MinTokenDiff:                 2,
		MinConfidence:                0.6,
		VADTailSilenceMs:             900,
		MinTokensForPunctuationFinal: 5,
		PunctuationBoundaryChars:     ".!",
	}

	tc := cfg.ThrottleConfig()
	if tc.InterimThrottleMs != 350 || tc.MinTokenDiff != 2 || tc.MinConfidence != 0.6 ||
		tc.VADTailSilenceMs != 900 || tc.MinTokensForPunctuationFinal != 5 ||
		tc.PunctuationBoundaryChars != ".!" {
		t.Errorf("throttle config mapping mismatch: %+v", tc)
	}
}
