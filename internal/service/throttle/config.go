package throttle

import (
	"errors"
	"fmt"
)

// Errors for invalid throttling configuration.
var (
	ErrNegativeThrottle   = errors.New("interim throttle must not be negative")
	ErrNegativeTokenDiff  = errors.New("min token diff must not be negative")
	ErrConfidenceRange    = errors.New("min confidence must be within [0,1]")
	ErrVADTailNotPositive = errors.New("vad tail silence must be positive")
	ErrPunctuationTokens  = errors.New("min tokens for punctuation final must be at least 1")
	ErrNoPunctuationChars = errors.New("punctuation boundary chars must not be empty")
)

// Config holds the throttling and endpointing thresholds.
// Recognized options are fixed for the process lifetime.
type Config struct {
	// InterimThrottleMs is the minimum milliseconds between two accepted
	// interim emissions for the same session.
	InterimThrottleMs int64

	// MinTokenDiff is the minimum number of newly-introduced tokens
	// (set difference against the last accepted emission) required for
	// a subsequent interim to be accepted.
	MinTokenDiff int

	// MinConfidence suppresses hypotheses below this confidence
	// regardless of timing or content.
	MinConfidence float64

	// VADTailSilenceMs is the trailing silence duration that triggers
	// finalization.
	VADTailSilenceMs int64

	// MinTokensForPunctuationFinal is the token count floor before a
	// trailing punctuation mark may trigger finalization.
	MinTokensForPunctuationFinal int

	// PunctuationBoundaryChars is the set of characters recognized as
	// sentence-ending boundaries.
	PunctuationBoundaryChars string
}

// DefaultConfig returns thresholds tuned for browser dictation.
func DefaultConfig() Config {
	return Config{
		InterimThrottleMs:            400,
		MinTokenDiff:                 5,
		MinConfidence:                0.5,
		VADTailSilenceMs:             800,
		MinTokensForPunctuationFinal: 4,
		PunctuationBoundaryChars:     ".!?",
	}
}

// Validate rejects out-of-range thresholds. Invalid configuration fails
// fast at construction instead of being silently clamped.
func (c Config) Validate() error {
	if c.InterimThrottleMs < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeThrottle, c.InterimThrottleMs)
	}
	if c.MinTokenDiff < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeTokenDiff, c.MinTokenDiff)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: got %v", ErrConfidenceRange, c.MinConfidence)
	}
	if c.VADTailSilenceMs <= 0 {
		return fmt.Errorf("%w: got %d", ErrVADTailNotPositive, c.VADTailSilenceMs)
	}
	if c.MinTokensForPunctuationFinal < 1 {
		return fmt.Errorf("%w: got %d", ErrPunctuationTokens, c.MinTokensForPunctuationFinal)
	}
	if c.PunctuationBoundaryChars == "" {
		return ErrNoPunctuationChars
	}
	return nil
}
