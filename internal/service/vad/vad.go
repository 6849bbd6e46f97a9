// Package vad provides energy-based voice activity detection and
// trailing-silence measurement for PCM16 audio frames.
package vad

import (
	"encoding/binary"
	"math"
)

// Config holds configuration for the silence tracker.
type Config struct {
	// EnergyThreshold is the RMS energy below which a frame counts as
	// silence.
	EnergyThreshold float64

	// FrameDurationMs is the duration one audio frame represents.
	FrameDurationMs int64
}

// DefaultConfig returns a configuration for 20ms frames.
func DefaultConfig() Config {
	return Config{
		EnergyThreshold: 500.0,
		FrameDurationMs: 20,
	}
}

// Tracker accumulates consecutive silent frames into a trailing-silence
// duration. One tracker per session; not safe for concurrent use, which
// matches the one-stream-per-session discipline upstream.
type Tracker struct {
	cfg               Config
	trailingSilenceMs int64
	speaking          bool
}

// NewTracker creates a silence tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// ProcessFrame classifies one frame and returns the updated trailing
// silence duration in milliseconds. Any speech frame resets the tail
// to zero.
func (t *Tracker) ProcessFrame(samples []int16) int64 {
	if CalculateRMS(samples) > t.cfg.EnergyThreshold {
		t.speaking = true
		t.trailingSilenceMs = 0
	} else {
		t.trailingSilenceMs += t.cfg.FrameDurationMs
	}
	return t.trailingSilenceMs
}

// TrailingSilenceMs returns the current trailing silence duration.
func (t *Tracker) TrailingSilenceMs() int64 {
	return t.trailingSilenceMs
}

// HasSpoken returns true once any speech frame was observed.
func (t *Tracker) HasSpoken() bool {
	return t.speaking
}

// Reset clears the tracker state, e.g. after a segment finalizes.
func (t *Tracker) Reset() {
	t.trailingSilenceMs = 0
	t.speaking = false
}

// CalculateRMS returns the root-mean-square energy of the samples.
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// DecodePCM16 converts little-endian PCM16 bytes into samples. A
// trailing odd byte is ignored.
func DecodePCM16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}
