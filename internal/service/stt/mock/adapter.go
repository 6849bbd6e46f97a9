// Package mock provides a mock STT adapter for testing without cloud
// credentials. It simulates realistic speech-to-text behavior with
// progressive partial hypotheses, per-partial confidence, and exactly
// one provider-final per utterance.
package mock

import (
	"context"
	"sync"
	"time"

	"mina/internal/service/stt"
)

// SimulatedUtterance represents a mock utterance with progressive
// hypotheses.
type SimulatedUtterance struct {
	Partials    []string  // Progressive partial hypotheses
	Confidences []float64 // Confidence per partial; padded with the final confidence
	Final       string    // Final transcript text
	Confidence  float64   // Confidence for the final
}

// DefaultUtterances provides sample utterances for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Partials:   []string{"I want", "I want to cancel my", "I want to cancel my subscription please"},
		Final:      "I want to cancel my subscription please.",
		Confidence: 0.94,
	},
	{
		Partials:    []string{"Yes", "Yes please go ahead and", "Yes please go ahead and confirm that"},
		Confidences: []float64{0.42, 0.88, 0.93},
		Final:       "Yes please go ahead and confirm that.",
		Confidence:  0.97,
	},
	{
		Partials:   []string{"Can you", "Can you help me with", "Can you help me with my account today"},
		Final:      "Can you help me with my account today?",
		Confidence: 0.91,
	},
}

// Adapter implements stt.Adapter with simulated responses. Each audio
// frame advances the current utterance by one partial; once partials
// are exhausted the final is delivered, mimicking provider-side
// endpointing.
type Adapter struct {
	mu           sync.Mutex
	cb           stt.Callback
	delay        time.Duration
	utterance    SimulatedUtterance
	partialIndex int
	finalSent    bool
	closed       bool
}

var (
	utteranceCounter int
	counterMu        sync.Mutex
)

// New creates a new mock STT adapter cycling through DefaultUtterances.
func New() *Adapter {
	counterMu.Lock()
	idx := utteranceCounter % len(DefaultUtterances)
	utteranceCounter++
	counterMu.Unlock()

	return &Adapter{
		utterance: DefaultUtterances[idx],
		delay:     50 * time.Millisecond,
	}
}

// NewWithUtterance creates an adapter replaying a fixed utterance with
// no simulated processing delay. Used by tests that need determinism.
func NewWithUtterance(u SimulatedUtterance) *Adapter {
	return &Adapter{utterance: u}
}

// Start begins a mock transcription session.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
	return nil
}

// SendAudio simulates receiving audio and triggers progressive partial
// hypotheses, then the final once partials are exhausted.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil {
		return nil
	}

	if a.partialIndex < len(a.utterance.Partials) {
		text := a.utterance.Partials[a.partialIndex]
		conf := a.utterance.Confidence
		if a.partialIndex < len(a.utterance.Confidences) {
			conf = a.utterance.Confidences[a.partialIndex]
		}
		a.partialIndex++

		a.deliver(func(cb stt.Callback) { cb.OnPartial(text, conf) })
		return nil
	}

	if !a.finalSent {
		a.finalSent = true
		utt := a.utterance
		a.deliver(func(cb stt.Callback) { cb.OnFinal(utt.Final, utt.Confidence) })
	}

	return nil
}

// deliver invokes the callback, asynchronously when a delay is
// configured, synchronously otherwise so tests stay deterministic.
func (a *Adapter) deliver(fn func(stt.Callback)) {
	cb := a.cb
	if a.delay == 0 {
		fn(cb)
		return
	}
	go func() {
		time.Sleep(a.delay)
		a.mu.Lock()
		closed := a.closed
		a.mu.Unlock()
		if !closed {
			fn(cb)
		}
	}()
}

// Close ends the mock session. If the final was never reached (stream
// ended early), it is delivered now.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	if !a.finalSent && a.cb != nil {
		a.finalSent = true
		a.cb.OnFinal(a.utterance.Final, a.utterance.Confidence)
	}

	return nil
}
