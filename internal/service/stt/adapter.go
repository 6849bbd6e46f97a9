// Package stt defines the interface for Speech-to-Text adapters.
package stt

import "context"

// Callback receives recognition hypotheses from the STT provider.
type Callback interface {
	// OnPartial is called once per interim hypothesis. Confidence is the
	// provider's estimate for the hypothesis, in [0,1].
	OnPartial(text string, confidence float64)

	// OnFinal is called when the provider itself marks a result final.
	OnFinal(text string, confidence float64)

	// OnError is called when an error occurs during transcription.
	OnError(err error)
}

// Adapter defines the interface for STT providers.
type Adapter interface {
	// Start begins a streaming transcription session.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends audio bytes to the STT provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the session and releases resources.
	Close() error
}
