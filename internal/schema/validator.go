// Package schema validates outbound transcript events before they leave
// the service.
package schema

import (
	"errors"
	"fmt"

	"mina/internal/models"
)

// Errors for malformed outbound events.
var (
	ErrMissingEventType = errors.New("event type is required")
	ErrMissingSessionID = errors.New("session id is required")
	ErrMissingSegmentID = errors.New("segment id is required")
	ErrConfidenceRange  = errors.New("confidence must be within [0,1]")
	ErrUnknownReason    = errors.New("unknown finalize reason")
)

var knownReasons = map[string]struct{}{
	"explicit":    {},
	"vad_tail":    {},
	"punctuation": {},
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateInterim checks an interim transcript event.
func (v *Validator) ValidateInterim(ev models.TranscriptInterim) error {
	if ev.EventType == "" {
		return ErrMissingEventType
	}
	if ev.SessionID == "" {
		return ErrMissingSessionID
	}
	if ev.SegmentID == "" {
		return ErrMissingSegmentID
	}
	if ev.Confidence < 0 || ev.Confidence > 1 {
		return fmt.Errorf("%w: got %v", ErrConfidenceRange, ev.Confidence)
	}
	return nil
}

// ValidateFinal checks a final transcript event, including that its
// reason is an actual endpointing trigger.
func (v *Validator) ValidateFinal(ev models.TranscriptFinal) error {
	if ev.EventType == "" {
		return ErrMissingEventType
	}
	if ev.SessionID == "" {
		return ErrMissingSessionID
	}
	if ev.SegmentID == "" {
		return ErrMissingSegmentID
	}
	if ev.Confidence < 0 || ev.Confidence > 1 {
		return fmt.Errorf("%w: got %v", ErrConfidenceRange, ev.Confidence)
	}
	if _, ok := knownReasons[ev.Reason]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownReason, ev.Reason)
	}
	return nil
}
