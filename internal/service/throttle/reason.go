package throttle

import "fmt"

// FinalizeReason identifies which endpointing rule committed a segment.
type FinalizeReason int

const (
	// ReasonNoTrigger - No endpointing rule matched; segment stays open.
	ReasonNoTrigger FinalizeReason = iota
	// ReasonExplicit - Caller signalled a deliberate stop (user released record).
	ReasonExplicit
	// ReasonVADTail - Trailing silence exceeded the configured tail duration.
	ReasonVADTail
	// ReasonPunctuation - Text ends on a sentence boundary with enough tokens.
	ReasonPunctuation
	// ReasonNoSession - Session is unknown; finalize raced with teardown.
	ReasonNoSession
)

// String returns the wire representation of the reason.
func (r FinalizeReason) String() string {
	switch r {
	case ReasonNoTrigger:
		return "no_trigger"
	case ReasonExplicit:
		return "explicit"
	case ReasonVADTail:
		return "vad_tail"
	case ReasonPunctuation:
		return "punctuation"
	case ReasonNoSession:
		return "no_session"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", r)
	}
}

// Finalizes returns true if the reason commits the current segment.
func (r FinalizeReason) Finalizes() bool {
	return r == ReasonExplicit || r == ReasonVADTail || r == ReasonPunctuation
}
