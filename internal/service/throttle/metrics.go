package throttle

// SessionMetrics accumulates per-session counters for observability.
// All counters are monotonically non-decreasing within a session.
type SessionMetrics struct {
	InterimEvents           int64
	FinalEvents             int64
	DedupeHits              int64
	LowConfidenceSuppressed int64
	PunctuationFinals       int64
	VADTailFinals           int64
	ExplicitFinals          int64

	// InterimIntervalsMs records the durations between successive
	// accepted interim emissions. Append-only.
	InterimIntervalsMs []float64
}

// AvgInterimIntervalMs returns the mean interval between accepted
// interims, or 0 if fewer than two interims were accepted.
func (m *SessionMetrics) AvgInterimIntervalMs() float64 {
	if len(m.InterimIntervalsMs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.InterimIntervalsMs {
		sum += v
	}
	return sum / float64(len(m.InterimIntervalsMs))
}

// Snapshot is a read-only copy of a session's metrics, handed to the
// observability sink on teardown and on demand. Suitable for structured
// logging or direct JSON export.
type Snapshot struct {
	SessionID               string  `json:"sessionId"`
	InterimEvents           int64   `json:"interimEvents"`
	FinalEvents             int64   `json:"finalEvents"`
	AvgInterimIntervalMs    float64 `json:"avgInterimIntervalMs"`
	DedupeHits              int64   `json:"dedupeHits"`
	LowConfidenceSuppressed int64   `json:"lowConfidenceSuppressed"`
	PunctuationFinals       int64   `json:"punctuationFinals"`
	VADTailFinals           int64   `json:"vadTailFinals"`
	ExplicitFinals          int64   `json:"explicitFinals"`
}

// Sink receives a final metrics snapshot when a session is torn down.
// Implementations must not retain references into core state; snapshots
// are copies.
type Sink interface {
	OnSessionEnd(snap Snapshot)
}

func (m *SessionMetrics) snapshot(sessionID string) Snapshot {
	return Snapshot{
		SessionID:               sessionID,
		InterimEvents:           m.InterimEvents,
		FinalEvents:             m.FinalEvents,
		AvgInterimIntervalMs:    m.AvgInterimIntervalMs(),
		DedupeHits:              m.DedupeHits,
		LowConfidenceSuppressed: m.LowConfidenceSuppressed,
		PunctuationFinals:       m.PunctuationFinals,
		VADTailFinals:           m.VADTailFinals,
		ExplicitFinals:          m.ExplicitFinals,
	}
}
