package observability

import (
	"github.com/rs/zerolog"

	"mina/internal/observability/logging"
	"mina/internal/service/throttle"
)

// SnapshotSink receives final session-metrics snapshots from the
// throttling core and turns them into structured log records. Snapshots
// are copies, so nothing here can reach back into core state.
type SnapshotSink struct {
	logger zerolog.Logger
}

// NewSnapshotSink creates a sink logging under the given component tag.
func NewSnapshotSink() *SnapshotSink {
	return &SnapshotSink{
		logger: logging.WithComponent("session-metrics"),
	}
}

// OnSessionEnd implements throttle.Sink.
func (s *SnapshotSink) OnSessionEnd(snap throttle.Snapshot) {
	s.logger.Info().
		Str("sessionId", snap.SessionID).
		Int64("interimEvents", snap.InterimEvents).
		Int64("finalEvents", snap.FinalEvents).
		Float64("avgInterimIntervalMs", snap.AvgInterimIntervalMs).
		Int64("dedupeHits", snap.DedupeHits).
		Int64("lowConfidenceSuppressed", snap.LowConfidenceSuppressed).
		Int64("punctuationFinals", snap.PunctuationFinals).
		Int64("vadTailFinals", snap.VADTailFinals).
		Int64("explicitFinals", snap.ExplicitFinals).
		Msg("Session ended")
}
