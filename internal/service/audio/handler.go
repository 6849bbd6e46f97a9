// Package audio provides the per-session coordinator that wires the
// STT adapter, the silence tracker, and the throttling core to the
// client transport and the event publisher.
package audio

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mina/internal/events"
	"mina/internal/models"
	"mina/internal/observability/logging"
	"mina/internal/observability/metrics"
	"mina/internal/schema"
	"mina/internal/service/segment"
	"mina/internal/service/stt"
	"mina/internal/service/throttle"
	"mina/internal/service/vad"
)

// Emitter delivers transcript events to the client transport. A failed
// delivery never affects session state; the throttling decisions stay
// valid regardless of downstream outcome.
type Emitter interface {
	EmitInterim(ev models.TranscriptInterim) error
	EmitFinal(ev models.TranscriptFinal) error
}

// SessionLimits defines safety guardrails for a recording session.
type SessionLimits struct {
	MaxAudioBytes int64 // Max audio accepted per session
	MaxInterims   int   // Max accepted interims per session
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() SessionLimits {
	return SessionLimits{
		MaxAudioBytes: 5 * 1024 * 1024,
		MaxInterims:   500,
	}
}

// Handler manages one recording session. It implements stt.Callback to
// receive hypotheses, measures trailing silence per audio frame, asks
// the throttling core for emit/finalize decisions, and forwards the
// accepted events.
type Handler struct {
	adapter    stt.Adapter
	throttler  *throttle.Throttler
	publisher  *events.Publisher
	emitter    Emitter
	validator  *schema.Validator
	segmentGen *segment.Generator
	tracker    *vad.Tracker
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	limits     SessionLimits

	sessionID string
	lifecycle *segment.Lifecycle

	mu           sync.Mutex
	pendingText  string
	pendingConf  float64
	audioBytes   int64
	interimCount int
	lastEmitMs   int64
	prevLowConf  int64
	prevDedupe   int64
	started      time.Time
	closed       bool

	nowMs func() int64
}

// NewHandler creates a handler for one session.
func NewHandler(
	adapter stt.Adapter,
	throttler *throttle.Throttler,
	publisher *events.Publisher,
	emitter Emitter,
	segmentGen *segment.Generator,
	tracker *vad.Tracker,
	sessionID string,
	limits SessionLimits,
) *Handler {
	return &Handler{
		adapter:    adapter,
		throttler:  throttler,
		publisher:  publisher,
		emitter:    emitter,
		validator:  schema.New(),
		segmentGen: segmentGen,
		tracker:    tracker,
		metrics:    metrics.DefaultMetrics,
		logger:     logging.WithSession(sessionID),
		limits:     limits,
		sessionID:  sessionID,
		lifecycle:  segment.NewLifecycle(segmentGen.Next(sessionID)),
		started:    time.Now(),
		nowMs:      func() int64 { return time.Now().UnixMilli() },
	}
}

// Start registers the session with the throttling core and begins the
// STT stream.
func (h *Handler) Start(ctx context.Context) error {
	h.throttler.EnsureSession(h.sessionID)
	h.metrics.RecordSessionStart()
	h.logger.Info().Msg("Session started")
	return h.adapter.Start(ctx, h)
}

// SessionID returns the session this handler owns.
func (h *Handler) SessionID() string {
	return h.sessionID
}

// SendAudio forwards one audio frame to the STT adapter and feeds the
// silence tracker. A frame that pushes the trailing silence past the
// configured tail finalizes the pending segment.
func (h *Handler) SendAudio(ctx context.Context, audio []byte) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.audioBytes += int64(len(audio))
	overBudget := h.limits.MaxAudioBytes > 0 && h.audioBytes > h.limits.MaxAudioBytes
	h.mu.Unlock()

	h.metrics.RecordAudioReceived(len(audio))

	if overBudget {
		h.metrics.RecordLimitExceeded("audio_bytes")
		h.logger.Warn().Int64("maxAudioBytes", h.limits.MaxAudioBytes).Msg("Session audio budget exceeded, dropping segment")
		h.lifecycle.Drop()
		return nil
	}

	silenceMs := h.tracker.ProcessFrame(vad.DecodePCM16(audio))
	h.checkEndpoint(silenceMs, false)

	return h.adapter.SendAudio(ctx, audio)
}

// Stop handles an explicit client stop: the pending text is finalized
// unconditionally, then the session is torn down.
func (h *Handler) Stop() {
	h.checkEndpoint(h.tracker.TrailingSilenceMs(), true)
	h.Close()
}

// Close tears the session down: STT stream, throttle state, metrics.
// Idempotent.
func (h *Handler) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	started := h.started
	h.mu.Unlock()

	if err := h.adapter.Close(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to close STT adapter")
	}
	h.throttler.EndSession(h.sessionID)
	h.metrics.RecordSessionEnd(time.Since(started).Seconds())
	h.logger.Info().Msg("Session closed")
}

// --- stt.Callback implementation ---

// OnPartial runs each hypothesis through the interim gate and, when
// accepted, emits it to the client and the publisher. It then runs the
// endpointing check so a punctuation boundary can commit the segment.
func (h *Handler) OnPartial(text string, confidence float64) {
	now := h.nowMs()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.pendingText = text
	h.pendingConf = confidence
	overInterims := h.limits.MaxInterims > 0 && h.interimCount >= h.limits.MaxInterims
	h.mu.Unlock()

	if overInterims {
		h.metrics.RecordLimitExceeded("interims")
		h.lifecycle.Drop()
		return
	}

	if err := h.lifecycle.MarkInterim(); err != nil {
		h.logger.Debug().Err(err).Str("segmentId", h.lifecycle.SegmentID()).Msg("Interim ignored")
		return
	}

	if h.throttler.ShouldEmitInterim(h.sessionID, text, confidence, now) {
		h.emitInterim(text, confidence, now)
	} else {
		h.recordSuppression()
	}

	h.checkEndpoint(h.tracker.TrailingSilenceMs(), false)
}

// OnFinal records a provider-side final hypothesis. The provider does
// not get to finalize our segment directly; its text becomes the
// pending hypothesis and the endpointing rules decide as usual.
func (h *Handler) OnFinal(text string, confidence float64) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.pendingText = text
	h.pendingConf = confidence
	h.mu.Unlock()

	h.checkEndpoint(h.tracker.TrailingSilenceMs(), false)
}

// OnError drops the current segment without emitting a final.
// "Silence > bad data".
func (h *Handler) OnError(err error) {
	h.metrics.RecordSTTError("stt")
	dropped := h.lifecycle.Drop()
	h.logger.Error().Err(err).
		Str("segmentId", h.lifecycle.SegmentID()).
		Bool("dropped", dropped).
		Msg("STT error, segment dropped")
}

// checkEndpoint consults the endpointing rules for the pending text and
// finalizes the current segment when a trigger fires.
func (h *Handler) checkEndpoint(silenceMs int64, explicit bool) {
	h.mu.Lock()
	text := h.pendingText
	conf := h.pendingConf
	h.mu.Unlock()

	if text == "" || h.lifecycle.State() != segment.StateOpen {
		return
	}

	ok, reason := h.throttler.ShouldFinalize(h.sessionID, text, silenceMs, explicit)
	if !ok {
		return
	}
	h.finalizeSegment(text, conf, reason)
}

func (h *Handler) emitInterim(text string, confidence float64, now int64) {
	ev := models.TranscriptInterim{
		EventType:    models.EventTypeInterim,
		SessionID:    h.sessionID,
		SegmentID:    h.lifecycle.SegmentID(),
		Text:         text,
		Confidence:   confidence,
		AcceptedAtMs: now,
	}
	if err := h.validator.ValidateInterim(ev); err != nil {
		h.logger.Error().Err(err).Msg("Invalid interim event")
		return
	}

	h.metrics.RecordInterimEmitted()

	h.mu.Lock()
	h.interimCount++
	if h.lastEmitMs > 0 {
		h.metrics.RecordInterimInterval(float64(now-h.lastEmitMs) / 1000.0)
	}
	h.lastEmitMs = now
	h.mu.Unlock()

	if h.emitter != nil {
		if err := h.emitter.EmitInterim(ev); err != nil {
			h.logger.Error().Err(err).Str("segmentId", ev.SegmentID).Msg("Failed to emit interim")
		}
	}
	if err := h.publisher.PublishInterim(context.Background(), h.sessionID, ev); err != nil {
		h.logger.Error().Err(err).Str("segmentId", ev.SegmentID).Msg("Failed to publish interim")
	}
}

func (h *Handler) finalizeSegment(text string, confidence float64, reason throttle.FinalizeReason) {
	if err := h.lifecycle.Finalize(); err != nil {
		h.logger.Debug().Err(err).Str("segmentId", h.lifecycle.SegmentID()).Msg("Finalize ignored")
		return
	}

	ev := models.TranscriptFinal{
		EventType:  models.EventTypeFinal,
		SessionID:  h.sessionID,
		SegmentID:  h.lifecycle.SegmentID(),
		Text:       text,
		Confidence: confidence,
		Reason:     reason.String(),
		Timestamp:  h.nowMs(),
	}
	if err := h.validator.ValidateFinal(ev); err != nil {
		h.logger.Error().Err(err).Msg("Invalid final event")
		return
	}

	h.metrics.RecordFinalization(reason.String())

	if h.emitter != nil {
		if err := h.emitter.EmitFinal(ev); err != nil {
			h.logger.Error().Err(err).Str("segmentId", ev.SegmentID).Msg("Failed to emit final")
		}
	}
	if err := h.publisher.PublishFinal(context.Background(), h.sessionID, ev); err != nil {
		h.logger.Error().Err(err).Str("segmentId", ev.SegmentID).Msg("Failed to publish final")
	}

	h.logger.Info().
		Str("segmentId", ev.SegmentID).
		Str("reason", ev.Reason).
		Msg("Segment finalized")

	// Roll over to a fresh segment.
	h.mu.Lock()
	h.pendingText = ""
	h.pendingConf = 0
	h.mu.Unlock()
	h.tracker.Reset()
	h.lifecycle.Reset(h.segmentGen.Next(h.sessionID))
}

// recordSuppression attributes a rejected interim to its gate for the
// Prometheus counters. The core only reports acceptance, so the reason
// is recovered from the per-session counter deltas: a pure timing
// reject moves neither counter.
func (h *Handler) recordSuppression() {
	snap, ok := h.throttler.Snapshot(h.sessionID)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case snap.LowConfidenceSuppressed > h.prevLowConf:
		h.metrics.RecordInterimSuppressed(metrics.SuppressConfidence)
	case snap.DedupeHits > h.prevDedupe:
		h.metrics.RecordInterimSuppressed(metrics.SuppressDedupe)
	default:
		h.metrics.RecordInterimSuppressed(metrics.SuppressThrottle)
	}
	h.prevLowConf = snap.LowConfidenceSuppressed
	h.prevDedupe = snap.DedupeHits
}
