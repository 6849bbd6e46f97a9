// Package throttle implements interim-transcript rate limiting and
// utterance endpointing for live transcription sessions.
//
// A Throttler decides, per session, (a) when a partial recognition
// hypothesis may reach the client (confidence gate, throttle window,
// token-delta gate) and (b) when the hypothesis stream should be
// finalized into a committed segment (explicit stop, trailing silence,
// punctuation boundary). Decisions are synchronous, in-memory, and
// perform no I/O.
package throttle

import "sync"

// InterimState tracks the last accepted interim emission for a session.
type InterimState struct {
	// LastEmitTimeMs is the wall-clock time of the last accepted interim.
	// Zero until the first emission. Monotonically non-decreasing.
	LastEmitTimeMs int64

	// LastEmittedText is the text of the last accepted interim.
	LastEmittedText string
}

// session pairs interim state with its metrics. 1:1 lifecycle.
type session struct {
	state   InterimState
	metrics SessionMetrics
}

// Throttler owns all per-session throttling and endpointing state.
//
// The session map supports concurrent access across sessions; callers
// must serialize calls for a single session (the upstream recognizer
// produces one hypothesis at a time per session). The mutex is held for
// the duration of each individual operation, never across operations,
// so teardown may safely race with late-arriving hypotheses.
type Throttler struct {
	mu       sync.Mutex
	cfg      Config
	sink     Sink
	sessions map[string]*session
}

// New constructs a Throttler. Invalid configuration is rejected here
// rather than clamped. A nil sink disables teardown snapshots.
func New(cfg Config, sink Sink) (*Throttler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Throttler{
		cfg:      cfg,
		sink:     sink,
		sessions: make(map[string]*session),
	}, nil
}

// Config returns the thresholds the throttler was constructed with.
func (t *Throttler) Config() Config {
	return t.cfg
}

// EnsureSession creates zeroed state for sessionID if none exists.
// Never fails; existing sessions are left untouched.
func (t *Throttler) EnsureSession(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureLocked(sessionID)
}

func (t *Throttler) ensureLocked(sessionID string) *session {
	s, ok := t.sessions[sessionID]
	if !ok {
		s = &session{}
		t.sessions[sessionID] = s
	}
	return s
}

// ShouldEmitInterim decides whether a partial hypothesis may be emitted
// to the client. Rules are evaluated in fixed order; the first match
// decides:
//
//  1. confidence below the floor: suppress, count as low-confidence
//  2. throttle window not yet elapsed: suppress, no counter
//  3. too few new tokens versus the last emission: suppress, dedupe hit
//  4. otherwise accept and record the emission
//
// Confidence gating runs first so low-quality partials never consume
// the throttle window. A pure timing reject mutates nothing. nowMs is
// supplied by the caller, which keeps decisions deterministic.
//
// Unknown sessions are created lazily with zeroed state, so the first
// hypothesis for any session passes the timing and content gates
// trivially and is accepted unless its confidence is too low.
func (t *Throttler) ShouldEmitInterim(sessionID, candidateText string, confidence float64, nowMs int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.ensureLocked(sessionID)

	if confidence < t.cfg.MinConfidence {
		s.metrics.LowConfidenceSuppressed++
		return false
	}

	firstEmit := s.metrics.InterimEvents == 0
	var elapsedMs int64
	if !firstEmit {
		elapsedMs = nowMs - s.state.LastEmitTimeMs
		if elapsedMs < t.cfg.InterimThrottleMs {
			return false
		}
	}

	if newTokenCount(candidateText, s.state.LastEmittedText) < t.cfg.MinTokenDiff {
		s.metrics.DedupeHits++
		return false
	}

	if !firstEmit {
		s.metrics.InterimIntervalsMs = append(s.metrics.InterimIntervalsMs, float64(elapsedMs))
	}
	s.state.LastEmitTimeMs = nowMs
	s.state.LastEmittedText = candidateText
	s.metrics.InterimEvents++
	return true
}

// ShouldFinalize decides whether the current hypothesis stream should be
// committed into a final segment, and why. Priority order is fixed:
// explicit user intent beats silence beats punctuation. Silence outranks
// punctuation because punctuation can appear mid-utterance ("Mr. Smith")
// whereas sustained silence reliably marks an utterance boundary.
//
// An unknown session yields (false, ReasonNoSession) rather than an
// error; finalize calls are expected to race with teardown.
func (t *Throttler) ShouldFinalize(sessionID, currentText string, vadSilenceDurationMs int64, isExplicitFinal bool) (bool, FinalizeReason) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[sessionID]
	if !ok {
		return false, ReasonNoSession
	}

	if isExplicitFinal {
		s.metrics.ExplicitFinals++
		s.metrics.FinalEvents++
		return true, ReasonExplicit
	}

	if vadSilenceDurationMs >= t.cfg.VADTailSilenceMs {
		s.metrics.VADTailFinals++
		s.metrics.FinalEvents++
		return true, ReasonVADTail
	}

	if endsOnBoundary(currentText, t.cfg.PunctuationBoundaryChars) &&
		tokenCount(currentText) >= t.cfg.MinTokensForPunctuationFinal {
		s.metrics.PunctuationFinals++
		s.metrics.FinalEvents++
		return true, ReasonPunctuation
	}

	return false, ReasonNoTrigger
}

// Snapshot returns a read-only copy of the session's metrics, or false
// if the session is unknown.
func (t *Throttler) Snapshot(sessionID string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[sessionID]
	if !ok {
		return Snapshot{}, false
	}
	return s.metrics.snapshot(sessionID), true
}

// EndSession flushes a final metrics snapshot to the sink and removes
// all state for sessionID. Idempotent; unknown sessions are a no-op
// since teardown may race with session creation.
func (t *Throttler) EndSession(sessionID string) {
	t.mu.Lock()
	s, ok := t.sessions[sessionID]
	if !ok {
		t.mu.Unlock()
		return
	}
	snap := s.metrics.snapshot(sessionID)
	delete(t.sessions, sessionID)
	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		sink.OnSessionEnd(snap)
	}
}

// ActiveSessions returns the number of sessions currently tracked.
func (t *Throttler) ActiveSessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
