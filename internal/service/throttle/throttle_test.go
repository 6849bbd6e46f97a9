package throttle

import (
	"sync"
	"testing"
)

func testConfig() Config {
	return Config{
		InterimThrottleMs:            400,
		MinTokenDiff:                 5,
		MinConfidence:                0.5,
		VADTailSilenceMs:             800,
		MinTokensForPunctuationFinal: 4,
		PunctuationBoundaryChars:     ".!?",
	}
}

func newTestThrottler(t *testing.T) *Throttler {
	t.Helper()
	th, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error constructing throttler: %v", err)
	}
	return th
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative throttle", func(c *Config) { c.InterimThrottleMs = -1 }},
		{"negative token diff", func(c *Config) { c.MinTokenDiff = -1 }},
		{"confidence below range", func(c *Config) { c.MinConfidence = -0.1 }},
		{"confidence above range", func(c *Config) { c.MinConfidence = 1.1 }},
		{"zero vad tail", func(c *Config) { c.VADTailSilenceMs = 0 }},
		{"negative vad tail", func(c *Config) { c.VADTailSilenceMs = -800 }},
		{"zero punctuation tokens", func(c *Config) { c.MinTokensForPunctuationFinal = 0 }},
		{"no boundary chars", func(c *Config) { c.PunctuationBoundaryChars = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg, nil); err == nil {
				t.Error("expected construction to fail for invalid config")
			}
		})
	}
}

func TestShouldEmitInterim_FirstHypothesisAccepted(t *testing.T) {
	th := newTestThrottler(t)

	// First hypothesis at t=0 passes the timing and content gates trivially.
	if !th.ShouldEmitInterim("s1", "hello", 0.9, 0) {
		t.Error("expected first hypothesis to be accepted")
	}

	snap, ok := th.Snapshot("s1")
	if !ok {
		t.Fatal("expected session to exist")
	}
	if snap.InterimEvents != 1 {
		t.Errorf("expected 1 interim event, got %d", snap.InterimEvents)
	}
}

func TestShouldEmitInterim_ThrottleFloor(t *testing.T) {
	th := newTestThrottler(t)

	if !th.ShouldEmitInterim("s1", "hello", 0.9, 0) {
		t.Fatal("first hypothesis should be accepted")
	}

	// 100ms later: inside the throttle window. Pure timing reject, no
	// dedupe increment even though the token diff is also too low.
	if th.ShouldEmitInterim("s1", "hello there", 0.9, 100) {
		t.Error("expected timing reject inside throttle window")
	}

	snap, _ := th.Snapshot("s1")
	if snap.DedupeHits != 0 {
		t.Errorf("timing reject must not count as dedupe hit, got %d", snap.DedupeHits)
	}

	// 500ms: window elapsed, 5 new tokens.
	if !th.ShouldEmitInterim("s1", "hello there how are you doing", 0.9, 500) {
		t.Error("expected acceptance after throttle window with enough new tokens")
	}
}

func TestShouldEmitInterim_TokenDiffFloor(t *testing.T) {
	th := newTestThrottler(t)

	th.ShouldEmitInterim("s1", "hello there how are you", 0.9, 0)

	// Window elapsed but only one new token.
	if th.ShouldEmitInterim("s1", "hello there how are you today", 0.9, 1000) {
		t.Error("expected dedupe reject for too few new tokens")
	}

	snap, _ := th.Snapshot("s1")
	if snap.DedupeHits != 1 {
		t.Errorf("expected 1 dedupe hit, got %d", snap.DedupeHits)
	}
	if snap.InterimEvents != 1 {
		t.Errorf("expected interim count unchanged, got %d", snap.InterimEvents)
	}
}

func TestShouldEmitInterim_TokenDiffIsSetDifference(t *testing.T) {
	th := newTestThrottler(t)

	th.ShouldEmitInterim("s1", "the quick brown fox jumps", 0.9, 0)

	// Repetition introduces no new tokens: set difference is empty.
	if th.ShouldEmitInterim("s1", "the the the the the the", 0.9, 1000) {
		t.Error("expected repeated tokens to count as zero new tokens")
	}

	// Reordering introduces no new tokens either.
	if th.ShouldEmitInterim("s1", "jumps fox brown quick the", 0.9, 2000) {
		t.Error("expected reordered tokens to count as zero new tokens")
	}
}

func TestShouldEmitInterim_ConfidenceGatePrecedence(t *testing.T) {
	th := newTestThrottler(t)

	// Low confidence is rejected and counted even for a brand-new session
	// where timing and content gates would pass.
	if th.ShouldEmitInterim("s1", "ok", 0.3, 0) {
		t.Error("expected low-confidence hypothesis to be suppressed")
	}

	snap, ok := th.Snapshot("s1")
	if !ok {
		t.Fatal("expected session to be lazily created")
	}
	if snap.LowConfidenceSuppressed != 1 {
		t.Errorf("expected 1 low-confidence suppression, got %d", snap.LowConfidenceSuppressed)
	}
	if snap.InterimEvents != 0 {
		t.Errorf("expected no interim events, got %d", snap.InterimEvents)
	}

	// The suppressed hypothesis must not consume the throttle window:
	// an immediate follow-up with good confidence is still first-ever.
	if !th.ShouldEmitInterim("s1", "ok then", 0.9, 10) {
		t.Error("expected follow-up to be accepted as first emission")
	}
}

func TestShouldEmitInterim_LowConfidenceAlwaysCounted(t *testing.T) {
	th := newTestThrottler(t)

	th.ShouldEmitInterim("s1", "hello there how are you", 0.9, 0)

	// Low confidence inside the throttle window still increments the
	// suppression counter; confidence is checked before timing.
	th.ShouldEmitInterim("s1", "hello there how are you again", 0.2, 100)

	snap, _ := th.Snapshot("s1")
	if snap.LowConfidenceSuppressed != 1 {
		t.Errorf("expected 1 low-confidence suppression, got %d", snap.LowConfidenceSuppressed)
	}
}

func TestShouldEmitInterim_IntervalTracking(t *testing.T) {
	th := newTestThrottler(t)

	// Three acceptances at t=0, 500, 1000 yield intervals [500, 500].
	th.ShouldEmitInterim("s1", "one two three four five", 0.9, 0)
	th.ShouldEmitInterim("s1", "six seven eight nine ten", 0.9, 500)
	th.ShouldEmitInterim("s1", "aa bb cc dd ee", 0.9, 1000)

	snap, _ := th.Snapshot("s1")
	if snap.InterimEvents != 3 {
		t.Fatalf("expected 3 interim events, got %d", snap.InterimEvents)
	}
	if snap.AvgInterimIntervalMs != 500 {
		t.Errorf("expected avg interval 500ms, got %v", snap.AvgInterimIntervalMs)
	}
}

func TestShouldEmitInterim_EmptyCandidateText(t *testing.T) {
	th := newTestThrottler(t)

	// Empty text has zero tokens: below the token-diff floor.
	if th.ShouldEmitInterim("s1", "", 0.9, 0) {
		t.Error("expected empty text to be rejected by the token-diff gate")
	}

	snap, _ := th.Snapshot("s1")
	if snap.DedupeHits != 1 {
		t.Errorf("expected empty text to count as dedupe hit, got %d", snap.DedupeHits)
	}
}

func TestMetricsMonotonicity(t *testing.T) {
	th := newTestThrottler(t)

	var prev Snapshot
	inputs := []struct {
		text string
		conf float64
		now  int64
	}{
		{"hello there how are you", 0.9, 0},
		{"hello", 0.2, 100},
		{"hello there how are you", 0.9, 600},
		{"completely different words entirely spoken now", 0.9, 1200},
		{"completely different words entirely spoken now", 0.9, 1300},
	}

	for i, in := range inputs {
		th.ShouldEmitInterim("s1", in.text, in.conf, in.now)
		snap, _ := th.Snapshot("s1")
		if snap.InterimEvents < prev.InterimEvents ||
			snap.DedupeHits < prev.DedupeHits ||
			snap.LowConfidenceSuppressed < prev.LowConfidenceSuppressed ||
			snap.FinalEvents < prev.FinalEvents {
			t.Errorf("step %d: counters regressed: %+v -> %+v", i, prev, snap)
		}
		prev = snap
	}
}

func TestEnsureSession_Idempotent(t *testing.T) {
	th := newTestThrottler(t)

	th.EnsureSession("s1")
	th.ShouldEmitInterim("s1", "one two three four five", 0.9, 0)

	// A second ensure must not reset existing state.
	th.EnsureSession("s1")

	snap, _ := th.Snapshot("s1")
	if snap.InterimEvents != 1 {
		t.Errorf("expected existing session untouched, got %d interim events", snap.InterimEvents)
	}
}

type captureSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (c *captureSink) OnSessionEnd(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps = append(c.snaps, snap)
}

func TestEndSession_FlushesSnapshot(t *testing.T) {
	sink := &captureSink{}
	th, err := New(testConfig(), sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	th.ShouldEmitInterim("s1", "one two three four five", 0.9, 0)
	th.ShouldFinalize("s1", "one two three four five", 900, false)
	th.EndSession("s1")

	if len(sink.snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(sink.snaps))
	}
	snap := sink.snaps[0]
	if snap.SessionID != "s1" {
		t.Errorf("expected sessionId s1, got %s", snap.SessionID)
	}
	if snap.InterimEvents != 1 || snap.FinalEvents != 1 || snap.VADTailFinals != 1 {
		t.Errorf("unexpected snapshot contents: %+v", snap)
	}
	if th.ActiveSessions() != 0 {
		t.Errorf("expected no active sessions after end, got %d", th.ActiveSessions())
	}
}

func TestEndSession_IdempotentTeardown(t *testing.T) {
	sink := &captureSink{}
	th, err := New(testConfig(), sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	th.ShouldEmitInterim("s1", "one two three four five", 0.9, 0)
	th.ShouldEmitInterim("s2", "six seven eight nine ten", 0.9, 0)

	// Double teardown and teardown of a never-seen session are no-ops.
	th.EndSession("s1")
	th.EndSession("s1")
	th.EndSession("never-seen")

	if len(sink.snaps) != 1 {
		t.Errorf("expected exactly 1 snapshot, got %d", len(sink.snaps))
	}

	// Other sessions are unaffected.
	snap, ok := th.Snapshot("s2")
	if !ok {
		t.Fatal("expected s2 to survive s1 teardown")
	}
	if snap.InterimEvents != 1 {
		t.Errorf("expected s2 state intact, got %d interim events", snap.InterimEvents)
	}
}

func TestThrottler_SessionsAreIndependent(t *testing.T) {
	th := newTestThrottler(t)

	th.ShouldEmitInterim("s1", "one two three four five", 0.9, 0)

	// s2's first hypothesis is unaffected by s1's recent emission.
	if !th.ShouldEmitInterim("s2", "one two three four five", 0.9, 1) {
		t.Error("expected independent throttle state per session")
	}
}

func TestThrottler_ConcurrentSessions(t *testing.T) {
	th := newTestThrottler(t)

	var wg sync.WaitGroup
	sessions := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range sessions {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := int64(0); i < 50; i++ {
				th.ShouldEmitInterim(id, "alpha beta gamma delta epsilon", 0.9, i*500)
				th.ShouldFinalize(id, "alpha beta gamma delta epsilon.", 0, false)
			}
			th.EndSession(id)
		}(id)
	}
	wg.Wait()

	if th.ActiveSessions() != 0 {
		t.Errorf("expected all sessions torn down, got %d", th.ActiveSessions())
	}
}

func TestSessionMetrics_AvgInterimIntervalMs(t *testing.T) {
	tests := []struct {
		name      string
		intervals []float64
		want      float64
	}{
		{"empty", nil, 0},
		{"single", []float64{300}, 300},
		{"mean", []float64{500, 500}, 500},
		{"mixed", []float64{400, 600, 800}, 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &SessionMetrics{InterimIntervalsMs: tt.intervals}
			if got := m.AvgInterimIntervalMs(); got != tt.want {
				t.Errorf("AvgInterimIntervalMs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewTokenCount(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		previous  string
		want      int
	}{
		{"against empty", "hello there", "", 2},
		{"identical", "hello there", "hello there", 0},
		{"one new", "hello there friend", "hello there", 1},
		{"duplicates collapse", "the the the", "the", 0},
		{"order insensitive", "b a", "a b", 0},
		{"both empty", "", "", 0},
		{"extra whitespace", "  hello   there  ", "hello", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newTokenCount(tt.candidate, tt.previous); got != tt.want {
				t.Errorf("newTokenCount(%q, %q) = %d, want %d", tt.candidate, tt.previous, got, tt.want)
			}
		})
	}
}
