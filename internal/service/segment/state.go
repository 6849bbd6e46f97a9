package segment

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a transcript segment.
type State int

const (
	// StateOpen - Segment is active, interims may flow.
	StateOpen State = iota
	// StateFinalized - Segment was committed by an endpointing trigger.
	StateFinalized
	// StateDropped - Segment was abandoned due to error; no final emitted.
	// "Silence > bad data"
	StateDropped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateFinalized:
		return "FINALIZED"
	case StateDropped:
		return "DROPPED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true for FINALIZED and DROPPED.
func (s State) IsTerminal() bool {
	return s == StateFinalized || s == StateDropped
}

// Errors for invalid state transitions.
var (
	ErrSegmentFinalized = errors.New("segment already finalized")
	ErrSegmentDropped   = errors.New("segment was dropped")
)

// Lifecycle tracks the state machine for the current segment of a
// session. Thread-safe.
//
// State transitions:
//
//	OPEN ── Finalize() ──→ FINALIZED ── Reset() ──→ OPEN (new segment)
//	  │
//	  └── Drop() ──→ DROPPED (terminal until Reset)
//
// Interims are only valid while OPEN. Finalize commits the segment
// exactly once; the session then rolls over to a fresh segment via
// Reset.
type Lifecycle struct {
	mu        sync.RWMutex
	segmentID string
	state     State
}

// NewLifecycle creates a lifecycle in OPEN state.
func NewLifecycle(segmentID string) *Lifecycle {
	return &Lifecycle{
		segmentID: segmentID,
		state:     StateOpen,
	}
}

// SegmentID returns the current segment ID.
func (l *Lifecycle) SegmentID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.segmentID
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// MarkInterim validates that an interim may be attributed to the
// current segment.
func (l *Lifecycle) MarkInterim() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	switch l.state {
	case StateOpen:
		return nil
	case StateFinalized:
		return ErrSegmentFinalized
	case StateDropped:
		return ErrSegmentDropped
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Finalize transitions OPEN → FINALIZED. Returns an error if the
// segment was already committed or dropped.
func (l *Lifecycle) Finalize() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		l.state = StateFinalized
		return nil
	case StateFinalized:
		return ErrSegmentFinalized
	case StateDropped:
		return ErrSegmentDropped
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Drop abandons the current segment without emitting a final. Returns
// true if the segment was dropped, false if already terminal.
func (l *Lifecycle) Drop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateDropped
	return true
}

// Reset rolls the lifecycle over to a new OPEN segment.
func (l *Lifecycle) Reset(newSegmentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.segmentID = newSegmentID
	l.state = StateOpen
}
