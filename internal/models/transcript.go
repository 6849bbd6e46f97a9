// Package models defines the data structures for transcript events.
package models

// TranscriptInterim represents an accepted interim transcript pushed to
// the client while an utterance is still in progress.
type TranscriptInterim struct {
	EventType    string  `json:"eventType"`
	SessionID    string  `json:"sessionId"`
	SegmentID    string  `json:"segmentId"`
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
	AcceptedAtMs int64   `json:"acceptedAtMs"`
}

// TranscriptFinal represents a committed transcript segment together
// with the endpointing reason that closed it.
type TranscriptFinal struct {
	EventType  string  `json:"eventType"`
	SessionID  string  `json:"sessionId"`
	SegmentID  string  `json:"segmentId"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Timestamp  int64   `json:"timestamp"`
}

// Event type identifiers for published transcript events.
const (
	EventTypeInterim = "session.transcript.interim"
	EventTypeFinal   = "session.transcript.final"
)
