package protocol

import "time"

// ReadRequest asks the engine to read a piece of captured text aloud.
type ReadRequest struct {
	SessionID   string `json:"session_id,omitempty"`
	Text        string `json:"text"`
	Voice       string `json:"voice,omitempty"`
	TargetWords int    `json:"target_words,omitempty"`
	ResumeWord  int    `json:"resume_word,omitempty"`
}

// CancelRequest aborts an in-flight reading session.
type CancelRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// AudioPacket carries one chunk's synthesized WAV payload.
type AudioPacket struct {
	SessionID  string `json:"session_id"`
	ChunkIndex int    `json:"chunk_index"`
	StartWord  int    `json:"start_word"`
	WordCount  int    `json:"word_count"`
	Audio      []byte `json:"audio"`
	Final      bool   `json:"final"`
}

// HighlightPacket reports the speakable-word ordinal being spoken so the
// reader surface can track the voice.
type HighlightPacket struct {
	SessionID string  `json:"session_id"`
	WordIndex int     `json:"word_index"`
	Active    bool    `json:"active"`
	Position  float64 `json:"position_seconds"`
}

// ReadStatus announces session lifecycle transitions.
type ReadStatus struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"` // started | finished | failed | cancelled
	Error     string    `json:"error,omitempty"`
	Chunks    int       `json:"chunks,omitempty"`
	Words     int       `json:"words,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectReadRequest   = "narrate.read.request"
	SubjectReadCancel    = "narrate.read.cancel"
	SubjectReadAudio     = "narrate.read.audio"
	SubjectReadHighlight = "narrate.read.highlight"
	SubjectReadStatus    = "narrate.read.status"
)

const (
	StateStarted   = "started"
	StateFinished  = "finished"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)
