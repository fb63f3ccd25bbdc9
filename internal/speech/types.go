package speech

import (
	"context"
	"errors"
)

// ErrSynthesis distinguishes engine/transport failures from cancellation.
// Callers stop the chunk loop on it and surface it; they never retry.
var ErrSynthesis = errors.New("speech synthesis failed")

// Request contains parameters to synthesize one chunk of text.
type Request struct {
	Text  string
	Voice string
}

// WordTimestamp is one engine-reported word with its spoken interval,
// seconds from the start of the returned audio.
type WordTimestamp struct {
	Word  string
	Start float64
	End   float64
}

// Result carries the synthesized audio (a complete WAV payload) and the
// engine's own word timing, when the engine provides it.
type Result struct {
	Audio []byte
	Words []WordTimestamp
}

// Synthesizer is the contract for producing audio from text. One call per
// chunk; implementations must observe ctx cancellation promptly.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Result, error)
}
