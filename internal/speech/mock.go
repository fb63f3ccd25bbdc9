package speech

import (
	"context"
	"strings"
	"time"

	"github.com/narratelabs/narrate-core/internal/audio"
)

const mockWordsPerSecond = 2.5

type mockSynth struct {
	sampleRate int
	delay      time.Duration
}

// NewMockSynth returns an engine that renders a tone sized to the text's
// word count and reports evenly spaced word timestamps. It produces real
// WAV payloads so duration and offset math behaves as with a live engine.
func NewMockSynth(sampleRate int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate, delay: 10 * time.Millisecond}
}

func (m *mockSynth) Synthesize(ctx context.Context, req Request) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-time.After(m.delay):
	}

	words := strings.Fields(req.Text)
	seconds := float64(len(words)) / mockWordsPerSecond
	if seconds == 0 {
		seconds = 0.1
	}
	payload, err := audio.Tone(seconds, m.sampleRate, 440)
	if err != nil {
		return Result{}, err
	}

	per := seconds / float64(max(len(words), 1))
	stamps := make([]WordTimestamp, len(words))
	for i, w := range words {
		stamps[i] = WordTimestamp{
			Word:  w,
			Start: float64(i) * per,
			End:   float64(i+1) * per,
		}
	}
	return Result{Audio: payload, Words: stamps}, nil
}
