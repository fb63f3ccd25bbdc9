package playback

import (
	"context"
	"sync"
	"time"

	"github.com/narratelabs/narrate-core/internal/audio"
)

// Sink is the audio output collaborator. Feed blocks until the sink has
// buffer space for the payload (backpressure) or ctx is cancelled; Finish
// signals that no further audio will arrive so the sink can drain and stop
// naturally; Position is the playback clock in seconds; Stop halts output
// immediately and is idempotent.
type Sink interface {
	Feed(ctx context.Context, data []byte) error
	Finish()
	Position() float64
	Stop()
}

const sinkPollInterval = 20 * time.Millisecond

// BufferSink paces WAV payloads against a wall clock, holding at most
// bufferSeconds of audio ahead of the playback position. It stands in for
// a device-backed sink: consumers read the position to drive highlights
// while the actual samples travel to the reader surface over the bus.
type BufferSink struct {
	buffer float64

	mu       sync.Mutex
	started  bool
	startAt  time.Time
	fed      float64 // seconds of audio accepted
	finished bool
	stopped  bool
	frozen   float64 // position at Stop

	now func() time.Time
}

// NewBufferSink returns a sink buffering up to bufferSeconds of audio.
func NewBufferSink(bufferSeconds float64) *BufferSink {
	if bufferSeconds <= 0 {
		bufferSeconds = 0.5
	}
	return &BufferSink{buffer: bufferSeconds, now: time.Now}
}

// Feed accepts one WAV payload, waiting for buffer space first.
func (s *BufferSink) Feed(ctx context.Context, data []byte) error {
	d, err := audio.Duration(data)
	if err != nil {
		return err
	}
	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return context.Canceled
		}
		if !s.started {
			s.started = true
			s.startAt = s.now()
		}
		if s.fed-s.positionLocked() <= s.buffer {
			s.fed += d
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sinkPollInterval):
		}
	}
}

// Finish marks the stream complete; playback runs out naturally.
func (s *BufferSink) Finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
}

// Position returns seconds of audio played so far.
func (s *BufferSink) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

func (s *BufferSink) positionLocked() float64 {
	if s.stopped {
		return s.frozen
	}
	if !s.started {
		return 0
	}
	elapsed := s.now().Sub(s.startAt).Seconds()
	if elapsed > s.fed {
		return s.fed
	}
	return elapsed
}

// Stop freezes the playback position. Safe to call more than once.
func (s *BufferSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.frozen = s.positionLocked()
	s.stopped = true
}

// Drained reports whether a finished sink has played everything it was fed.
func (s *BufferSink) Drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished && s.positionLocked() >= s.fed
}
