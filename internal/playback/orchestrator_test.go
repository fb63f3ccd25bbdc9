package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/narratelabs/narrate-core/internal/align"
	"github.com/narratelabs/narrate-core/internal/audio"
	"github.com/narratelabs/narrate-core/internal/chunk"
	"github.com/narratelabs/narrate-core/internal/document"
	"github.com/narratelabs/narrate-core/internal/speech"
)

// stubSink accepts audio without pacing so orchestrator logic is tested
// independently of the wall clock.
type stubSink struct {
	mu       sync.Mutex
	fed      float64
	count    int
	finished bool
	stopped  bool
}

func (s *stubSink) Feed(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, err := audio.Duration(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.fed += d
	s.count++
	s.mu.Unlock()
	return nil
}

func (s *stubSink) Finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
}

func (s *stubSink) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fed
}

func (s *stubSink) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// failSynth succeeds for a fixed number of calls, then fails.
type failSynth struct {
	inner speech.Synthesizer
	okFor int
	calls int
}

func (f *failSynth) Synthesize(ctx context.Context, req speech.Request) (speech.Result, error) {
	f.calls++
	if f.calls > f.okFor {
		return speech.Result{}, fmt.Errorf("engine crashed")
	}
	return f.inner.Synthesize(ctx, req)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func speakable(words ...string) []document.Token {
	var tokens []document.Token
	for i, w := range words {
		if i > 0 {
			tokens = append(tokens, document.Token{Text: " ", Kind: document.TokenWhitespace})
		}
		tokens = append(tokens, document.Token{Text: w, Kind: document.TokenWord})
	}
	return tokens
}

func twoChunks() ([]chunk.Chunk, *align.Tracker) {
	tokens := speakable("alpha", "beta", "gamma", "delta")
	tracker := align.NewTracker(tokens, 0)
	chunks := []chunk.Chunk{
		{Text: "alpha beta", StartWord: 0, WordCount: 2},
		{Text: "gamma delta", StartWord: 2, WordCount: 2},
	}
	return chunks, tracker
}

func TestPlaySequentialChunks(t *testing.T) {
	chunks, tracker := twoChunks()
	sink := &stubSink{}
	var order []int
	orch := NewOrchestrator(speech.NewMockSynth(8000), sink, tracker, Options{
		Tick:    time.Second,
		OnChunk: func(i int, data []byte) { order = append(order, i) },
	}, discardLogger())

	if err := orch.Play(context.Background(), chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != 0 || order[1] != 1 {
		t.Fatalf("expected chunks in order, got %v", order)
	}
	if sink.count != 2 || !sink.finished {
		t.Fatalf("expected 2 fed payloads and a finished sink, got %d finished=%v", sink.count, sink.finished)
	}

	// Second chunk's timestamps must sit after the first chunk's audio:
	// two words at 2.5 words per second is 0.8 seconds of tone.
	got, ok := tracker.TokenAt(0.9)
	if !ok || got != 2 {
		t.Fatalf("expected the third word shortly after the first chunk ends, got %d,%v", got, ok)
	}
	got, ok = tracker.TokenAt(0.1)
	if !ok || got != 0 {
		t.Fatalf("expected the first word at the start, got %d,%v", got, ok)
	}
}

func TestPlayEmitsInitialHighlight(t *testing.T) {
	chunks, tracker := twoChunks()
	sink := &stubSink{}
	var (
		mu    sync.Mutex
		calls []int
	)
	orch := NewOrchestrator(speech.NewMockSynth(8000), sink, tracker, Options{
		Tick:       time.Minute,
		ResumeWord: 2,
		OnHighlight: func(idx int, active bool) {
			mu.Lock()
			if active {
				calls = append(calls, idx)
			}
			mu.Unlock()
		},
	}, discardLogger())

	if err := orch.Play(context.Background(), chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(calls) == 0 || calls[0] != 2 {
		t.Fatalf("expected the resume word highlighted first, got %v", calls)
	}
}

func TestPlaySynthesisFailure(t *testing.T) {
	chunks, tracker := twoChunks()
	sink := &stubSink{}
	synth := &failSynth{inner: speech.NewMockSynth(8000), okFor: 1}
	orch := NewOrchestrator(synth, sink, tracker, Options{Tick: time.Second}, discardLogger())

	err := orch.Play(context.Background(), chunks)
	if !errors.Is(err, speech.ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	if sink.count != 1 {
		t.Fatalf("the first chunk should still have played, got %d", sink.count)
	}
	if !sink.finished || sink.stopped {
		t.Fatalf("a failed run drains buffered audio rather than halting: finished=%v stopped=%v", sink.finished, sink.stopped)
	}
}

func TestPlayCancellation(t *testing.T) {
	chunks, tracker := twoChunks()
	sink := &stubSink{}
	orch := NewOrchestrator(speech.NewMockSynth(8000), sink, tracker, Options{Tick: time.Second}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := orch.Play(ctx, chunks); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !sink.stopped {
		t.Fatal("cancellation must halt the sink")
	}
	if sink.count != 0 {
		t.Fatalf("no audio should play after an upfront cancel, got %d", sink.count)
	}
}

func TestPlayResumeSkipsSpokenChunks(t *testing.T) {
	// Repeated words across chunks: if resume trimmed nothing, chunk 0's
	// timestamps would match tokens at or past the resume ordinal and the
	// highlight would point past the audio.
	tokens := speakable("go", "fast", "go", "fast")
	all := []chunk.Chunk{
		{Text: "go fast", StartWord: 0, WordCount: 2},
		{Text: "go fast", StartWord: 2, WordCount: 2},
	}

	remaining, start := chunk.Resume(all, 2)
	if len(remaining) != 1 || start != 2 {
		t.Fatalf("expected one chunk from word 2, got %d from %d", len(remaining), start)
	}

	tracker := align.NewTracker(tokens, start)
	sink := &stubSink{}
	orch := NewOrchestrator(speech.NewMockSynth(8000), sink, tracker, Options{
		Tick:       time.Second,
		ResumeWord: start,
	}, discardLogger())

	if err := orch.Play(context.Background(), remaining); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.count != 1 {
		t.Fatalf("already-spoken chunks must not be re-synthesized, got %d payloads", sink.count)
	}

	// At t=0.1 the audio is speaking the resumed chunk's first word, which
	// is the document's third token.
	got, ok := tracker.TokenAt(0.1)
	if !ok || got != 2 {
		t.Fatalf("expected the spoken word to be token 2, got %d,%v", got, ok)
	}
	got, ok = tracker.TokenAt(0.5)
	if !ok || got != 3 {
		t.Fatalf("expected token 3 for the second resumed word, got %d,%v", got, ok)
	}
}

func TestPlayNoChunks(t *testing.T) {
	_, tracker := twoChunks()
	sink := &stubSink{}
	orch := NewOrchestrator(speech.NewMockSynth(8000), sink, tracker, Options{Tick: time.Second}, discardLogger())
	if err := orch.Play(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sink.finished {
		t.Fatal("an empty run still finishes the sink")
	}
}
