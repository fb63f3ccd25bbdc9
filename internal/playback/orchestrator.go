package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/narratelabs/narrate-core/internal/align"
	"github.com/narratelabs/narrate-core/internal/audio"
	"github.com/narratelabs/narrate-core/internal/chunk"
	"github.com/narratelabs/narrate-core/internal/speech"
)

// DefaultTick is the highlight poll interval.
const DefaultTick = 50 * time.Millisecond

// Options tune one playback run.
type Options struct {
	Voice      string
	Tick       time.Duration
	ResumeWord int
	// OnHighlight receives the currently spoken speakable-token ordinal;
	// active is false when nothing is highlighted yet.
	OnHighlight func(tokenIndex int, active bool)
	// OnChunk observes each chunk's synthesized audio before it is fed.
	OnChunk func(index int, data []byte)
}

// Orchestrator drives chunks through synthesis and playback strictly
// sequentially: one request in flight, audio fed in order, timestamps
// offset by the audio duration already handed to the sink. Sequential
// operation bounds memory and keeps the audio order deterministic.
type Orchestrator struct {
	synth   speech.Synthesizer
	sink    Sink
	tracker *align.Tracker
	opts    Options
	logger  *slog.Logger
}

func NewOrchestrator(synth speech.Synthesizer, sink Sink, tracker *align.Tracker, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	return &Orchestrator{
		synth:   synth,
		sink:    sink,
		tracker: tracker,
		opts:    opts,
		logger:  logger.With(slog.String("component", "playback")),
	}
}

// Play synthesizes and feeds every chunk, then lets the sink drain. A
// synthesis or decode failure stops the loop, lets already-buffered audio
// finish, and surfaces as speech.ErrSynthesis. Cancellation returns
// ctx.Err() and halts the sink; it is an expected outcome, not a failure.
func (o *Orchestrator) Play(ctx context.Context, chunks []chunk.Chunk) error {
	hlCtx, stopHL := context.WithCancel(context.Background())
	hlDone := make(chan struct{})
	go func() {
		defer close(hlDone)
		o.pollHighlights(hlCtx)
	}()
	defer func() {
		stopHL()
		<-hlDone
	}()

	var fed float64
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			o.sink.Stop()
			return err
		}

		res, err := o.synth.Synthesize(ctx, speech.Request{Text: c.Text, Voice: o.opts.Voice})
		if err != nil {
			if ctx.Err() != nil {
				o.sink.Stop()
				return ctx.Err()
			}
			o.sink.Finish()
			if !errors.Is(err, speech.ErrSynthesis) {
				err = fmt.Errorf("%w: %v", speech.ErrSynthesis, err)
			}
			return err
		}
		dur, err := audio.Duration(res.Audio)
		if err != nil {
			o.sink.Finish()
			return fmt.Errorf("%w: %v", speech.ErrSynthesis, err)
		}

		if o.opts.OnChunk != nil {
			o.opts.OnChunk(i, res.Audio)
		}
		if err := o.sink.Feed(ctx, res.Audio); err != nil {
			o.sink.Stop()
			return err
		}
		if i == 0 && o.opts.OnHighlight != nil {
			o.opts.OnHighlight(o.opts.ResumeWord, true)
		}
		o.tracker.Append(fed, res.Words)
		fed += dur

		o.logger.Debug("chunk played",
			slog.Int("chunk", i),
			slog.Int("words", c.WordCount),
			slog.Float64("audio_seconds", dur))
	}

	o.sink.Finish()
	return o.drain(ctx, fed)
}

func (o *Orchestrator) drain(ctx context.Context, total float64) error {
	for {
		if o.sink.Position() >= total {
			return nil
		}
		select {
		case <-ctx.Done():
			o.sink.Stop()
			return ctx.Err()
		case <-time.After(o.opts.Tick):
		}
	}
}

// pollHighlights reads the playback position on a fixed tick and reports
// token changes. It only ever touches the tracker's atomic snapshot, so it
// runs safely alongside mid-flight timestamp appends.
func (o *Orchestrator) pollHighlights(ctx context.Context) {
	if o.opts.OnHighlight == nil {
		return
	}
	ticker := time.NewTicker(o.opts.Tick)
	defer ticker.Stop()

	const none = -2
	last := none
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			idx, ok := o.tracker.TokenAt(o.sink.Position())
			cur := idx
			if !ok {
				cur = align.Unmatched
			}
			if cur != last {
				last = cur
				o.opts.OnHighlight(idx, ok)
			}
		}
	}
}
