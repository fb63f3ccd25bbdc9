// Package service exposes the read-aloud pipeline on the bus: it accepts
// read requests, runs capture text through mapping, tokenization and
// chunking, drives synthesis playback, and publishes audio, highlight and
// status packets for the reader surface.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/narratelabs/narrate-core/internal/align"
	"github.com/narratelabs/narrate-core/internal/bus"
	"github.com/narratelabs/narrate-core/internal/chunk"
	"github.com/narratelabs/narrate-core/internal/config"
	"github.com/narratelabs/narrate-core/internal/document"
	"github.com/narratelabs/narrate-core/internal/markdown"
	"github.com/narratelabs/narrate-core/internal/playback"
	"github.com/narratelabs/narrate-core/internal/protocol"
	"github.com/narratelabs/narrate-core/internal/sessionstore"
	"github.com/narratelabs/narrate-core/internal/speech"
)

type Service struct {
	cfg    config.Config
	bus    *bus.Client
	synth  speech.Synthesizer
	store  *sessionstore.Store
	parser markdown.Parser
	logger *slog.Logger

	subRead   *nats.Subscription
	subCancel *nats.Subscription
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu      sync.Mutex
	current *session

	sessionsTotal metric.Int64Counter
	chunksTotal   metric.Int64Counter
}

type session struct {
	id     string
	cancel context.CancelFunc
}

func NewService(parent context.Context, cfg config.Config, busClient *bus.Client, synth speech.Synthesizer, store *sessionstore.Store, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	meter := otel.Meter("narrate.service")
	sessionsTotal, _ := meter.Int64Counter("narrate_sessions_total",
		metric.WithDescription("Reading sessions started"))
	chunksTotal, _ := meter.Int64Counter("narrate_chunks_synthesized_total",
		metric.WithDescription("Chunks synthesized across all sessions"))
	return &Service{
		cfg:           cfg,
		bus:           busClient,
		synth:         synth,
		store:         store,
		parser:        markdown.New(),
		logger:        log.With(slog.String("component", "read-service")),
		ctx:           ctx,
		cancel:        cancel,
		sessionsTotal: sessionsTotal,
		chunksTotal:   chunksTotal,
	}
}

func (s *Service) Start() error {
	if !s.cfg.Speech.Enabled {
		return nil
	}
	subRead, err := s.bus.Conn().Subscribe(protocol.SubjectReadRequest, s.handleRead)
	if err != nil {
		return err
	}
	s.subRead = subRead

	subCancel, err := s.bus.Conn().Subscribe(protocol.SubjectReadCancel, s.handleCancel)
	if err != nil {
		_ = s.subRead.Drain()
		return err
	}
	s.subCancel = subCancel
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.subRead != nil {
		_ = s.subRead.Drain()
	}
	if s.subCancel != nil {
		_ = s.subCancel.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool {
	return !s.cfg.Speech.Enabled || (s.subRead != nil && s.subCancel != nil)
}

func (s *Service) handleRead(msg *nats.Msg) {
	var req protocol.ReadRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode read request", slogError(err))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	// One session owns the sink and alignment state at a time; a new
	// request always cancels the in-flight one first.
	sessCtx, sessCancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	if s.current != nil {
		s.current.cancel()
	}
	s.current = &session{id: req.SessionID, cancel: sessCancel}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer sessCancel()
		s.runSession(sessCtx, req)
	}()
}

func (s *Service) handleCancel(msg *nats.Msg) {
	var req protocol.CancelRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode cancel request", slogError(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	if req.SessionID != "" && req.SessionID != s.current.id {
		return
	}
	s.current.cancel()
}

func (s *Service) runSession(ctx context.Context, req protocol.ReadRequest) {
	tracer := otel.Tracer("narrate.service")
	ctx, span := tracer.Start(ctx, "read.session")
	defer span.End()

	source := CleanText(req.Text)
	doc := document.Build(source, s.parser, s.logger)
	tokens := document.Tokenize(doc)

	target := req.TargetWords
	if target == 0 {
		target = s.cfg.Chunking.TargetWords
	}
	chunks, err := chunk.Split(doc, tokens, target)
	if err != nil {
		s.publishStatus(req.SessionID, protocol.StateFailed, err.Error(), 0, 0)
		return
	}
	if len(chunks) == 0 {
		s.publishStatus(req.SessionID, protocol.StateFinished, "", 0, 0)
		return
	}

	resume := req.ResumeWord
	if resume == 0 {
		if stored, err := s.store.LastPosition(ctx, req.SessionID); err == nil && stored > 0 {
			resume = stored
		}
	}

	// Already-spoken chunks are never re-synthesized: playback picks up at
	// the first chunk with unspoken words, and the effective resume ordinal
	// rewinds to that chunk's first word so audio and highlights agree.
	chunks, resume = chunk.Resume(chunks, resume)
	if len(chunks) == 0 {
		s.publishStatus(req.SessionID, protocol.StateFinished, "", 0, 0)
		return
	}

	voice := req.Voice
	if voice == "" {
		voice = s.cfg.Speech.Voice
	}

	tracker := align.NewTracker(tokens, resume)
	sink := playback.NewBufferSink(s.cfg.Playback.BufferSeconds)

	words := tracker.WordCount()
	span.SetAttributes(
		attribute.Int("read.words", words),
		attribute.Int("read.chunks", len(chunks)),
	)
	s.sessionsTotal.Add(ctx, 1)
	s.publishStatus(req.SessionID, protocol.StateStarted, "", len(chunks), words)
	if err := s.store.StartSession(ctx, req.SessionID, voice, words, len(chunks)); err != nil {
		s.logger.Warn("failed to record session", slogError(err))
	}
	s.recordEvent(sessionstore.Event{SessionID: req.SessionID, Type: sessionstore.EventStarted, WordIndex: resume})

	opts := playback.Options{
		Voice:      voice,
		Tick:       time.Duration(s.cfg.Playback.TickMS) * time.Millisecond,
		ResumeWord: resume,
		OnHighlight: func(idx int, active bool) {
			s.publishHighlight(req.SessionID, idx, active, sink.Position())
			if active {
				s.recordEvent(sessionstore.Event{
					SessionID: req.SessionID,
					Type:      sessionstore.EventPosition,
					WordIndex: idx,
					Position:  sink.Position(),
				})
			}
		},
		OnChunk: func(i int, data []byte) {
			s.chunksTotal.Add(ctx, 1)
			s.publishAudio(req.SessionID, i, chunks[i], data, i == len(chunks)-1)
			s.recordEvent(sessionstore.Event{SessionID: req.SessionID, Type: sessionstore.EventChunk, ChunkIndex: i, WordIndex: chunks[i].StartWord})
		},
	}

	orch := playback.NewOrchestrator(s.synth, sink, tracker, opts, s.logger)
	err = orch.Play(ctx, chunks)
	switch {
	case err == nil:
		s.publishStatus(req.SessionID, protocol.StateFinished, "", len(chunks), words)
		s.recordEvent(sessionstore.Event{SessionID: req.SessionID, Type: sessionstore.EventFinished, WordIndex: words})
	case errors.Is(err, context.Canceled):
		s.publishStatus(req.SessionID, protocol.StateCancelled, "", 0, 0)
		s.recordEvent(sessionstore.Event{SessionID: req.SessionID, Type: sessionstore.EventCancelled})
	default:
		s.logger.Warn("reading session failed", slog.String("session", req.SessionID), slogError(err))
		s.publishStatus(req.SessionID, protocol.StateFailed, err.Error(), 0, 0)
		s.recordEvent(sessionstore.Event{SessionID: req.SessionID, Type: sessionstore.EventFailed, Detail: err.Error()})
	}
}

func (s *Service) publishAudio(sessionID string, index int, c chunk.Chunk, data []byte, final bool) {
	packet := protocol.AudioPacket{
		SessionID:  sessionID,
		ChunkIndex: index,
		StartWord:  c.StartWord,
		WordCount:  c.WordCount,
		Audio:      data,
		Final:      final,
	}
	s.publish(protocol.SubjectReadAudio, packet)
}

func (s *Service) publishHighlight(sessionID string, idx int, active bool, position float64) {
	s.publish(protocol.SubjectReadHighlight, protocol.HighlightPacket{
		SessionID: sessionID,
		WordIndex: idx,
		Active:    active,
		Position:  position,
	})
}

func (s *Service) publishStatus(sessionID, state, errMsg string, chunks, words int) {
	s.publish(protocol.SubjectReadStatus, protocol.ReadStatus{
		SessionID: sessionID,
		State:     state,
		Error:     errMsg,
		Chunks:    chunks,
		Words:     words,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Service) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to marshal packet", slog.String("subject", subject), slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(subject, data); err != nil {
		s.logger.Warn("failed to publish packet", slog.String("subject", subject), slogError(err))
	}
}

func (s *Service) recordEvent(evt sessionstore.Event) {
	// Journal writes ride on the service context so a cancelled session
	// can still record its terminal event.
	if err := s.store.AppendEvent(s.ctx, evt); err != nil {
		s.logger.Warn("failed to record playback event", slogError(err))
	}
}

// CleanText produces the canonical source string all spans are measured
// against: line endings collapsed to \n and a leading BOM removed.
func CleanText(text string) string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
