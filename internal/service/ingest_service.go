package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-orchestrator-be/internal/apperror"
	"ai-orchestrator-be/internal/event"
	"ai-orchestrator-be/internal/eventbus"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/stt"
)

// IIngestService owns the live audio stream of each connected session and
// turns raw audio into transcript events.
type IIngestService interface {
	// BeginUtterance opens a recognizer stream for the session, tearing down
	// any stream still open from a previous utterance. The context should
	// span the client connection, not a single request.
	BeginUtterance(ctx context.Context, sessionId uuid.UUID) error
	// PushAudio forwards one audio chunk into the active stream. Chunks
	// arriving with no open utterance are dropped with a warning. Returns an
	// overload error when the recognizer cannot keep up.
	PushAudio(sessionId uuid.UUID, chunk []byte) error
	// EndUtterance closes the audio stream and waits for the recognizer to
	// flush, returning the final transcript. Empty when nothing was heard.
	EndUtterance(ctx context.Context, sessionId uuid.UUID) (string, error)
	// Abort tears the stream down without waiting for a transcript.
	Abort(sessionId uuid.UUID)
}

type activeStream struct {
	audio  chan []byte
	final  chan string
	cancel context.CancelFunc

	closeOnce sync.Once
}

func (a *activeStream) closeAudio() {
	a.closeOnce.Do(func() { close(a.audio) })
}

type ingestService struct {
	sttAdapter stt.Adapter
	bus        eventbus.Bus
	log        logger.ILogger

	bufferSize  int
	pushTimeout time.Duration
	flushWait   time.Duration

	mu      sync.Mutex
	streams map[uuid.UUID]*activeStream
}

func NewIngestService(
	sttAdapter stt.Adapter,
	bus eventbus.Bus,
	log logger.ILogger,
	bufferSize int,
	pushTimeout time.Duration,
	flushWait time.Duration,
) IIngestService {
	return &ingestService{
		sttAdapter:  sttAdapter,
		bus:         bus,
		log:         log,
		bufferSize:  bufferSize,
		pushTimeout: pushTimeout,
		flushWait:   flushWait,
		streams:     map[uuid.UUID]*activeStream{},
	}
}

func (s *ingestService) BeginUtterance(ctx context.Context, sessionId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, exists := s.streams[sessionId]; exists {
		delete(s.streams, sessionId)
		prev.closeAudio()
		prev.cancel()
		s.log.Warn("Ingest", "Utterance already in progress, replacing", map[string]interface{}{
			"session_id": sessionId.String(),
		})
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream := &activeStream{
		audio:  make(chan []byte, s.bufferSize),
		final:  make(chan string, 1),
		cancel: cancel,
	}
	s.streams[sessionId] = stream

	results := s.sttAdapter.Stream(streamCtx, stream.audio)
	go s.consumeResults(streamCtx, sessionId, stream, results)

	s.log.Debug("Ingest", "Utterance opened", map[string]interface{}{
		"session_id": sessionId.String(),
	})
	return nil
}

func (s *ingestService) consumeResults(ctx context.Context, sessionId uuid.UUID, stream *activeStream, results <-chan stt.Result) {
	var finals []string
	for result := range results {
		if result.Err != nil {
			s.log.Error("Ingest", "Recognizer stream failed", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      result.Err.Error(),
			})
			continue
		}
		if result.IsFinal {
			finals = append(finals, result.Transcript)
			continue
		}
		eventbus.PublishLogged(ctx, s.bus, s.log, "Ingest", sessionId, event.TranscriptPartial{
			Text: result.Transcript,
		})
	}

	// The joined final is published even when empty so subscribers always
	// see the utterance close.
	transcript := strings.TrimSpace(strings.Join(finals, " "))
	eventbus.PublishLogged(ctx, s.bus, s.log, "Ingest", sessionId, event.TranscriptFinal{
		Text: transcript,
	})
	stream.final <- transcript
}

func (s *ingestService) get(sessionId uuid.UUID) (*activeStream, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stream, ok := s.streams[sessionId]
	return stream, ok
}

func (s *ingestService) remove(sessionId uuid.UUID) (*activeStream, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stream, ok := s.streams[sessionId]
	if ok {
		delete(s.streams, sessionId)
	}
	return stream, ok
}

func (s *ingestService) PushAudio(sessionId uuid.UUID, chunk []byte) error {
	stream, ok := s.get(sessionId)
	if !ok {
		s.log.Warn("Ingest", "Audio chunk with no utterance in progress, dropping", map[string]interface{}{
			"session_id": sessionId.String(),
		})
		return nil
	}

	select {
	case stream.audio <- chunk:
		return nil
	case <-time.After(s.pushTimeout):
		return apperror.Overloaded("Audio ingest backpressure")
	}
}

func (s *ingestService) EndUtterance(ctx context.Context, sessionId uuid.UUID) (string, error) {
	stream, ok := s.remove(sessionId)
	if !ok {
		return "", apperror.ProtocolViolation("No utterance in progress")
	}

	stream.closeAudio()
	defer stream.cancel()

	select {
	case transcript := <-stream.final:
		return transcript, nil
	case <-time.After(s.flushWait):
		s.log.Warn("Ingest", "Recognizer flush timed out", map[string]interface{}{
			"session_id": sessionId.String(),
		})
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *ingestService) Abort(sessionId uuid.UUID) {
	stream, ok := s.remove(sessionId)
	if !ok {
		return
	}
	stream.closeAudio()
	stream.cancel()
	s.log.Debug("Ingest", "Utterance aborted", map[string]interface{}{
		"session_id": sessionId.String(),
	})
}
