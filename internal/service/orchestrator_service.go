package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/event"
	"ai-orchestrator-be/internal/eventbus"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/llm"
	"ai-orchestrator-be/pkg/tts"
)

// IOrchestratorService drives one conversational turn end to end:
// transcript in, generation and persistence, synthesis out.
type IOrchestratorService interface {
	// HandleEndOfTurn runs the turn pipeline. Turns are serialized per
	// session; a turn arriving while another is in flight is dropped.
	HandleEndOfTurn(ctx context.Context, sessionId uuid.UUID, transcript string)
}

type orchestratorService struct {
	registry   IRegistryService
	memory     IMemoryService
	llmAdapter llm.StreamAdapter
	ttsAdapter tts.Adapter
	bus        eventbus.Bus
	log        logger.ILogger

	generateTimeout  time.Duration
	synthesisTimeout time.Duration

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

func NewOrchestratorService(
	registry IRegistryService,
	memory IMemoryService,
	llmAdapter llm.StreamAdapter,
	ttsAdapter tts.Adapter,
	bus eventbus.Bus,
	log logger.ILogger,
	generateTimeout time.Duration,
	synthesisTimeout time.Duration,
) IOrchestratorService {
	return &orchestratorService{
		registry:         registry,
		memory:           memory,
		llmAdapter:       llmAdapter,
		ttsAdapter:       ttsAdapter,
		bus:              bus,
		log:              log,
		generateTimeout:  generateTimeout,
		synthesisTimeout: synthesisTimeout,
		inFlight:         map[uuid.UUID]bool{},
	}
}

func (s *orchestratorService) acquire(sessionId uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[sessionId] {
		return false
	}
	s.inFlight[sessionId] = true
	return true
}

func (s *orchestratorService) release(sessionId uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionId)
}

func (s *orchestratorService) HandleEndOfTurn(ctx context.Context, sessionId uuid.UUID, transcript string) {
	if strings.TrimSpace(transcript) == "" {
		s.log.Debug("Orchestrator", "Empty transcript, skipping turn", map[string]interface{}{
			"session_id": sessionId.String(),
		})
		return
	}

	if !s.acquire(sessionId) {
		s.log.Warn("Orchestrator", "Turn already in flight, dropping", map[string]interface{}{
			"session_id": sessionId.String(),
		})
		return
	}
	defer s.release(sessionId)

	state, err := s.registry.Resolve(ctx, sessionId)
	if err != nil {
		s.log.Error("Orchestrator", "Failed to resolve session state", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return
	}

	if !state.Capabilities.Generation {
		s.log.Debug("Orchestrator", "Generation disabled for session", map[string]interface{}{
			"session_id": sessionId.String(),
		})
		return
	}

	reply, ok := s.generate(ctx, sessionId, state.Persona, transcript)
	if !ok || strings.TrimSpace(reply) == "" {
		return
	}

	// Audio trails the text reply, so synthesis starts before persistence
	// and the two proceed concurrently.
	if state.Capabilities.Synthesis {
		go s.synthesize(sessionId, reply)
	}

	if err := s.memory.RecordTurn(ctx, sessionId, transcript, reply); err != nil {
		s.log.Error("Orchestrator", "Failed to persist turn", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
}

// generate streams the model reply, fanning partials and side-channel events
// to subscribers. Returns false when the adapter failed before producing
// anything useful.
func (s *orchestratorService) generate(ctx context.Context, sessionId uuid.UUID, persona entity.Persona, transcript string) (string, bool) {
	prompt, err := s.memory.BuildPrompt(ctx, sessionId, persona, transcript)
	if err != nil {
		s.log.Error("Orchestrator", "Failed to build prompt", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return "", false
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generateTimeout)
	defer cancel()

	var sb strings.Builder
	for chunk := range s.llmAdapter.Stream(genCtx, prompt, nil) {
		if chunk.Err != nil {
			// An adapter error fails the whole turn; a truncated reply
			// must not be synthesized or persisted.
			s.log.Error("Orchestrator", "Generation stream failed, aborting turn", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      chunk.Err.Error(),
			})
			return "", false
		}
		if chunk.Text != "" {
			sb.WriteString(chunk.Text)
			eventbus.PublishLogged(genCtx, s.bus, s.log, "Orchestrator", sessionId, event.LLMPartial{
				Text: chunk.Text,
			})
		}
		if len(chunk.GesturePlan) > 0 {
			eventbus.PublishLogged(genCtx, s.bus, s.log, "Orchestrator", sessionId, event.GesturePlan{
				Plan: chunk.GesturePlan,
			})
		}
		if chunk.Emotion != "" {
			eventbus.PublishLogged(genCtx, s.bus, s.log, "Orchestrator", sessionId, event.Emotion{
				Emotion: chunk.Emotion,
			})
		}
	}

	return sb.String(), sb.Len() > 0
}

// synthesize runs detached from the turn: audio trails the text reply and
// must never block the next turn.
func (s *orchestratorService) synthesize(sessionId uuid.UUID, text string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Orchestrator", "Synthesis panicked", map[string]interface{}{
				"session_id": sessionId.String(),
				"panic":      r,
			})
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.synthesisTimeout)
	defer cancel()

	for chunk := range s.ttsAdapter.Stream(ctx, text) {
		if chunk.Err != nil {
			s.log.Error("Orchestrator", "Synthesis stream failed", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      chunk.Err.Error(),
			})
			return
		}
		eventbus.PublishLogged(ctx, s.bus, s.log, "Orchestrator", sessionId, event.SpeechChunk{
			AudioBase64: chunk.AudioBase64,
			Visemes:     chunk.Visemes,
			Phonemes:    chunk.Phonemes,
		})
	}
}
