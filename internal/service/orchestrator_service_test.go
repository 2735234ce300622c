package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-orchestrator-be/internal/dto"
	"ai-orchestrator-be/internal/event"
	"ai-orchestrator-be/internal/repository/memory"
	"ai-orchestrator-be/pkg/llm"
	"ai-orchestrator-be/pkg/tts"
)

type orchestratorFixture struct {
	svc       IOrchestratorService
	registry  IRegistryService
	uow       *fakeUnitOfWork
	bus       *fakeBus
	llm       *fakeLLMAdapter
	sessionId uuid.UUID
	userId    uuid.UUID
}

func newOrchestratorFixture(t *testing.T, req *dto.CreateSessionRequest, llmAdapter *fakeLLMAdapter) *orchestratorFixture {
	t.Helper()

	uow := newFakeUnitOfWork()
	stateRepo := memory.NewStateRepository()
	shortTerm := newFakeShortTermStore(10)
	bus := newFakeBus()

	registry := NewRegistryService(
		&fakeFactory{uow: uow},
		stateRepo,
		shortTerm,
		nil,
		nopLogger{},
		testSecret,
		15*time.Minute,
	)
	memorySvc := NewMemoryService(
		&fakeFactory{uow: uow},
		shortTerm,
		&fakeEmbeddingProvider{},
		llmAdapter,
		nopLogger{},
		100, // keep summarization quiet in these tests
		5,
	)
	ttsAdapter := &fakeTTSAdapter{chunks: []tts.Chunk{
		{AudioBase64: "YXVkaW8=", Visemes: []tts.Viseme{{Tag: "PP"}}},
	}}
	svc := NewOrchestratorService(
		registry,
		memorySvc,
		llmAdapter,
		ttsAdapter,
		bus,
		nopLogger{},
		time.Second,
		time.Second,
	)

	userId := uuid.New()
	res, err := registry.CreateSession(context.Background(), userId, req)
	require.NoError(t, err)

	return &orchestratorFixture{
		svc:       svc,
		registry:  registry,
		uow:       uow,
		bus:       bus,
		llm:       llmAdapter,
		sessionId: res.SessionId,
		userId:    userId,
	}
}

func countType(types []string, want string) int {
	n := 0
	for _, tp := range types {
		if tp == want {
			n++
		}
	}
	return n
}

func TestHandleEndOfTurnHappyPath(t *testing.T) {
	f := newOrchestratorFixture(t, nil, &fakeLLMAdapter{chunks: []llm.Chunk{
		{Text: "Hello "},
		{Text: "there.", Emotion: "warm"},
	}})

	f.svc.HandleEndOfTurn(context.Background(), f.sessionId, "hi")

	types := f.bus.typesFor(f.sessionId)
	assert.Equal(t, 2, countType(types, event.TypeLLMPartial))
	assert.Equal(t, 1, countType(types, event.TypeEmotion))

	// Both sides of the turn persisted.
	require.Len(t, f.uow.messageRepo.messages, 2)
	assert.Equal(t, "hi", f.uow.messageRepo.messages[0].Text)
	assert.Equal(t, "Hello there.", f.uow.messageRepo.messages[1].Text)

	// Synthesis runs detached; give it a moment.
	assert.Eventually(t, func() bool {
		return countType(f.bus.typesFor(f.sessionId), event.TypeSpeechChunk) == 1
	}, time.Second, 10*time.Millisecond)

	// The prompt carried the transcript.
	assert.Contains(t, f.llm.lastPrompt(), "hi")
}

func TestHandleEndOfTurnEmptyTranscript(t *testing.T) {
	f := newOrchestratorFixture(t, nil, &fakeLLMAdapter{chunks: []llm.Chunk{{Text: "reply"}}})

	f.svc.HandleEndOfTurn(context.Background(), f.sessionId, "   ")

	assert.Empty(t, f.bus.typesFor(f.sessionId))
	assert.Empty(t, f.uow.messageRepo.messages)
}

func TestHandleEndOfTurnGenerationDisabled(t *testing.T) {
	f := newOrchestratorFixture(t, &dto.CreateSessionRequest{
		Capabilities: &dto.CapabilitiesPayload{Transcription: true, Generation: false, Synthesis: true},
	}, &fakeLLMAdapter{chunks: []llm.Chunk{{Text: "reply"}}})

	f.svc.HandleEndOfTurn(context.Background(), f.sessionId, "hi")

	assert.Empty(t, f.bus.typesFor(f.sessionId))
	assert.Empty(t, f.uow.messageRepo.messages)
}

func TestHandleEndOfTurnGenerationFailureAbortsTurn(t *testing.T) {
	f := newOrchestratorFixture(t, nil, &fakeLLMAdapter{chunks: []llm.Chunk{
		{Text: "partial "},
		{Err: errors.New("stream broken")},
	}})

	f.svc.HandleEndOfTurn(context.Background(), f.sessionId, "hi")

	// The truncated reply is neither persisted nor synthesized.
	assert.Empty(t, f.uow.messageRepo.messages)

	time.Sleep(50 * time.Millisecond)
	types := f.bus.typesFor(f.sessionId)
	assert.Equal(t, 1, countType(types, event.TypeLLMPartial))
	assert.Zero(t, countType(types, event.TypeSpeechChunk))

	// The failed turn released the session; the next one runs normally.
	f.llm.mu.Lock()
	f.llm.chunks = []llm.Chunk{{Text: "recovered"}}
	f.llm.mu.Unlock()
	f.svc.HandleEndOfTurn(context.Background(), f.sessionId, "again")
	assert.Len(t, f.uow.messageRepo.messages, 2)
}

func TestHandleEndOfTurnSynthesisDisabled(t *testing.T) {
	f := newOrchestratorFixture(t, &dto.CreateSessionRequest{
		Capabilities: &dto.CapabilitiesPayload{Transcription: true, Generation: true, Synthesis: false},
	}, &fakeLLMAdapter{chunks: []llm.Chunk{{Text: "reply"}}})

	f.svc.HandleEndOfTurn(context.Background(), f.sessionId, "hi")

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, countType(f.bus.typesFor(f.sessionId), event.TypeSpeechChunk))
	// The text turn still persisted.
	assert.Len(t, f.uow.messageRepo.messages, 2)
}

// gatedLLM blocks its stream until released, keeping a turn in flight.
type gatedLLM struct {
	started sync.Once
	claimed chan struct{}
	release chan struct{}
}

func (g *gatedLLM) Stream(ctx context.Context, _ string, _ map[string]any) <-chan llm.Chunk {
	g.started.Do(func() { close(g.claimed) })
	out := make(chan llm.Chunk, 1)
	go func() {
		defer close(out)
		select {
		case <-g.release:
			out <- llm.Chunk{Text: "late reply"}
		case <-ctx.Done():
		}
	}()
	return out
}

func TestConcurrentTurnIsDropped(t *testing.T) {
	gate := &gatedLLM{claimed: make(chan struct{}), release: make(chan struct{})}

	uow := newFakeUnitOfWork()
	stateRepo := memory.NewStateRepository()
	shortTerm := newFakeShortTermStore(10)
	bus := newFakeBus()

	registry := NewRegistryService(&fakeFactory{uow: uow}, stateRepo, shortTerm, nil, nopLogger{}, testSecret, 15*time.Minute)
	memorySvc := NewMemoryService(&fakeFactory{uow: uow}, shortTerm, &fakeEmbeddingProvider{}, gate, nopLogger{}, 100, 5)
	svc := NewOrchestratorService(registry, memorySvc, gate, &fakeTTSAdapter{}, bus, nopLogger{}, time.Second, time.Second)

	res, err := registry.CreateSession(context.Background(), uuid.New(), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.HandleEndOfTurn(context.Background(), res.SessionId, "first")
	}()

	// Wait for the first turn to claim the session.
	select {
	case <-gate.claimed:
	case <-time.After(time.Second):
		t.Fatal("first turn never reached generation")
	}

	// This one must be dropped without publishing anything.
	svc.HandleEndOfTurn(context.Background(), res.SessionId, "second")
	assert.Empty(t, bus.typesFor(res.SessionId))

	close(gate.release)
	wg.Wait()

	// Only the first turn's messages landed.
	require.Len(t, uow.messageRepo.messages, 2)
	assert.Equal(t, "first", uow.messageRepo.messages[0].Text)
}
