package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/event"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/repository/contract"
	"ai-orchestrator-be/internal/repository/specification"
	"ai-orchestrator-be/internal/repository/unitofwork"
	"ai-orchestrator-be/pkg/embedding"
	"ai-orchestrator-be/pkg/llm"
	"ai-orchestrator-be/pkg/stt"
	"ai-orchestrator-be/pkg/tts"
)

// --- Logger ---

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

var _ logger.ILogger = nopLogger{}

// --- Event bus ---

type fakeBus struct {
	mu     sync.Mutex
	events map[uuid.UUID][]event.Event
	failed bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{events: map[uuid.UUID][]event.Event{}}
}

func (b *fakeBus) Publish(_ context.Context, sessionId uuid.UUID, ev event.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failed {
		return errors.New("bus unavailable")
	}
	b.events[sessionId] = append(b.events[sessionId], ev)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, sessionId uuid.UUID) (<-chan event.Event, error) {
	ch := make(chan event.Event)
	close(ch)
	return ch, nil
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) published(sessionId uuid.UUID) []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]event.Event{}, b.events[sessionId]...)
}

func (b *fakeBus) typesFor(sessionId uuid.UUID) []string {
	types := []string{}
	for _, ev := range b.published(sessionId) {
		types = append(types, ev.EventType())
	}
	return types
}

// --- Repositories ---

// specs are interpreted structurally; the fakes only understand the
// specifications the services actually use.
func matchSession(s *entity.Session, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if s.Id != sp.ID {
				return false
			}
		case specification.ByUserID:
			if s.UserId != sp.UserID {
				return false
			}
		case specification.ByStatus:
			if s.Status != sp.Status {
				return false
			}
		}
	}
	return true
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[uuid.UUID]*entity.Session{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.Id] = &copied
	return nil
}

func (r *fakeSessionRepo) Update(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.Id] = &copied
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) DeleteAllByUserIdUnscoped(_ context.Context, userId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserId == userId {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *fakeSessionRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if matchSession(s, specs) {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*entity.Session{}
	for _, s := range r.sessions {
		if matchSession(s, specs) {
			copied := *s
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*entity.Message
	failNext bool
}

func (r *fakeMessageRepo) Create(_ context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return errors.New("insert failed")
	}
	copied := *message
	r.messages = append(r.messages, &copied)
	return nil
}

func (r *fakeMessageRepo) DeleteAllBySessionIdUnscoped(_ context.Context, sessionId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.messages[:0]
	for _, m := range r.messages {
		if m.SessionId != sessionId {
			kept = append(kept, m)
		}
	}
	r.messages = kept
	return nil
}

func (r *fakeMessageRepo) DeleteAllByUserIdUnscoped(_ context.Context, _ uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
	return nil
}

func (r *fakeMessageRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*entity.Message{}
	for _, m := range r.messages {
		keep := true
		for _, spec := range specs {
			if sp, ok := spec.(specification.BySessionID); ok && m.SessionId != sp.SessionID {
				keep = false
			}
		}
		if keep {
			copied := *m
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type fakeMemoryRepo struct {
	mu      sync.Mutex
	records []*entity.MemoryRecord
}

func (r *fakeMemoryRepo) Create(_ context.Context, record *entity.MemoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *record
	r.records = append(r.records, &copied)
	return nil
}

func (r *fakeMemoryRepo) DeleteAllBySessionIdUnscoped(_ context.Context, sessionId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	for _, m := range r.records {
		if m.SessionId != sessionId {
			kept = append(kept, m)
		}
	}
	r.records = kept
	return nil
}

func (r *fakeMemoryRepo) DeleteAllByUserIdUnscoped(_ context.Context, _ uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
	return nil
}

func (r *fakeMemoryRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.MemoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*entity.MemoryRecord{}
	for _, m := range r.records {
		keep := true
		for _, spec := range specs {
			if sp, ok := spec.(specification.BySessionID); ok && m.SessionId != sp.SessionID {
				keep = false
			}
		}
		if keep {
			copied := *m
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeMemoryRepo) SearchSimilar(_ context.Context, sessionId uuid.UUID, _ []float32, limit int) ([]*entity.MemoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*entity.MemoryRecord{}
	for _, m := range r.records {
		if m.SessionId == sessionId {
			copied := *m
			result = append(result, &copied)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// --- Unit of work ---

type fakeUnitOfWork struct {
	sessionRepo *fakeSessionRepo
	messageRepo *fakeMessageRepo
	memoryRepo  *fakeMemoryRepo

	mu        sync.Mutex
	begins    int
	commits   int
	rollbacks int
}

func newFakeUnitOfWork() *fakeUnitOfWork {
	return &fakeUnitOfWork{
		sessionRepo: newFakeSessionRepo(),
		messageRepo: &fakeMessageRepo{},
		memoryRepo:  &fakeMemoryRepo{},
	}
}

func (u *fakeUnitOfWork) Begin(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.begins++
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.commits++
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rollbacks++
	return nil
}

func (u *fakeUnitOfWork) SessionRepository() contract.SessionRepository { return u.sessionRepo }
func (u *fakeUnitOfWork) MessageRepository() contract.MessageRepository { return u.messageRepo }
func (u *fakeUnitOfWork) MemoryRepository() contract.MemoryRepository   { return u.memoryRepo }

type fakeFactory struct {
	uow *fakeUnitOfWork
}

func (f *fakeFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork { return f.uow }

var _ unitofwork.RepositoryFactory = &fakeFactory{}

// --- Short-term store ---

type fakeShortTermStore struct {
	mu       sync.Mutex
	capacity int
	windows  map[uuid.UUID][]entity.ShortTermEntry
	failPush bool
}

func newFakeShortTermStore(capacity int) *fakeShortTermStore {
	return &fakeShortTermStore{
		capacity: capacity,
		windows:  map[uuid.UUID][]entity.ShortTermEntry{},
	}
}

func (s *fakeShortTermStore) Push(_ context.Context, sessionId uuid.UUID, entry entity.ShortTermEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPush {
		return errors.New("store unavailable")
	}
	window := append(s.windows[sessionId], entry)
	if len(window) > s.capacity {
		window = window[len(window)-s.capacity:]
	}
	s.windows[sessionId] = window
	return nil
}

func (s *fakeShortTermStore) Window(_ context.Context, sessionId uuid.UUID) ([]entity.ShortTermEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.ShortTermEntry{}, s.windows[sessionId]...), nil
}

func (s *fakeShortTermStore) Clear(_ context.Context, sessionId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, sessionId)
	return nil
}

var _ contract.ShortTermStore = &fakeShortTermStore{}

// --- Adapters ---

type fakeEmbeddingProvider struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *fakeEmbeddingProvider) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.calls = append(p.calls, taskType)
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{
			Values: []float32{0.1, 0.2, 0.3},
		},
	}, nil
}

type fakeLLMAdapter struct {
	mu      sync.Mutex
	chunks  []llm.Chunk
	prompts []string
}

func (a *fakeLLMAdapter) Stream(_ context.Context, prompt string, _ map[string]any) <-chan llm.Chunk {
	a.mu.Lock()
	a.prompts = append(a.prompts, prompt)
	chunks := append([]llm.Chunk{}, a.chunks...)
	a.mu.Unlock()

	out := make(chan llm.Chunk, len(chunks))
	for _, c := range chunks {
		out <- c
	}
	close(out)
	return out
}

func (a *fakeLLMAdapter) lastPrompt() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.prompts) == 0 {
		return ""
	}
	return a.prompts[len(a.prompts)-1]
}

// fakeSTTAdapter emits one partial result per audio chunk and treats the
// concatenation of all chunks as the final transcript.
type fakeSTTAdapter struct{}

func (fakeSTTAdapter) Stream(ctx context.Context, audio <-chan []byte) <-chan stt.Result {
	out := make(chan stt.Result)
	go func() {
		defer close(out)
		var transcript string
		for chunk := range audio {
			transcript += string(chunk)
			select {
			case out <- stt.Result{Transcript: transcript}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- stt.Result{Transcript: transcript, IsFinal: true}:
		case <-ctx.Done():
		}
	}()
	return out
}

// blockingSTTAdapter never reads audio, forcing ingest backpressure.
type blockingSTTAdapter struct{}

func (blockingSTTAdapter) Stream(ctx context.Context, audio <-chan []byte) <-chan stt.Result {
	out := make(chan stt.Result)
	go func() {
		defer close(out)
		<-ctx.Done()
	}()
	return out
}

type fakeTTSAdapter struct {
	chunks []tts.Chunk
}

func (a *fakeTTSAdapter) Stream(_ context.Context, _ string) <-chan tts.Chunk {
	out := make(chan tts.Chunk, len(a.chunks))
	for _, c := range a.chunks {
		out <- c
	}
	close(out)
	return out
}
