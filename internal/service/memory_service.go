package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ai-orchestrator-be/internal/apperror"
	"ai-orchestrator-be/internal/constant"
	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/repository/contract"
	"ai-orchestrator-be/internal/repository/unitofwork"
	"ai-orchestrator-be/pkg/embedding"
	"ai-orchestrator-be/pkg/llm"
)

type IMemoryService interface {
	// RecordTurn durably persists one user/assistant exchange, refreshes the
	// short-term window and evaluates summarization.
	RecordTurn(ctx context.Context, sessionId uuid.UUID, userText, assistantText string) error
	// BuildPrompt assembles the generation prompt from persona, retrieved
	// long-term memories and the short-term window.
	BuildPrompt(ctx context.Context, sessionId uuid.UUID, persona entity.Persona, transcript string) (string, error)
}

type memoryService struct {
	uowFactory    unitofwork.RepositoryFactory
	shortTermRepo contract.ShortTermStore
	embedProvider embedding.EmbeddingProvider
	llmAdapter    llm.StreamAdapter
	log           logger.ILogger

	summarizeThreshold int
	longTermLimit      int
}

func NewMemoryService(
	uowFactory unitofwork.RepositoryFactory,
	shortTermRepo contract.ShortTermStore,
	embedProvider embedding.EmbeddingProvider,
	llmAdapter llm.StreamAdapter,
	log logger.ILogger,
	summarizeThreshold int,
	longTermLimit int,
) IMemoryService {
	return &memoryService{
		uowFactory:         uowFactory,
		shortTermRepo:      shortTermRepo,
		embedProvider:      embedProvider,
		llmAdapter:         llmAdapter,
		log:                log,
		summarizeThreshold: summarizeThreshold,
		longTermLimit:      longTermLimit,
	}
}

func (s *memoryService) RecordTurn(ctx context.Context, sessionId uuid.UUID, userText, assistantText string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.PersistenceError("Failed to begin transaction", err)
	}
	defer uow.Rollback()

	now := time.Now()
	userMsg := entity.Message{
		Id:        uuid.New(),
		SessionId: sessionId,
		Role:      constant.MessageRoleUser,
		Text:      userText,
		CreatedAt: now,
	}
	assistantMsg := entity.Message{
		Id:        uuid.New(),
		SessionId: sessionId,
		Role:      constant.MessageRoleAssistant,
		Text:      assistantText,
		CreatedAt: now,
	}

	if err := uow.MessageRepository().Create(ctx, &userMsg); err != nil {
		return apperror.PersistenceError("Failed to persist user message", err)
	}
	if err := uow.MessageRepository().Create(ctx, &assistantMsg); err != nil {
		return apperror.PersistenceError("Failed to persist assistant message", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.PersistenceError("Failed to commit turn", err)
	}

	// The window is advisory; losing an entry is tolerable, losing the
	// durable row is not, hence the ordering above.
	for _, entry := range []entity.ShortTermEntry{
		{Role: constant.MessageRoleUser, Text: userText},
		{Role: constant.MessageRoleAssistant, Text: assistantText},
	} {
		if err := s.shortTermRepo.Push(ctx, sessionId, entry); err != nil {
			s.log.Warn("Memory", "Failed to push short-term entry", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
		}
	}

	s.maybeSummarize(ctx, sessionId)
	return nil
}

// maybeSummarize condenses the short-term window into a long-term memory once
// it is deep enough. Failures are logged and never surface to the caller.
func (s *memoryService) maybeSummarize(ctx context.Context, sessionId uuid.UUID) {
	window, err := s.shortTermRepo.Window(ctx, sessionId)
	if err != nil {
		s.log.Warn("Memory", "Failed to read short-term window", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return
	}
	if len(window) < s.summarizeThreshold {
		return
	}

	var sb strings.Builder
	sb.WriteString("Summarize the key facts from this conversation in one short paragraph. ")
	sb.WriteString("Keep names, preferences and decisions. Conversation:\n")
	for _, entry := range window {
		sb.WriteString(fmt.Sprintf("%s: %s\n", entry.Role, entry.Text))
	}

	summary, err := collectStream(ctx, s.llmAdapter, sb.String(), nil)
	if err != nil || strings.TrimSpace(summary) == "" {
		s.log.Warn("Memory", "Summarization failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      fmt.Sprintf("%v", err),
		})
		return
	}

	record := entity.MemoryRecord{
		Id:        uuid.New(),
		SessionId: sessionId,
		Content:   strings.TrimSpace(summary),
		Source:    constant.MemorySourceSummarization,
		CreatedAt: time.Now(),
	}

	resp, err := s.embedProvider.Generate(record.Content, constant.EmbedTaskDocument)
	if err != nil {
		s.log.Warn("Memory", "Embedding failed, skipping long-term record", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return
	}
	record.Embedding = resp.Embedding.Values

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.MemoryRepository().Create(ctx, &record); err != nil {
		s.log.Warn("Memory", "Failed to persist long-term memory", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return
	}

	s.log.Info("Memory", "Stored summarized memory", map[string]interface{}{
		"session_id": sessionId.String(),
		"length":     len(record.Content),
	})
}

func (s *memoryService) BuildPrompt(ctx context.Context, sessionId uuid.UUID, persona entity.Persona, transcript string) (string, error) {
	// Recall and the window hit independent stores, so fetch them together.
	// Both degrade gracefully: a failed embedding, search or window read
	// still yields a usable prompt.
	var (
		memories []*entity.MemoryRecord
		window   []entity.ShortTermEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		memories = s.recall(gctx, sessionId, transcript)
		return nil
	})
	g.Go(func() error {
		var err error
		if window, err = s.shortTermRepo.Window(gctx, sessionId); err != nil {
			s.log.Warn("Memory", "Failed to read short-term window", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are %s. Your conversational style is %s.\n", persona.Name, persona.Style))

	if len(memories) > 0 {
		sb.WriteString("\nRelevant things you remember:\n")
		for _, m := range memories {
			sb.WriteString(fmt.Sprintf("- %s\n", m.Content))
		}
	}

	if len(window) > 0 {
		sb.WriteString("\nRecent conversation:\n")
		for _, entry := range window {
			sb.WriteString(fmt.Sprintf("%s: %s\n", entry.Role, entry.Text))
		}
	}

	sb.WriteString(fmt.Sprintf("\nuser: %s\nassistant:", transcript))
	return sb.String(), nil
}

func (s *memoryService) recall(ctx context.Context, sessionId uuid.UUID, transcript string) []*entity.MemoryRecord {
	resp, err := s.embedProvider.Generate(transcript, constant.EmbedTaskQuery)
	if err != nil {
		s.log.Warn("Memory", "Query embedding failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	memories, err := uow.MemoryRepository().SearchSimilar(ctx, sessionId, resp.Embedding.Values, s.longTermLimit)
	if err != nil {
		s.log.Warn("Memory", "Similarity search failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return nil
	}
	return memories
}

// collectStream drains a generation stream into a single string.
func collectStream(ctx context.Context, adapter llm.StreamAdapter, prompt string, options map[string]any) (string, error) {
	var sb strings.Builder
	for chunk := range adapter.Stream(ctx, prompt, options) {
		if chunk.Err != nil {
			return sb.String(), chunk.Err
		}
		sb.WriteString(chunk.Text)
	}
	return sb.String(), nil
}
