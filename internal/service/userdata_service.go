package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ai-orchestrator-be/internal/apperror"
	"ai-orchestrator-be/internal/dto"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/repository/contract"
	"ai-orchestrator-be/internal/repository/memory"
	"ai-orchestrator-be/internal/repository/specification"
	"ai-orchestrator-be/internal/repository/unitofwork"
	"ai-orchestrator-be/pkg/nats"
)

type IUserdataService interface {
	// Erase hard-deletes everything the user owns: sessions, messages,
	// memories and cached projections.
	Erase(ctx context.Context, userId uuid.UUID) error
	// Export collects all durable user data into a portable document.
	Export(ctx context.Context, userId uuid.UUID) (*dto.ExportUserDataResponse, error)
}

type userdataService struct {
	uowFactory    unitofwork.RepositoryFactory
	stateRepo     *memory.StateRepository
	shortTermRepo contract.ShortTermStore
	publisher     *nats.Publisher
	log           logger.ILogger
}

func NewUserdataService(
	uowFactory unitofwork.RepositoryFactory,
	stateRepo *memory.StateRepository,
	shortTermRepo contract.ShortTermStore,
	publisher *nats.Publisher,
	log logger.ILogger,
) IUserdataService {
	return &userdataService{
		uowFactory:    uowFactory,
		stateRepo:     stateRepo,
		shortTermRepo: shortTermRepo,
		publisher:     publisher,
		log:           log,
	}
}

func (s *userdataService) Erase(ctx context.Context, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.SessionRepository().FindAll(ctx, specification.ByUserID{UserID: userId})
	if err != nil {
		return apperror.PersistenceError("Failed to list sessions", err)
	}

	if err := uow.Begin(ctx); err != nil {
		return apperror.PersistenceError("Failed to begin transaction", err)
	}
	defer uow.Rollback()

	// Children first; the session rows anchor the ownership subqueries.
	if err := uow.MemoryRepository().DeleteAllByUserIdUnscoped(ctx, userId); err != nil {
		return apperror.PersistenceError("Failed to erase memories", err)
	}
	if err := uow.MessageRepository().DeleteAllByUserIdUnscoped(ctx, userId); err != nil {
		return apperror.PersistenceError("Failed to erase messages", err)
	}
	if err := uow.SessionRepository().DeleteAllByUserIdUnscoped(ctx, userId); err != nil {
		return apperror.PersistenceError("Failed to erase sessions", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.PersistenceError("Failed to commit erasure", err)
	}

	for _, session := range sessions {
		s.stateRepo.Delete(session.Id)
		if err := s.shortTermRepo.Clear(ctx, session.Id); err != nil {
			s.log.Warn("Userdata", "Failed to clear short-term window", map[string]interface{}{
				"session_id": session.Id.String(),
				"error":      err.Error(),
			})
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, "userdata.erased", map[string]interface{}{
			"user_id":       userId.String(),
			"session_count": len(sessions),
		}); err != nil {
			s.log.Warn("Userdata", "Failed to publish lifecycle event", map[string]interface{}{
				"user_id": userId.String(),
				"error":   err.Error(),
			})
		}
	}

	s.log.Info("Userdata", "User data erased", map[string]interface{}{
		"user_id":       userId.String(),
		"session_count": len(sessions),
	})
	return nil
}

func (s *userdataService) Export(ctx context.Context, userId uuid.UUID) (*dto.ExportUserDataResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.SessionRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, apperror.PersistenceError("Failed to list sessions", err)
	}

	result := &dto.ExportUserDataResponse{
		UserId:     userId,
		ExportedAt: time.Now(),
		Sessions:   make([]dto.ExportedSession, len(sessions)),
	}

	// Sessions are independent, so collect them concurrently.
	g, gctx := errgroup.WithContext(ctx)
	for i, session := range sessions {
		i, session := i, session
		g.Go(func() error {
			exported := dto.ExportedSession{
				Id:        session.Id,
				Status:    session.Status,
				CreatedAt: session.CreatedAt,
				Messages:  []dto.ExportedMessage{},
				Memories:  []dto.ExportedMemory{},
			}

			messages, err := uow.MessageRepository().FindAll(gctx,
				specification.BySessionID{SessionID: session.Id},
				specification.OrderBy{Field: "created_at"},
			)
			if err != nil {
				return apperror.PersistenceError("Failed to list messages", err)
			}
			for _, msg := range messages {
				exported.Messages = append(exported.Messages, dto.ExportedMessage{
					Role:      msg.Role,
					Text:      msg.Text,
					CreatedAt: msg.CreatedAt,
				})
			}

			memories, err := uow.MemoryRepository().FindAll(gctx,
				specification.BySessionID{SessionID: session.Id},
				specification.OrderBy{Field: "created_at"},
			)
			if err != nil {
				return apperror.PersistenceError("Failed to list memories", err)
			}
			for _, record := range memories {
				exported.Memories = append(exported.Memories, dto.ExportedMemory{
					Content:   record.Content,
					Source:    record.Source,
					CreatedAt: record.CreatedAt,
				})
			}

			result.Sessions[i] = exported
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}
