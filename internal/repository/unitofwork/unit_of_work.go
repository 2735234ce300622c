package unitofwork

import (
	"context"

	"ai-orchestrator-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	MessageRepository() contract.MessageRepository
	MemoryRepository() contract.MemoryRepository
}
