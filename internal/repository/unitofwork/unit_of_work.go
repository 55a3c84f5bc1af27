package unitofwork

import (
	"context"

	"ai-docqa-be/internal/repository/contract"
)

// UnitOfWork groups repository writes that must land together. Rollback
// after Commit returns an error and changes nothing.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
}

// RepositoryFactory opens a fresh unit of work per request.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
