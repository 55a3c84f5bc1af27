package unitofwork

import (
	"context"

	"ai-docqa-be/internal/repository/contract"

	"gorm.io/gorm"
)

type RepositoryFactoryImpl struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &RepositoryFactoryImpl{
		db: db,
	}
}

// A unit of work is short lived, one per request.
func (f *RepositoryFactoryImpl) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return NewUnitOfWork(f.db)
}

type memoryFactory struct {
	documents contract.DocumentRepository
	sessions  contract.ChatSessionRepository
	messages  contract.ChatMessageRepository
}

// NewMemoryRepositoryFactory hands out units of work over shared in-process
// repositories. Begin, Commit and Rollback are no-ops there: writes apply
// immediately and are not undone.
func NewMemoryRepositoryFactory(
	documents contract.DocumentRepository,
	sessions contract.ChatSessionRepository,
	messages contract.ChatMessageRepository,
) RepositoryFactory {
	return &memoryFactory{documents: documents, sessions: sessions, messages: messages}
}

func (f *memoryFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return &memoryUnitOfWork{factory: f}
}

type memoryUnitOfWork struct {
	factory *memoryFactory
}

func (u *memoryUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *memoryUnitOfWork) Commit() error                   { return nil }
func (u *memoryUnitOfWork) Rollback() error                 { return nil }

func (u *memoryUnitOfWork) DocumentRepository() contract.DocumentRepository {
	return u.factory.documents
}

func (u *memoryUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository {
	return u.factory.sessions
}

func (u *memoryUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository {
	return u.factory.messages
}
