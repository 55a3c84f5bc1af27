package unitofwork

import (
	"context"
	"errors"
	"testing"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/memory"
	"ai-docqa-be/internal/repository/specification"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestUnitOfWork_CommitRunsRepositoriesInTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewRepositoryFactory(db).NewUnitOfWork(context.Background())
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "chat_messages" SET "deleted_at"`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.ChatMessageRepository().DeleteByChatSessionId(ctx, uuid.New()))
	require.NoError(t, uow.Commit())

	assert.Error(t, uow.Rollback(), "nothing is open after commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_RollbackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "chat_messages" SET "deleted_at"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	require.NoError(t, uow.Begin(ctx))
	assert.Error(t, uow.ChatMessageRepository().DeleteByChatSessionId(ctx, uuid.New()))
	require.NoError(t, uow.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_StateErrors(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	assert.Error(t, uow.Commit())
	assert.Error(t, uow.Rollback())

	mock.ExpectBegin()
	require.NoError(t, uow.Begin(ctx))
	assert.Error(t, uow.Begin(ctx), "nested transactions are not supported")
}

func TestMemoryRepositoryFactory_SharesRepositories(t *testing.T) {
	ctx := context.Background()
	factory := NewMemoryRepositoryFactory(memory.NewDocumentRepository(), memory.NewChatSessionRepository(), memory.NewChatMessageRepository())
	first := factory.NewUnitOfWork(ctx)
	second := factory.NewUnitOfWork(ctx)

	doc := &entity.Document{Id: uuid.New(), UserId: uuid.New(), Filename: "a.txt", Status: entity.DocumentStatusUploaded}
	require.NoError(t, first.Begin(ctx))
	require.NoError(t, first.DocumentRepository().Create(ctx, doc))
	require.NoError(t, first.Commit())
	assert.NoError(t, first.Rollback())

	got, err := second.DocumentRepository().FindOne(ctx, specification.ByID{ID: doc.Id})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a.txt", got.Filename)
}
