package unitofwork

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/specification"
	"ai-docqa-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against the database in DB_CONNECTION_STRING after cmd/migrate.
func TestGormConnection(t *testing.T) {
	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())

	uow := NewRepositoryFactory(gormDB).NewUnitOfWork(context.Background())
	ctx := context.Background()
	userId := uuid.New()

	t.Run("document round trip", func(t *testing.T) {
		doc := &entity.Document{
			Id:       uuid.New(),
			UserId:   userId,
			Filename: "integration.txt",
			FileType: "txt",
			FileSize: 12,
			Status:   entity.DocumentStatusUploaded,
		}
		require.NoError(t, uow.DocumentRepository().Create(ctx, doc))
		t.Cleanup(func() { _ = uow.DocumentRepository().Delete(ctx, doc.Id) })

		got, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: doc.Id}, specification.UserOwnedBy{UserID: userId})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, entity.DocumentStatusUploaded, got.Status)
	})

	t.Run("chat turns in one transaction", func(t *testing.T) {
		now := time.Now()
		session := &entity.ChatSession{Id: uuid.New(), UserId: userId, Title: "integration"}
		sessionId := session.Id

		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()
		require.NoError(t, uow.ChatSessionRepository().Create(ctx, session))
		for i, role := range []string{entity.ChatRoleUser, entity.ChatRoleAssistant} {
			err := uow.ChatMessageRepository().Create(ctx, &entity.ChatMessage{
				Id:            uuid.New(),
				ChatSessionId: sessionId,
				UserId:        userId,
				Role:          role,
				Chat:          "integration",
				CreatedAt:     now.Add(time.Duration(i) * time.Millisecond),
			})
			require.NoError(t, err)
		}
		require.NoError(t, uow.ChatSessionRepository().Touch(ctx, sessionId))
		require.NoError(t, uow.Commit())
		t.Cleanup(func() {
			_ = uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId)
			_ = uow.ChatSessionRepository().Delete(ctx, sessionId)
		})

		counts, err := uow.ChatMessageRepository().CountBySession(ctx, []uuid.UUID{sessionId})
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts[sessionId])

		msgs, err := uow.ChatMessageRepository().FindAll(ctx,
			specification.ByChatSessionID{ChatSessionID: sessionId},
			specification.OrderBy{Field: "created_at"},
		)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, entity.ChatRoleAssistant, msgs[1].Role)
	})
}
