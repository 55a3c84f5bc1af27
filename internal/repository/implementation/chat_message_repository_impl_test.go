package implementation

import (
	"context"
	"testing"
	"time"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/specification"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMessageRepository_FindAllOldestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatMessageRepository(db)
	session, user := uuid.New(), uuid.New()
	score := 0.8

	rows := sqlmock.NewRows([]string{"id", "chat_session_id", "user_id", "role", "chat", "relevance_score", "sources", "created_at", "updated_at"}).
		AddRow(uuid.NewString(), session.String(), user.String(), "user", "How did revenue change?", nil, nil, time.Now(), time.Now()).
		AddRow(uuid.NewString(), session.String(), user.String(), "assistant", "It grew.", score, []byte(`["report.txt"]`), time.Now(), time.Now())
	mock.ExpectQuery(`SELECT \* FROM "chat_messages" WHERE chat_session_id = .* AND user_id = .*deleted_at" IS NULL ORDER BY created_at ASC`).
		WillReturnRows(rows)

	msgs, err := repo.FindAll(context.Background(),
		specification.ByChatSessionID{ChatSessionID: session},
		specification.UserOwnedBy{UserID: user},
	)

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.ChatRoleUser, msgs[0].Role)
	assert.Nil(t, msgs[0].RelevanceScore)
	require.NotNil(t, msgs[1].RelevanceScore)
	assert.InDelta(t, 0.8, *msgs[1].RelevanceScore, 1e-9)
	assert.Equal(t, []string{"report.txt"}, msgs[1].Sources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatMessageRepository_ExplicitOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatMessageRepository(db)

	mock.ExpectQuery(`ORDER BY "created_at" DESC LIMIT`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	msgs, err := repo.FindAll(context.Background(),
		specification.ByChatSessionID{ChatSessionID: uuid.New()},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: 6},
	)

	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatMessageRepository_CountBySession(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatMessageRepository(db)
	busy, quiet, empty := uuid.New(), uuid.New(), uuid.New()

	rows := sqlmock.NewRows([]string{"chat_session_id", "total"}).
		AddRow(busy.String(), 6).
		AddRow(quiet.String(), 2)
	mock.ExpectQuery(`SELECT chat_session_id, COUNT\(\*\) AS total FROM "chat_messages" WHERE chat_session_id IN .*GROUP BY .*chat_session_id`).
		WillReturnRows(rows)

	counts, err := repo.CountBySession(context.Background(), []uuid.UUID{busy, quiet, empty})

	require.NoError(t, err)
	assert.Equal(t, int64(6), counts[busy])
	assert.Equal(t, int64(2), counts[quiet])
	assert.Zero(t, counts[empty])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatMessageRepository_CountBySessionWithoutIds(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatMessageRepository(db)

	counts, err := repo.CountBySession(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
