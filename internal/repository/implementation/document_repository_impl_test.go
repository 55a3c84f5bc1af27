package implementation

import (
	"context"
	"testing"
	"time"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/specification"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRepository_FindOne(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)
	id, userID := uuid.New(), uuid.New()

	rows := sqlmock.NewRows([]string{"id", "user_id", "filename", "file_type", "file_size", "status", "chunk_count", "error_message", "created_at", "updated_at"}).
		AddRow(id.String(), userID.String(), "sales.csv", "csv", 120, "PARTIALLY_PROCESSED", 4, "indexed 4/5 chunks: boom", time.Now(), time.Now())
	mock.ExpectQuery(`SELECT \* FROM "documents" WHERE id = .* AND user_id = .*deleted_at" IS NULL`).WillReturnRows(rows)

	doc, err := repo.FindOne(context.Background(), specification.ByID{ID: id}, specification.UserOwnedBy{UserID: userID})

	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, entity.DocumentStatusPartiallyProcessed, doc.Status)
	assert.Equal(t, 4, doc.ChunkCount)
	assert.Equal(t, "sales.csv", doc.Filename)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_FindOneNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "documents"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	doc, err := repo.FindOne(context.Background(), specification.ByID{ID: uuid.New()})

	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestDocumentRepository_UpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		stale    bool
		want     bool
	}{
		{"claimed", 1, false, true},
		{"lost race", 0, false, false},
		{"stale reclaim", 1, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewDocumentRepository(db)
			doc := &entity.Document{Id: uuid.New(), Status: entity.DocumentStatusProcessing}
			guard := contract.StatusGuard{From: []entity.DocumentStatus{entity.DocumentStatusUploaded}}
			pattern := `UPDATE "documents" SET .* WHERE id = .* AND status IN .*deleted_at" IS NULL`
			if tt.stale {
				guard.StaleBefore = time.Now().Add(-time.Hour)
				pattern = `UPDATE "documents" SET .* WHERE id = .* AND status IN .* AND updated_at < .*deleted_at" IS NULL`
			}

			mock.ExpectBegin()
			mock.ExpectExec(pattern).WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()

			applied, err := repo.UpdateStatus(context.Background(), doc, guard)

			require.NoError(t, err)
			assert.Equal(t, tt.want, applied)
			assert.Equal(t, tt.want, doc.UpdatedAt != nil)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDocumentRepository_UpdateStatusWithoutGuard(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)

	applied, err := repo.UpdateStatus(context.Background(), &entity.Document{Id: uuid.New()}, contract.StatusGuard{})

	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
