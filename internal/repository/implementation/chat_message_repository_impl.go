package implementation

import (
	"context"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/mapper"
	"ai-docqa-be/internal/model"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

// applySpecifications sorts turns oldest first unless an OrderBy is given.
func (r *ChatMessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	ordered := false
	for _, spec := range specs {
		if _, ok := spec.(specification.OrderBy); ok {
			ordered = true
		}
		db = spec.Apply(db)
	}
	if !ordered {
		db = db.Order("created_at ASC")
	}
	return db
}

func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage) error {
	m := r.mapper.ChatMessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.ChatMessageToEntity(m)
	return nil
}

func (r *ChatMessageRepositoryImpl) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("chat_session_id = ?", sessionId).Delete(&model.ChatMessage{}).Error
}

func (r *ChatMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatMessage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatMessageToEntity(m)
	}
	return entities, nil
}

func (r *ChatMessageRepositoryImpl) CountBySession(ctx context.Context, sessionIds []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(sessionIds))
	if len(sessionIds) == 0 {
		return counts, nil
	}

	var rows []struct {
		ChatSessionId uuid.UUID
		Total         int64
	}
	err := r.db.WithContext(ctx).Model(&model.ChatMessage{}).
		Select("chat_session_id, COUNT(*) AS total").
		Where("chat_session_id IN ?", sessionIds).
		Group("chat_session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ChatSessionId] = row.Total
	}
	return counts, nil
}
