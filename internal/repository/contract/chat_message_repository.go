package contract

import (
	"context"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	// CountBySession returns the number of messages in each of the given
	// sessions; sessions without messages are absent from the map.
	CountBySession(ctx context.Context, sessionIds []uuid.UUID) (map[uuid.UUID]int64, error)
}
