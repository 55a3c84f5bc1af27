package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ChatMessage struct {
	Id             uuid.UUID
	ChatSessionId  uuid.UUID
	UserId         uuid.UUID
	Role           string
	Chat           string
	RelevanceScore *float64
	Sources        []string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
