package dto

import (
	"time"

	"github.com/google/uuid"
)

type AskRequest struct {
	ChatSessionId uuid.UUID   `json:"chat_session_id"`
	Question      string      `json:"question" validate:"required,max=2000"`
	DocumentIds   []uuid.UUID `json:"document_ids,omitempty" validate:"max=20"`
	TopK          int         `json:"top_k,omitempty" validate:"omitempty,min=1,max=20"`
}

type ChatMessageResponse struct {
	Id             uuid.UUID `json:"id"`
	Role           string    `json:"role"`
	Chat           string    `json:"chat"`
	RelevanceScore *float64  `json:"relevance_score,omitempty"`
	Sources        []string  `json:"sources,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type AskResponse struct {
	ChatSessionId uuid.UUID            `json:"chat_session_id"`
	Sent          *ChatMessageResponse `json:"sent"`
	Reply         *ChatMessageResponse `json:"reply"`
	UsedFallback  bool                 `json:"used_fallback"`
}

type ChatHistoryResponse struct {
	ChatSessionId uuid.UUID              `json:"chat_session_id"`
	Messages      []*ChatMessageResponse `json:"messages"`
}

type CreateChatSessionRequest struct {
	Title       string      `json:"title" validate:"required,max=200"`
	DocumentIds []uuid.UUID `json:"document_ids,omitempty" validate:"max=20"`
}

type ChatSessionResponse struct {
	Id           uuid.UUID   `json:"id"`
	Title        string      `json:"title"`
	DocumentIds  []uuid.UUID `json:"document_ids,omitempty"`
	MessageCount int64       `json:"message_count"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type ListChatSessionsResponse struct {
	Sessions []*ChatSessionResponse `json:"sessions"`
}
