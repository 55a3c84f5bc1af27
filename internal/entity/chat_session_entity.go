package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession groups the turns of one conversation. DocumentIds, when set,
// scope every question in the session to those documents.
type ChatSession struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	Title       string
	DocumentIds []uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
	IsDeleted   bool
}
