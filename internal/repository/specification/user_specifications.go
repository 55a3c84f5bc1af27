package specification

import (
	"gorm.io/gorm"

	"github.com/google/uuid"
)

// UserOwnedBy restricts rows to one owner. Every user-facing query applies it.
type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}
