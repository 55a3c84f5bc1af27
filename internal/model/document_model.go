package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId       uuid.UUID      `gorm:"type:uuid;not null;index"`
	Filename     string         `gorm:"type:varchar(255);not null"`
	FileType     string         `gorm:"type:varchar(16);not null"`
	FileSize     int64          `gorm:"not null;default:0"`
	StoragePath  string         `gorm:"type:text"`
	Status       string         `gorm:"type:varchar(32);not null;index"`
	ChunkCount   int            `gorm:"not null;default:0"`
	ErrorMessage string         `gorm:"type:text"`
	ProcessedAt  *time.Time
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
