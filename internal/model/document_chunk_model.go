package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// DocumentChunk is one row of the pgvector store. Collection holds the
// doc_<id> name so several backends can share the same addressing. The
// vector column is unconstrained so the embedding provider decides the
// dimension.
type DocumentChunk struct {
	Id         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Collection string          `gorm:"type:varchar(64);not null;index"`
	Content    string          `gorm:"type:text;not null"`
	Embedding  pgvector.Vector `gorm:"type:vector"`
	Metadata   datatypes.JSON  `gorm:"type:jsonb"`
	ChunkIndex int             `gorm:"default:0"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
