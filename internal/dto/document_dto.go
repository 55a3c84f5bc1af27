package dto

import (
	"time"

	"github.com/google/uuid"
)

// ProcessDocumentMessage is the ingestion job queued on upload and reprocess.
type ProcessDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
	Reprocess  bool      `json:"reprocess"`
}

type UploadDocumentResponse struct {
	Id       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	FileType string    `json:"file_type"`
	FileSize int64     `json:"file_size"`
	Status   string    `json:"status"`
}

type ListDocumentsRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=UPLOADED PROCESSING PROCESSED PARTIALLY_PROCESSED FAILED CANCELLED"`
	FileType string `query:"file_type" validate:"omitempty,oneof=txt csv pdf"`
	Search   string `query:"q" validate:"omitempty,max=255"`
	Sort     string `query:"sort" validate:"omitempty,oneof=created_at updated_at filename status chunk_count file_size"`
	Order    string `query:"order" validate:"omitempty,oneof=asc desc"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type DocumentResponse struct {
	Id           uuid.UUID  `json:"id"`
	Filename     string     `json:"filename"`
	FileType     string     `json:"file_type"`
	FileSize     int64      `json:"file_size"`
	Status       string     `json:"status"`
	ChunkCount   int        `json:"chunk_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type ListDocumentsResponse struct {
	Documents []*DocumentResponse `json:"documents"`
	Total     int64               `json:"total"`
	Page      int                 `json:"page"`
	Limit     int                 `json:"limit"`
}

// CollectionStats compares the recorded chunk count with what the index holds.
type CollectionStats struct {
	Collection   string `json:"collection"`
	IndexedCount int    `json:"indexed_count"`
	InSync       bool   `json:"in_sync"`
}

type ShowDocumentResponse struct {
	DocumentResponse
	Stats CollectionStats `json:"stats"`
}
