package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusUploaded           DocumentStatus = "UPLOADED"
	DocumentStatusProcessing         DocumentStatus = "PROCESSING"
	DocumentStatusProcessed          DocumentStatus = "PROCESSED"
	DocumentStatusPartiallyProcessed DocumentStatus = "PARTIALLY_PROCESSED"
	DocumentStatusFailed             DocumentStatus = "FAILED"
	DocumentStatusCancelled          DocumentStatus = "CANCELLED"
)

// TerminalStatuses are the states a finished run leaves a document in.
var TerminalStatuses = []DocumentStatus{
	DocumentStatusProcessed,
	DocumentStatusPartiallyProcessed,
	DocumentStatusFailed,
	DocumentStatusCancelled,
}

// IsTerminal reports whether a background run has finished with this status.
func (s DocumentStatus) IsTerminal() bool {
	switch s {
	case DocumentStatusProcessed, DocumentStatusPartiallyProcessed, DocumentStatusFailed, DocumentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo encodes the processing state machine. UPLOADED is the
// queued state: a worker claims it into PROCESSING, and a reprocess puts a
// terminal document back into it. A PROCESSING document returns to UPLOADED
// only when its run has stalled and is reclaimed.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case DocumentStatusUploaded:
		return next == DocumentStatusProcessing || next == DocumentStatusCancelled
	case DocumentStatusProcessing:
		return next.IsTerminal() || next == DocumentStatusUploaded
	default:
		return s.IsTerminal() && next == DocumentStatusUploaded
	}
}

type Document struct {
	Id           uuid.UUID
	UserId       uuid.UUID
	Filename     string
	FileType     string
	FileSize     int64
	StoragePath  string
	Status       DocumentStatus
	ChunkCount   int
	ErrorMessage string
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
	IsDeleted    bool
}
