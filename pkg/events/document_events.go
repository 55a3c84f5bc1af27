package events

import (
	"fmt"
	"time"
)

const TypeDocumentStatus = "document.status"

// DocumentStatusChanged is emitted on every processing state transition.
type DocumentStatusChanged struct {
	DocumentID string
	UserID     string
	Filename   string
	Status     string
	ChunkCount int
	Error      string
	OccurredAt time.Time
}

func (e DocumentStatusChanged) EventType() string {
	return TypeDocumentStatus
}

func (e DocumentStatusChanged) Payload() map[string]interface{} {
	return map[string]interface{}{
		"document_id": e.DocumentID,
		"user_id":     e.UserID,
		"filename":    e.Filename,
		"status":      e.Status,
		"chunk_count": e.ChunkCount,
		"error":       e.Error,
	}
}

func (e DocumentStatusChanged) Timestamp() time.Time {
	return e.OccurredAt
}

// DocumentStatusFromEvent rebuilds the typed event from a decoded payload.
func DocumentStatusFromEvent(e Event) (DocumentStatusChanged, error) {
	if e.EventType() != TypeDocumentStatus {
		return DocumentStatusChanged{}, fmt.Errorf("unexpected event type %q", e.EventType())
	}
	p := e.Payload()
	out := DocumentStatusChanged{OccurredAt: e.Timestamp()}
	out.DocumentID, _ = p["document_id"].(string)
	out.UserID, _ = p["user_id"].(string)
	out.Filename, _ = p["filename"].(string)
	out.Status, _ = p["status"].(string)
	out.Error, _ = p["error"].(string)
	switch n := p["chunk_count"].(type) {
	case float64:
		out.ChunkCount = int(n)
	case int:
		out.ChunkCount = n
	}
	if out.DocumentID == "" || out.Status == "" {
		return DocumentStatusChanged{}, fmt.Errorf("document status event missing document_id or status")
	}
	return out, nil
}
