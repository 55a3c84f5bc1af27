package contract

import (
	"context"

	"ai-docqa-be/pkg/vectorindex"
)

// DocumentChunkRepository is the pgvector-backed vector store. Beyond the
// Store contract it can list a collection in chunk order.
type DocumentChunkRepository interface {
	vectorindex.Store
	ListByCollection(ctx context.Context, collection string, limit int) ([]vectorindex.Record, error)
}
