// Package vectorindex stores chunk embeddings in per-document collections and
// answers filtered nearest-neighbour queries over them.
package vectorindex

import (
	"context"
	"errors"
	"strings"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/ragerr"

	"github.com/google/uuid"
)

const collectionPrefix = "doc_"

// ErrCollectionNotFound may be returned by a Store for unknown collections.
// Index turns it into an empty result.
var ErrCollectionNotFound = errors.New("vectorindex: collection not found")

// CollectionName is the collection holding a document's chunks.
func CollectionName(documentID string) string {
	return collectionPrefix + documentID
}

// DocumentID reverses CollectionName.
func DocumentID(collection string) (string, bool) {
	if !strings.HasPrefix(collection, collectionPrefix) {
		return "", false
	}
	return strings.TrimPrefix(collection, collectionPrefix), true
}

type Record struct {
	ID        string
	Text      string
	Metadata  map[string]interface{}
	Embedding []float32
}

// Match is a raw backend hit. Distance is a non-negative cosine distance;
// backends convert their native score before returning.
type Match struct {
	ID       string
	Text     string
	Metadata map[string]interface{}
	Distance float64
}

type SearchResult struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"chunk_text"`
	Metadata  map[string]interface{} `json:"metadata"`
	Distance  float64                `json:"distance"`
	Relevance float64                `json:"relevance"`
}

// Store is a vector backend addressing collections by name. Add creates the
// collection on first use. Query on an unknown collection returns no matches
// or ErrCollectionNotFound.
type Store interface {
	Add(ctx context.Context, collection string, rec Record) error
	Query(ctx context.Context, collection string, vector []float32, k int, filter Filter) ([]Match, error)
	Delete(ctx context.Context, collection string, ids []string) error
	DeleteCollection(ctx context.Context, collection string) error
	Count(ctx context.Context, collection string) (int, error)
}

type Index struct {
	store    Store
	provider embedding.EmbeddingProvider
	logger   logger.ILogger
}

func NewIndex(store Store, provider embedding.EmbeddingProvider, log logger.ILogger) *Index {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Index{store: store, provider: provider, logger: log}
}

// Add embeds text and stores it. Embedding failures come back as
// EmbeddingError, storage failures as IndexError.
func (i *Index) Add(ctx context.Context, collection, text string, metadata map[string]interface{}) (string, error) {
	vec, err := i.provider.Generate(ctx, text, embedding.TaskRetrievalDocument)
	if err != nil {
		if ragerr.KindOf(err) != ragerr.KindEmbedding {
			err = ragerr.Embedding("vectorindex.add", err)
		}
		return "", err
	}
	return i.AddWithEmbedding(ctx, collection, text, metadata, vec)
}

func (i *Index) AddWithEmbedding(ctx context.Context, collection, text string, metadata map[string]interface{}, vec []float32) (string, error) {
	rec := Record{
		ID:        uuid.NewString(),
		Text:      text,
		Metadata:  metadata,
		Embedding: vec,
	}
	if err := i.store.Add(ctx, collection, rec); err != nil {
		return "", ragerr.Index("vectorindex.add", err)
	}
	return rec.ID, nil
}

func (i *Index) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := i.provider.Generate(ctx, text, embedding.TaskRetrievalQuery)
	if err != nil {
		if ragerr.KindOf(err) != ragerr.KindEmbedding {
			err = ragerr.Embedding("vectorindex.query", err)
		}
		return nil, err
	}
	return vec, nil
}

// Query embeds queryText and searches one collection. A missing or empty
// collection yields an empty slice and no error.
func (i *Index) Query(ctx context.Context, collection, queryText string, k int, filter Filter) ([]SearchResult, error) {
	vec, err := i.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, err
	}
	return i.QueryVector(ctx, collection, vec, k, filter)
}

func (i *Index) QueryVector(ctx context.Context, collection string, vec []float32, k int, filter Filter) ([]SearchResult, error) {
	if k <= 0 {
		return []SearchResult{}, nil
	}
	matches, err := i.store.Query(ctx, collection, vec, k, filter)
	if errors.Is(err, ErrCollectionNotFound) {
		return []SearchResult{}, nil
	}
	if err != nil {
		return nil, ragerr.Index("vectorindex.query", err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		d := m.Distance
		if d < 0 {
			d = 0
		}
		results = append(results, SearchResult{
			ID:        m.ID,
			Text:      m.Text,
			Metadata:  m.Metadata,
			Distance:  d,
			Relevance: Relevance(d),
		})
	}
	return results, nil
}

// Delete removes ids and drops the collection once it is empty.
func (i *Index) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := i.store.Delete(ctx, collection, ids); err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return nil
		}
		return ragerr.Index("vectorindex.delete", err)
	}

	n, err := i.store.Count(ctx, collection)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return nil
		}
		return ragerr.Index("vectorindex.delete", err)
	}
	if n == 0 {
		i.logger.Debug("VectorIndex", "Dropping empty collection", map[string]interface{}{"collection": collection})
		return i.DeleteCollection(ctx, collection)
	}
	return nil
}

// DeleteCollection is idempotent.
func (i *Index) DeleteCollection(ctx context.Context, collection string) error {
	err := i.store.DeleteCollection(ctx, collection)
	if err != nil && !errors.Is(err, ErrCollectionNotFound) {
		return ragerr.Index("vectorindex.delete_collection", err)
	}
	return nil
}

func (i *Index) Count(ctx context.Context, collection string) (int, error) {
	n, err := i.store.Count(ctx, collection)
	if errors.Is(err, ErrCollectionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, ragerr.Index("vectorindex.count", err)
	}
	return n, nil
}
