package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"ai-docqa-be/internal/model"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/pkg/vectorindex"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Metadata keys that live in their own column rather than in the JSON blob.
var chunkColumns = map[string]string{
	"chunk_index": "chunk_index",
}

var metadataKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type DocumentChunkRepositoryImpl struct {
	db *gorm.DB
}

func NewDocumentChunkRepository(db *gorm.DB) contract.DocumentChunkRepository {
	return &DocumentChunkRepositoryImpl{db: db}
}

func (r *DocumentChunkRepositoryImpl) Add(ctx context.Context, collection string, rec vectorindex.Record) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("document chunk id %q: %w", rec.ID, err)
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode chunk metadata: %w", err)
	}

	m := &model.DocumentChunk{
		Id:         id,
		Collection: collection,
		Content:    rec.Text,
		Embedding:  pgvector.NewVector(rec.Embedding),
		Metadata:   datatypes.JSON(meta),
		ChunkIndex: chunkIndexOf(rec.Metadata),
	}
	return r.db.WithContext(ctx).Create(m).Error
}

// Query orders by pgvector's cosine distance operator, which is already the
// distance the index expects.
func (r *DocumentChunkRepositoryImpl) Query(ctx context.Context, collection string, vector []float32, k int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	type result struct {
		model.DocumentChunk
		Distance float64
	}
	var results []result

	query := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, embedding <=> ? AS distance", pgvector.NewVector(vector)).
		Where("collection = ?", collection)

	query, err := applyChunkFilter(query, filter)
	if err != nil {
		return nil, err
	}

	err = query.
		Order("distance ASC").
		Order("chunk_index ASC").
		Limit(k).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	matches := make([]vectorindex.Match, len(results))
	for i, res := range results {
		matches[i] = vectorindex.Match{
			ID:       res.Id.String(),
			Text:     res.Content,
			Metadata: decodeMetadata(res.Metadata),
			Distance: res.Distance,
		}
	}
	return matches, nil
}

func (r *DocumentChunkRepositoryImpl) Delete(ctx context.Context, collection string, ids []string) error {
	return r.db.WithContext(ctx).
		Where("collection = ? AND id IN ?", collection, ids).
		Delete(&model.DocumentChunk{}).Error
}

func (r *DocumentChunkRepositoryImpl) DeleteCollection(ctx context.Context, collection string) error {
	return r.db.WithContext(ctx).
		Where("collection = ?", collection).
		Delete(&model.DocumentChunk{}).Error
}

func (r *DocumentChunkRepositoryImpl) Count(ctx context.Context, collection string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.DocumentChunk{}).
		Where("collection = ?", collection).
		Count(&count).Error
	return int(count), err
}

func (r *DocumentChunkRepositoryImpl) ListByCollection(ctx context.Context, collection string, limit int) ([]vectorindex.Record, error) {
	var models []*model.DocumentChunk
	query := r.db.WithContext(ctx).Where("collection = ?", collection).Order("chunk_index ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	records := make([]vectorindex.Record, len(models))
	for i, m := range models {
		records[i] = vectorindex.Record{
			ID:        m.Id.String(),
			Text:      m.Content,
			Metadata:  decodeMetadata(m.Metadata),
			Embedding: m.Embedding.Slice(),
		}
	}
	return records, nil
}

func applyChunkFilter(db *gorm.DB, filter vectorindex.Filter) (*gorm.DB, error) {
	for _, key := range filter.Keys() {
		values, _ := vectorindex.Values(filter[key])
		if column, ok := chunkColumns[key]; ok {
			db = db.Where(column+" IN ?", values)
			continue
		}
		if !metadataKeyPattern.MatchString(key) {
			return nil, fmt.Errorf("invalid metadata filter key %q", key)
		}
		strs := make([]string, len(values))
		for i, v := range values {
			strs[i] = fmt.Sprint(v)
		}
		db = db.Where(fmt.Sprintf("metadata->>'%s' IN ?", key), strs)
	}
	return db, nil
}

func chunkIndexOf(meta map[string]interface{}) int {
	switch v := meta["chunk_index"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func decodeMetadata(raw datatypes.JSON) map[string]interface{} {
	meta := map[string]interface{}{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &meta)
	}
	return meta
}
