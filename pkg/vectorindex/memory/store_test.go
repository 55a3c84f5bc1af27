package memory

import (
	"context"
	"testing"

	"ai-docqa-be/pkg/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_QueryOrdersByDistanceThenInsertion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "doc_1", vectorindex.Record{ID: "far", Embedding: []float32{0, 1}}))
	require.NoError(t, s.Add(ctx, "doc_1", vectorindex.Record{ID: "tie-a", Embedding: []float32{1, 0}}))
	require.NoError(t, s.Add(ctx, "doc_1", vectorindex.Record{ID: "tie-b", Embedding: []float32{2, 0}}))

	got, err := s.Query(ctx, "doc_1", []float32{1, 0}, 10, nil)
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, m := range got {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"tie-a", "tie-b", "far"}, ids)
	assert.InDelta(t, 1, got[2].Distance, 1e-6)

	got, err = s.Query(ctx, "doc_1", []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_DimensionMismatch(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "doc_1", vectorindex.Record{ID: "a", Embedding: []float32{1, 0}}))
	assert.Error(t, s.Add(ctx, "doc_1", vectorindex.Record{ID: "b", Embedding: []float32{1, 0, 0}}))
	assert.Error(t, s.Add(ctx, "doc_1", vectorindex.Record{ID: "c"}))
}

func TestStore_MissingCollection(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Query(ctx, "doc_x", []float32{1}, 3, nil)
	assert.ErrorIs(t, err, vectorindex.ErrCollectionNotFound)

	_, err = s.Count(ctx, "doc_x")
	assert.ErrorIs(t, err, vectorindex.ErrCollectionNotFound)

	assert.NoError(t, s.DeleteCollection(ctx, "doc_x"))
}

func TestStore_MetadataIsCopied(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	meta := map[string]interface{}{"user_id": "u1"}

	require.NoError(t, s.Add(ctx, "doc_1", vectorindex.Record{ID: "a", Metadata: meta, Embedding: []float32{1}}))
	meta["user_id"] = "u2"

	got, err := s.Query(ctx, "doc_1", []float32{1}, 1, vectorindex.Filter{"user_id": "u1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
