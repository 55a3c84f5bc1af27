package vectorindex_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"ai-docqa-be/pkg/embedding/embeddingtest"
	"ai-docqa-be/pkg/ragerr"
	"ai-docqa-be/pkg/vectorindex"
	"ai-docqa-be/pkg/vectorindex/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevance(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{0.3, 0.7},
		{1.0, 0},
		{2.5, 0},
		{-0.2, 1},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		got := vectorindex.Relevance(tt.distance)
		assert.InDelta(t, tt.want, got, 1e-9, "distance %v", tt.distance)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestFilter_Matches(t *testing.T) {
	meta := map[string]interface{}{"user_id": "u1", "chunk_index": float64(3), "file_type": "csv"}

	tests := []struct {
		name   string
		filter vectorindex.Filter
		want   bool
	}{
		{"equality", vectorindex.Filter{"user_id": "u1"}, true},
		{"equality mismatch", vectorindex.Filter{"user_id": "u2"}, false},
		{"int matches json float", vectorindex.Filter{"chunk_index": 3}, true},
		{"inclusion", vectorindex.Filter{"file_type": []string{"txt", "csv"}}, true},
		{"inclusion miss", vectorindex.Filter{"file_type": []string{"pdf"}}, false},
		{"missing key", vectorindex.Filter{"filename": "a.csv"}, false},
		{"all keys must match", vectorindex.Filter{"user_id": "u1", "file_type": "txt"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(meta))
		})
	}
}

func TestCollectionName(t *testing.T) {
	name := vectorindex.CollectionName("42")
	assert.Equal(t, "doc_42", name)

	id, ok := vectorindex.DocumentID(name)
	assert.True(t, ok)
	assert.Equal(t, "42", id)

	_, ok = vectorindex.DocumentID("notes")
	assert.False(t, ok)
}

func newIndex(provider *embeddingtest.TopicProvider) (*vectorindex.Index, *memory.Store) {
	store := memory.NewStore()
	return vectorindex.NewIndex(store, provider, nil), store
}

func TestIndex_QueryMissingCollectionIsEmpty(t *testing.T) {
	idx, _ := newIndex(embeddingtest.NewTopicProvider("a"))

	res, err := idx.Query(context.Background(), "doc_missing", "anything", 5, nil)

	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestIndex_AddQueryFilter(t *testing.T) {
	idx, store := newIndex(embeddingtest.NewTopicProvider("revenue", "hiring"))
	ctx := context.Background()
	c := vectorindex.CollectionName("1")

	id1, err := idx.Add(ctx, c, "Revenue grew 12 percent.", map[string]interface{}{"user_id": "u1", "chunk_index": 0})
	require.NoError(t, err)
	_, err = idx.Add(ctx, c, "Hiring slowed in Q3.", map[string]interface{}{"user_id": "u1", "chunk_index": 1})
	require.NoError(t, err)
	_, err = idx.Add(ctx, c, "Revenue for another tenant.", map[string]interface{}{"user_id": "u2", "chunk_index": 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc_1"}, store.Collections())

	res, err := idx.Query(ctx, c, "how did revenue change?", 5, vectorindex.Filter{"user_id": "u1"})
	require.NoError(t, err)

	require.Len(t, res, 2)
	assert.Equal(t, id1, res[0].ID)
	assert.InDelta(t, 0, res[0].Distance, 1e-9)
	assert.InDelta(t, 1, res[0].Relevance, 1e-9)
	assert.LessOrEqual(t, res[0].Distance, res[1].Distance)
	assert.Equal(t, "Hiring slowed in Q3.", res[1].Text)

	res, err = idx.Query(ctx, c, "revenue", 1, nil)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestIndex_AddPropagatesEmbeddingError(t *testing.T) {
	provider := embeddingtest.NewTopicProvider("a")
	provider.FailWhen = func(call int, text string) bool { return true }
	idx, store := newIndex(provider)

	_, err := idx.Add(context.Background(), "doc_1", "text", nil)

	assert.ErrorIs(t, err, ragerr.ErrEmbedding)
	assert.Empty(t, store.Collections())
}

func TestIndex_DeleteLastMemberDropsCollection(t *testing.T) {
	idx, store := newIndex(embeddingtest.NewTopicProvider("a"))
	ctx := context.Background()

	id1, err := idx.Add(ctx, "doc_9", "a one", nil)
	require.NoError(t, err)
	id2, err := idx.Add(ctx, "doc_9", "a two", nil)
	require.NoError(t, err)

	require.NoError(t, idx.Delete(ctx, "doc_9", []string{id1}))
	n, err := idx.Count(ctx, "doc_9")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, idx.Delete(ctx, "doc_9", []string{id2}))
	assert.Empty(t, store.Collections())

	require.NoError(t, idx.DeleteCollection(ctx, "doc_9"))
	n, err = idx.Count(ctx, "doc_9")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

type brokenStore struct{ *memory.Store }

func (b *brokenStore) Query(ctx context.Context, collection string, vector []float32, k int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	return nil, errors.New("shard offline")
}

func TestIndex_QueryStoreErrorIsIndexError(t *testing.T) {
	idx := vectorindex.NewIndex(&brokenStore{Store: memory.NewStore()}, embeddingtest.NewTopicProvider("a"), nil)

	_, err := idx.Query(context.Background(), "doc_1", "q", 3, nil)

	assert.ErrorIs(t, err, ragerr.ErrIndex)
}
