package qdrant

import (
	"context"
	"errors"
	"testing"

	"ai-docqa-be/pkg/vectorindex"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakePoints struct {
	upserts  []*pb.UpsertPoints
	deletes  []*pb.DeletePoints
	search   *pb.SearchPoints
	searchFn func() (*pb.SearchResponse, error)
	count    uint64
	countErr error
}

func (f *fakePoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.upserts = append(f.upserts, in)
	return &pb.PointsOperationResponse{}, nil
}

func (f *fakePoints) Delete(_ context.Context, in *pb.DeletePoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.deletes = append(f.deletes, in)
	return &pb.PointsOperationResponse{}, nil
}

func (f *fakePoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	f.search = in
	return f.searchFn()
}

func (f *fakePoints) Count(_ context.Context, _ *pb.CountPoints, _ ...grpc.CallOption) (*pb.CountResponse, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	return &pb.CountResponse{Result: &pb.CountResult{Count: f.count}}, nil
}

type fakeCollections struct {
	existing []string
	created  []*pb.CreateCollection
	lists    int
	deleted  []string
	deleteFn func() error
}

func (f *fakeCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	f.lists++
	resp := &pb.ListCollectionsResponse{}
	for _, name := range f.existing {
		resp.Collections = append(resp.Collections, &pb.CollectionDescription{Name: name})
	}
	return resp, nil
}

func (f *fakeCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.created = append(f.created, in)
	f.existing = append(f.existing, in.CollectionName)
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func (f *fakeCollections) Delete(_ context.Context, in *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.deleted = append(f.deleted, in.CollectionName)
	if f.deleteFn != nil {
		return nil, f.deleteFn()
	}
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func TestAdd_CreatesCollectionOnce(t *testing.T) {
	points, cols := &fakePoints{}, &fakeCollections{}
	s := NewWithClients(points, cols)
	ctx := context.Background()

	rec := vectorindex.Record{ID: "7b0c3c1e-3c52-4a43-9a57-0f1f8f9a1a01", Text: "Row 1", Metadata: map[string]interface{}{"chunk_index": 0, "user_id": "u1"}, Embedding: []float32{1, 0, 0}}
	require.NoError(t, s.Add(ctx, "doc_1", rec))
	require.NoError(t, s.Add(ctx, "doc_1", rec))

	require.Len(t, cols.created, 1)
	assert.Equal(t, "doc_1", cols.created[0].CollectionName)
	params := cols.created[0].VectorsConfig.GetParams()
	assert.Equal(t, uint64(3), params.GetSize())
	assert.Equal(t, pb.Distance_Cosine, params.GetDistance())
	assert.Equal(t, 1, cols.lists)

	require.Len(t, points.upserts, 2)
	payload := points.upserts[0].Points[0].Payload
	assert.Equal(t, "Row 1", payload[payloadText].GetStringValue())
	assert.Equal(t, int64(0), payload["chunk_index"].GetIntegerValue())
	assert.Equal(t, "u1", payload["user_id"].GetStringValue())
}

func TestQuery_ConvertsScoreToDistance(t *testing.T) {
	points := &fakePoints{searchFn: func() (*pb.SearchResponse, error) {
		return &pb.SearchResponse{Result: []*pb.ScoredPoint{{
			Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "a"}},
			Score: 0.75,
			Payload: map[string]*pb.Value{
				payloadText:   {Kind: &pb.Value_StringValue{StringValue: "hello"}},
				"chunk_index": {Kind: &pb.Value_IntegerValue{IntegerValue: 2}},
			},
		}}}, nil
	}}
	s := NewWithClients(points, &fakeCollections{})

	got, err := s.Query(context.Background(), "doc_1", []float32{1, 0}, 3, vectorindex.Filter{"user_id": "u1", "file_type": []string{"csv", "txt"}})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Text)
	assert.InDelta(t, 0.25, got[0].Distance, 1e-6)
	assert.Equal(t, int64(2), got[0].Metadata["chunk_index"])
	assert.NotContains(t, got[0].Metadata, payloadText)

	must := points.search.Filter.GetMust()
	require.Len(t, must, 2)
	assert.Equal(t, "file_type", must[0].GetField().GetKey())
	assert.Equal(t, []string{"csv", "txt"}, must[0].GetField().GetMatch().GetKeywords().GetStrings())
	assert.Equal(t, "u1", must[1].GetField().GetMatch().GetKeyword())
	assert.Equal(t, uint64(3), points.search.Limit)
}

func TestQuery_NotFoundMapsToSentinel(t *testing.T) {
	points := &fakePoints{searchFn: func() (*pb.SearchResponse, error) {
		return nil, status.Error(codes.NotFound, "collection doc_9 not found")
	}}
	s := NewWithClients(points, &fakeCollections{})

	_, err := s.Query(context.Background(), "doc_9", []float32{1}, 3, nil)

	assert.ErrorIs(t, err, vectorindex.ErrCollectionNotFound)
}

func TestQuery_OtherErrorsPassThrough(t *testing.T) {
	points := &fakePoints{searchFn: func() (*pb.SearchResponse, error) {
		return nil, status.Error(codes.Unavailable, "connection refused")
	}}
	s := NewWithClients(points, &fakeCollections{})

	_, err := s.Query(context.Background(), "doc_9", []float32{1}, 3, nil)

	require.Error(t, err)
	assert.False(t, errors.Is(err, vectorindex.ErrCollectionNotFound))
}

func TestDeleteCollection_Idempotent(t *testing.T) {
	cols := &fakeCollections{deleteFn: func() error { return status.Error(codes.NotFound, "missing") }}
	s := NewWithClients(&fakePoints{}, cols)

	assert.NoError(t, s.DeleteCollection(context.Background(), "doc_3"))
	assert.Equal(t, []string{"doc_3"}, cols.deleted)
}

func TestDeleteAndCount(t *testing.T) {
	points := &fakePoints{count: 4}
	s := NewWithClients(points, &fakeCollections{})
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "doc_1", []string{"a", "b"}))
	ids := points.deletes[0].Points.GetPoints().GetIds()
	require.Len(t, ids, 2)
	assert.Equal(t, "b", ids[1].GetUuid())

	n, err := s.Count(ctx, "doc_1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	points.countErr = status.Error(codes.NotFound, "missing")
	_, err = s.Count(ctx, "doc_1")
	assert.ErrorIs(t, err, vectorindex.ErrCollectionNotFound)
}

func TestFieldCondition_Integers(t *testing.T) {
	c := fieldCondition("chunk_index", []int{1, 2})
	assert.Equal(t, []int64{1, 2}, c.GetField().GetMatch().GetIntegers().GetIntegers())

	c = fieldCondition("chunk_index", 5)
	assert.Equal(t, int64(5), c.GetField().GetMatch().GetInteger())
}
