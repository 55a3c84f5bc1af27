// Package qdrant implements vectorindex.Store on a Qdrant server over gRPC.
// Each document collection maps to one Qdrant collection with cosine distance.
package qdrant

import (
	"context"
	"fmt"
	"sync"

	"ai-docqa-be/pkg/vectorindex"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const payloadText = "chunk_text"

// PointsAPI is the subset of pb.PointsClient the store uses.
type PointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
}

// CollectionsAPI is the subset of pb.CollectionsClient the store uses.
type CollectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

type Store struct {
	conn        *grpc.ClientConn
	points      PointsAPI
	collections CollectionsAPI

	known sync.Map // collection name -> struct{}
}

// New connects to Qdrant at addr (host:port of the gRPC listener).
func New(addr string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant: dial %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

func NewWithClients(points PointsAPI, collections CollectionsAPI) *Store {
	return &Store{points: points, collections: collections}
}

func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Store) ensureCollection(ctx context.Context, name string, dims int) error {
	if _, ok := s.known.Load(name); ok {
		return nil
	}

	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == name {
			s.known.Store(name, struct{}{})
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("qdrant: create collection %s: %w", name, err)
	}
	s.known.Store(name, struct{}{})
	return nil
}

func (s *Store) Add(ctx context.Context, name string, rec vectorindex.Record) error {
	if err := s.ensureCollection(ctx, name, len(rec.Embedding)); err != nil {
		return err
	}

	payload := make(map[string]*pb.Value, len(rec.Metadata)+1)
	for k, v := range rec.Metadata {
		payload[k] = toValue(v)
	}
	payload[payloadText] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: rec.Text}}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: name,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: rec.ID}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: rec.Embedding}},
			},
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert into %s: %w", name, err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, name string, vector []float32, k int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	req := &pb.SearchPoints{
		CollectionName: name,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		Filter:         buildFilter(filter),
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			s.known.Delete(name)
			return nil, vectorindex.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("qdrant: search %s: %w", name, err)
	}

	out := make([]vectorindex.Match, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		m := vectorindex.Match{
			ID:       r.GetId().GetUuid(),
			Metadata: make(map[string]interface{}, len(r.GetPayload())),
			// Qdrant reports cosine similarity; callers expect distance.
			Distance: 1 - float64(r.GetScore()),
		}
		for key, val := range r.GetPayload() {
			if key == payloadText {
				m.Text = val.GetStringValue()
				continue
			}
			m.Metadata[key] = fromValue(val)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, name string, ids []string) error {
	pointIDs := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
	}

	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: name,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return vectorindex.ErrCollectionNotFound
		}
		return fmt.Errorf("qdrant: delete from %s: %w", name, err)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.known.Delete(name)
	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("qdrant: delete collection %s: %w", name, err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: name, Exact: &exact})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, vectorindex.ErrCollectionNotFound
		}
		return 0, fmt.Errorf("qdrant: count %s: %w", name, err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func buildFilter(f vectorindex.Filter) *pb.Filter {
	if len(f) == 0 {
		return nil
	}
	must := make([]*pb.Condition, 0, len(f))
	for _, key := range f.Keys() {
		must = append(must, fieldCondition(key, f[key]))
	}
	return &pb.Filter{Must: must}
}

func fieldCondition(key string, want interface{}) *pb.Condition {
	values, many := vectorindex.Values(want)

	var match *pb.Match
	if ints, ok := allInts(values); ok {
		if many {
			match = &pb.Match{MatchValue: &pb.Match_Integers{Integers: &pb.RepeatedIntegers{Integers: ints}}}
		} else {
			match = &pb.Match{MatchValue: &pb.Match_Integer{Integer: ints[0]}}
		}
	} else {
		strs := make([]string, len(values))
		for i, v := range values {
			strs[i] = fmt.Sprint(v)
		}
		if many {
			match = &pb.Match{MatchValue: &pb.Match_Keywords{Keywords: &pb.RepeatedStrings{Strings: strs}}}
		} else {
			match = &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: strs[0]}}
		}
	}

	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{Key: key, Match: match},
		},
	}
}

func allInts(values []interface{}) ([]int64, bool) {
	if len(values) == 0 {
		return nil, false
	}
	out := make([]int64, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case int:
			out[i] = int64(t)
		case int32:
			out[i] = int64(t)
		case int64:
			out[i] = t
		default:
			return nil, false
		}
	}
	return out, true
}

func toValue(v interface{}) *pb.Value {
	switch tv := v.(type) {
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int32:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

func fromValue(v *pb.Value) interface{} {
	switch k := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return k.StringValue
	case *pb.Value_IntegerValue:
		return k.IntegerValue
	case *pb.Value_DoubleValue:
		return k.DoubleValue
	case *pb.Value_BoolValue:
		return k.BoolValue
	default:
		return nil
	}
}
