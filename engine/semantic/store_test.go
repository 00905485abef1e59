package semantic

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// --- Mocks ---

type mockPoints struct {
	upsertResp *pb.PointsOperationResponse
	upsertErr  error
	deleteResp *pb.PointsOperationResponse
	deleteErr  error
	searchResp *pb.SearchResponse
	searchErr  error

	lastUpsert *pb.UpsertPoints
	lastSearch *pb.SearchPoints
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.lastUpsert = in
	return m.upsertResp, m.upsertErr
}
func (m *mockPoints) Delete(_ context.Context, _ *pb.DeletePoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	return m.deleteResp, m.deleteErr
}
func (m *mockPoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	m.lastSearch = in
	return m.searchResp, m.searchErr
}

type mockCollections struct {
	listResp   *pb.ListCollectionsResponse
	listErr    error
	createResp *pb.CollectionOperationResponse
	createErr  error
	deleteResp *pb.CollectionOperationResponse
	deleteErr  error

	created bool
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	return m.listResp, m.listErr
}
func (m *mockCollections) Create(_ context.Context, _ *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = true
	return m.createResp, m.createErr
}
func (m *mockCollections) Delete(_ context.Context, _ *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	return m.deleteResp, m.deleteErr
}

// --- Tests ---

func TestNewWithClients(t *testing.T) {
	vs := NewWithClients(&mockPoints{}, &mockCollections{}, "travel")
	if vs == nil {
		t.Fatal("expected non-nil")
	}
	// No gRPC conn behind an injected store.
	if err := vs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestEnsureCollection_AlreadyExists(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{
			Collections: []*pb.CollectionDescription{{Name: "travel"}},
		},
	}
	vs := NewWithClients(&mockPoints{}, cols, "travel")
	if err := vs.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.created {
		t.Error("existing collection must not be recreated")
	}
}

func TestEnsureCollection_Creates(t *testing.T) {
	cols := &mockCollections{listResp: &pb.ListCollectionsResponse{}}
	vs := NewWithClients(&mockPoints{}, cols, "travel")
	if err := vs.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cols.created {
		t.Error("expected collection creation")
	}
}

func TestEnsureCollection_ListError(t *testing.T) {
	cols := &mockCollections{listErr: errors.New("unavailable")}
	vs := NewWithClients(&mockPoints{}, cols, "travel")
	if err := vs.EnsureCollection(context.Background(), 768); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpsert_Empty(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "travel")
	if err := vs.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pts.lastUpsert != nil {
		t.Error("no upsert call expected for empty batch")
	}
}

func TestUpsert_PayloadEncoding(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "travel")

	err := vs.Upsert(context.Background(), []VectorRecord{{
		ID:        "6f1c9b52-1f2e-4a53-9a70-6f6a2fd4a111",
		Embedding: []float32{0.1, 0.2},
		Payload: map[string]any{
			"name":   "Marina Beach",
			"kind":   "place",
			"rating": 4.5,
			"rooms":  int64(0),
			"open":   true,
		},
	}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	p := pts.lastUpsert.Points[0].Payload
	if p["name"].GetStringValue() != "Marina Beach" {
		t.Errorf("name payload: %v", p["name"])
	}
	if p["rating"].GetDoubleValue() != 4.5 {
		t.Errorf("rating payload: %v", p["rating"])
	}
	if p["rooms"].GetIntegerValue() != 0 {
		t.Errorf("integer payload: %v", p["rooms"])
	}
	if !p["open"].GetBoolValue() {
		t.Errorf("bool payload: %v", p["open"])
	}
}

func TestUpsert_Error(t *testing.T) {
	pts := &mockPoints{upsertErr: errors.New("fail")}
	vs := NewWithClients(pts, &mockCollections{}, "travel")
	err := vs.Upsert(context.Background(), []VectorRecord{{ID: "x"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteByName(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "travel")
	if err := vs.DeleteByName(context.Background(), "Marina Beach"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pts.deleteErr = errors.New("fail")
	if err := vs.DeleteByName(context.Background(), "Marina Beach"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch_Success(t *testing.T) {
	pts := &mockPoints{
		searchResp: &pb.SearchResponse{
			Result: []*pb.ScoredPoint{
				{
					Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "p1"}},
					Score: 0.95,
					Payload: map[string]*pb.Value{
						"name":        {Kind: &pb.Value_StringValue{StringValue: "Marina Beach"}},
						"kind":        {Kind: &pb.Value_StringValue{StringValue: "place"}},
						"city":        {Kind: &pb.Value_StringValue{StringValue: "Chennai"}},
						"description": {Kind: &pb.Value_StringValue{StringValue: "urban beach"}},
						"extra":       {Kind: &pb.Value_StringValue{StringValue: "val"}},
					},
				},
			},
		},
	}
	vs := NewWithClients(pts, &mockCollections{}, "travel")
	results, err := vs.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1, got %d", len(results))
	}
	r := results[0]
	if r.Name != "Marina Beach" || r.Kind != "place" || r.City != "Chennai" {
		t.Errorf("wrong payload mapping: %+v", r)
	}
	if r.Description != "urban beach" {
		t.Errorf("wrong description: %s", r.Description)
	}
	if r.Meta["extra"] != "val" {
		t.Errorf("wrong meta: %v", r.Meta)
	}
	if r.ID != "p1" || r.Score != 0.95 {
		t.Error("wrong id/score")
	}
}

func TestSearchFiltered_WithFilters(t *testing.T) {
	pts := &mockPoints{searchResp: &pb.SearchResponse{}}
	vs := NewWithClients(pts, &mockCollections{}, "travel")

	_, err := vs.SearchFiltered(context.Background(), []float32{1}, 3, map[string]string{"kind": "hotel"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pts.lastSearch.Filter == nil || len(pts.lastSearch.Filter.Must) != 1 {
		t.Fatalf("filter not applied: %+v", pts.lastSearch.Filter)
	}
}

func TestSearch_Error(t *testing.T) {
	pts := &mockPoints{searchErr: errors.New("fail")}
	vs := NewWithClients(pts, &mockCollections{}, "travel")
	if _, err := vs.Search(context.Background(), []float32{1}, 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestFieldMatch(t *testing.T) {
	c := fieldMatch("city", "Chennai")
	f := c.GetField()
	if f.GetKey() != "city" || f.GetMatch().GetKeyword() != "Chennai" {
		t.Errorf("wrong condition: %+v", c)
	}
}
