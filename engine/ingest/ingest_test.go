package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/time/rate"

	"github.com/exson6969/xplorer/engine/graph"
	"github.com/exson6969/xplorer/engine/semantic"
)

type fakeGraphWriter struct {
	places   []graph.Place
	hotels   []graph.Hotel
	agencies []graph.Agency
	reviews  []string

	constraintsErr error
	reviewErr      error
	connectN       int
}

func (f *fakeGraphWriter) EnsureConstraints(_ context.Context) error { return f.constraintsErr }
func (f *fakeGraphWriter) SavePlace(_ context.Context, p graph.Place) error {
	f.places = append(f.places, p)
	return nil
}
func (f *fakeGraphWriter) SaveHotel(_ context.Context, h graph.Hotel) error {
	f.hotels = append(f.hotels, h)
	return nil
}
func (f *fakeGraphWriter) SaveAgency(_ context.Context, a graph.Agency) error {
	f.agencies = append(f.agencies, a)
	return nil
}
func (f *fakeGraphWriter) SaveReview(_ context.Context, place string, _ graph.Review) error {
	if f.reviewErr != nil {
		return f.reviewErr
	}
	f.reviews = append(f.reviews, place)
	return nil
}
func (f *fakeGraphWriter) ConnectNearby(_ context.Context) (int, error) { return f.connectN, nil }

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeVectorWriter struct {
	dims    int
	records []semantic.VectorRecord
}

func (f *fakeVectorWriter) EnsureCollection(_ context.Context, dims int) error {
	f.dims = dims
	return nil
}
func (f *fakeVectorWriter) Upsert(_ context.Context, records []semantic.VectorRecord) error {
	f.records = append(f.records, records...)
	return nil
}

func testDataset() Dataset {
	return Dataset{
		City: "Chennai",
		Places: []graph.Place{
			{Name: "Marina Beach", Category: "Beach", Description: "Urban beach.", Lat: 13.05, Lon: 80.28},
			{Name: "marina beach", Category: "Beach"}, // duplicate, folded
			{Name: "Fort St. George", Category: "Museum", Lat: 13.08, Lon: 80.29},
			{Name: "   "}, // blank, dropped
		},
		Hotels: []graph.Hotel{
			{ID: "h-001", Name: "Hotel X", Rating: 4.2},
		},
		Agencies: []graph.Agency{
			{Name: "Chennai Cabs", Fleet: []graph.Vehicle{{Model: "Swift Dzire", Type: "sedan"}}},
		},
		Reviews: []PlaceReview{
			{Place: "Marina Beach", Rating: 5, Text: "great"},
		},
	}
}

func fastOpts() Options {
	return Options{EmbedRate: rate.Inf}
}

func TestRun(t *testing.T) {
	g := &fakeGraphWriter{connectN: 3}
	e := &fakeEmbedder{}
	v := &fakeVectorWriter{}
	p := New(g, e, v, fastOpts(), nil)

	sum, err := p.Run(context.Background(), testDataset())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Places != 2 {
		t.Errorf("places %d, want 2 after dedupe", sum.Places)
	}
	if sum.Hotels != 1 || sum.Agencies != 1 || sum.Reviews != 1 {
		t.Errorf("summary %+v", sum)
	}
	if sum.Connections != 3 {
		t.Errorf("connections %d", sum.Connections)
	}

	// City fallback applied to entities without one.
	if g.places[0].City != "Chennai" || g.hotels[0].City != "Chennai" {
		t.Errorf("city fallback missing: %+v %+v", g.places[0], g.hotels[0])
	}

	// 2 places + 1 hotel embedded.
	if sum.Vectors != 3 || e.calls != 3 {
		t.Errorf("vectors %d, embed calls %d", sum.Vectors, e.calls)
	}
	if v.dims != 3 {
		t.Errorf("collection dims %d, want embedding length", v.dims)
	}
	if v.records[2].Payload["kind"] != "hotel" {
		t.Errorf("hotel payload: %+v", v.records[2].Payload)
	}
}

func TestRun_SkipVectors(t *testing.T) {
	g := &fakeGraphWriter{}
	p := New(g, nil, nil, Options{SkipVectors: true, EmbedRate: rate.Inf}, nil)

	sum, err := p.Run(context.Background(), testDataset())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Vectors != 0 {
		t.Errorf("vectors written despite SkipVectors: %d", sum.Vectors)
	}
}

func TestRun_EmptyDataset(t *testing.T) {
	p := New(&fakeGraphWriter{}, nil, nil, Options{SkipVectors: true}, nil)

	if _, err := p.Run(context.Background(), Dataset{City: "Chennai"}); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func TestRun_ConstraintError(t *testing.T) {
	g := &fakeGraphWriter{constraintsErr: errors.New("no admin rights")}
	p := New(g, nil, nil, Options{SkipVectors: true}, nil)

	if _, err := p.Run(context.Background(), testDataset()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRun_ReviewFailuresAreSkipped(t *testing.T) {
	g := &fakeGraphWriter{reviewErr: errors.New("place not found")}
	p := New(g, nil, nil, Options{SkipVectors: true, EmbedRate: rate.Inf}, nil)

	sum, err := p.Run(context.Background(), testDataset())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Reviews != 0 {
		t.Errorf("failed reviews counted: %d", sum.Reviews)
	}
	if sum.Places != 2 {
		t.Errorf("run did not continue past review failure: %+v", sum)
	}
}

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chennai.json")
	data := `{"city":"Chennai","places":[{"name":"Marina Beach","category":"Beach"}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	ds, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if ds.City != "Chennai" || len(ds.Places) != 1 {
		t.Errorf("wrong dataset: %+v", ds)
	}

	if _, err := LoadDataset(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEntityDocs(t *testing.T) {
	ds := testDataset()
	ds.Places = dedupePlaces(ds.Places, ds.City)

	docs := entityDocs(ds)
	if len(docs) != 3 {
		t.Fatalf("docs %d, want 2 places + 1 hotel", len(docs))
	}
	if docs[0].payload["name"] != "Marina Beach" || docs[0].payload["kind"] != "place" {
		t.Errorf("place doc payload: %+v", docs[0].payload)
	}
	if docs[0].text != "Marina Beach. Beach. Urban beach." {
		t.Errorf("place doc text %q", docs[0].text)
	}
	if docs[2].payload["city"] != "Chennai" {
		t.Errorf("hotel city fallback missing: %+v", docs[2].payload)
	}
}
