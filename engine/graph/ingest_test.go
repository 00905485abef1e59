package graph

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestSavePlace(t *testing.T) {
	gs, sess := newMockStore()

	p := Place{
		Name: "Marina Beach", City: "Chennai", Area: "Triplicane",
		Category: "Beach", Lat: 13.05, Lon: 80.28, Rating: 4.5,
	}
	if err := gs.SavePlace(context.Background(), p); err != nil {
		t.Fatalf("SavePlace: %v", err)
	}
	if len(sess.queries) != 1 {
		t.Fatalf("expected 1 query, got %d", len(sess.queries))
	}
	if !strings.Contains(sess.queries[0], "MERGE (p:Place {name: $name})") {
		t.Errorf("place not merged by name: %s", sess.queries[0])
	}
	if sess.params[0]["city"] != "Chennai" {
		t.Errorf("city param: %v", sess.params[0]["city"])
	}
}

func TestSaveHotel_WithRooms(t *testing.T) {
	gs, sess := newMockStore()

	h := Hotel{
		ID: "h-001", Name: "Hotel X", City: "Chennai", Rating: 4.2,
		Rooms: []Room{
			{Type: "deluxe", PricePerNight: 4500},
			{Type: "suite", PricePerNight: 9000},
		},
	}
	if err := gs.SaveHotel(context.Background(), h); err != nil {
		t.Fatalf("SaveHotel: %v", err)
	}
	// 1 hotel upsert + 2 room upserts
	if len(sess.queries) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(sess.queries))
	}
	if sess.params[1]["type"] != "deluxe" || sess.params[1]["price"] != 4500.0 {
		t.Errorf("room params: %v", sess.params[1])
	}
}

func TestSaveAgency_WithFleet(t *testing.T) {
	gs, sess := newMockStore()

	a := Agency{
		Name: "Chennai Cabs", City: "Chennai", Rating: 4.2,
		Fleet: []Vehicle{{Model: "Swift Dzire", Type: "sedan", Category: "economy", Price: 1800}},
	}
	if err := gs.SaveAgency(context.Background(), a); err != nil {
		t.Fatalf("SaveAgency: %v", err)
	}
	if len(sess.queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(sess.queries))
	}
	if sess.params[1]["category"] != "economy" {
		t.Errorf("vehicle params: %v", sess.params[1])
	}
}

func TestSaveReview(t *testing.T) {
	gs, sess := newMockStore()

	r := Review{Author: "asha", Rating: 5, Text: "lovely sunrise walk"}
	if err := gs.SaveReview(context.Background(), "Marina Beach", r); err != nil {
		t.Fatalf("SaveReview: %v", err)
	}
	if sess.params[0]["place"] != "Marina Beach" {
		t.Errorf("review params: %v", sess.params[0])
	}
	if id, _ := sess.params[0]["id"].(string); id == "" {
		t.Error("review id not generated")
	}
}

func TestSaveHotel_WriteError(t *testing.T) {
	sess := &mockSession{writeErr: errors.New("deadline exceeded")}
	gs := NewWithOpener(&mockOpener{session: sess})

	if err := gs.SaveHotel(context.Background(), Hotel{ID: "h-001"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnsureConstraints(t *testing.T) {
	gs, sess := newMockStore()

	if err := gs.EnsureConstraints(context.Background()); err != nil {
		t.Fatalf("EnsureConstraints: %v", err)
	}
	if len(sess.queries) != 5 {
		t.Fatalf("expected 5 constraint statements, got %d", len(sess.queries))
	}
	for _, q := range sess.queries {
		if !strings.Contains(q, "IF NOT EXISTS") {
			t.Errorf("constraint not idempotent: %s", q)
		}
	}
}

func TestConnectNearby(t *testing.T) {
	// Marina Beach and Fort St. George are ~5 km apart; Mahabalipuram is
	// ~50 km south and must not be connected. Hotel X sits downtown.
	placeRows := newMockResult(
		makeRecord([]string{"name", "lat", "lon"}, []any{"Marina Beach", 13.0500, 80.2824}),
		makeRecord([]string{"name", "lat", "lon"}, []any{"Fort St. George", 13.0794, 80.2878}),
		makeRecord([]string{"name", "lat", "lon"}, []any{"Mahabalipuram", 12.6208, 80.1945}),
	)
	hotelRows := newMockResult(
		makeRecord([]string{"name", "lat", "lon"}, []any{"Hotel X", 13.0604, 80.2496}),
	)
	sess := &mockSession{results: []*mockResult{placeRows, hotelRows}}
	gs := NewWithOpener(&mockOpener{session: sess})

	connected, err := gs.ConnectNearby(context.Background())
	if err != nil {
		t.Fatalf("ConnectNearby: %v", err)
	}
	// 1 place pair in range + hotel to 2 downtown places = 3 edges.
	if connected != 3 {
		t.Fatalf("expected 3 connections, got %d", connected)
	}

	// 2 coord loads + 3 edge writes
	if len(sess.queries) != 5 {
		t.Fatalf("expected 5 queries, got %d", len(sess.queries))
	}
	edgeParams := sess.params[2]
	mins, _ := edgeParams["mins"].(float64)
	if mins <= 0 || mins > 30 {
		t.Errorf("implausible road time for a ~5 km hop: %v", mins)
	}
}

func TestHaversineKm(t *testing.T) {
	// Chennai Central to Chennai Airport, roughly 17 km great-circle.
	got := HaversineKm(13.0827, 80.2707, 12.9789, 80.1637)
	if math.Abs(got-16.3) > 1.5 {
		t.Errorf("HaversineKm = %v, want about 16.3", got)
	}
	if HaversineKm(13.05, 80.28, 13.05, 80.28) != 0 {
		t.Error("zero distance for identical coordinates")
	}
}
