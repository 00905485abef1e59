// Package graph provides Neo4j knowledge-graph operations for travel data:
// places, hotels, transport agencies, and the road-time edges between them.
package graph

import "strings"

// Place represents a visitable point of interest.
type Place struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	City         string  `json:"city"`
	Category     string  `json:"category"`
	Description  string  `json:"description"`
	Area         string  `json:"area"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	OpenTime     string  `json:"open_time,omitempty"`
	CloseTime    string  `json:"close_time,omitempty"`
	DurationMins int     `json:"duration_mins,omitempty"`
	Rating       float64 `json:"rating"`
}

// Hotel represents a stay option, usable as a route's home base.
type Hotel struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	City   string  `json:"city"`
	Area   string  `json:"area"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Rating float64 `json:"rating"`
	Rooms  []Room  `json:"rooms,omitempty"`
}

// Room is a bookable room of a hotel.
type Room struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	PricePerNight float64 `json:"price_per_night"`
}

// Agency represents a transport agency and its fleet.
type Agency struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	City   string    `json:"city"`
	Rating float64   `json:"rating"`
	MapURL string    `json:"map_url,omitempty"`
	Fleet  []Vehicle `json:"fleet,omitempty"`
}

// Vehicle is one vehicle in an agency's fleet.
type Vehicle struct {
	ID       string  `json:"id"`
	Model    string  `json:"model"`
	Type     string  `json:"type"`     // sedan, suv, bike, ...
	Category string  `json:"category"` // economy, premium, ...
	Price    float64 `json:"price"`    // fixed day-package price
}

// Review is a user review attached to a place or hotel.
type Review struct {
	ID     string  `json:"id"`
	Entity string  `json:"entity"` // name of the reviewed place/hotel
	Author string  `json:"author,omitempty"`
	Rating float64 `json:"rating"`
	Text   string  `json:"text"`
}

// TravelEdge is a road link between two named entities.
type TravelEdge struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	RoadTimeMins float64 `json:"road_time_mins"`
	RoadDistKM   float64 `json:"road_dist_km"`
}

// Detail is the descriptive record returned for a resolved place or hotel.
// Name carries the store's canonical casing.
type Detail struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"` // "place" or "hotel"
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Area        string  `json:"area"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Rating      float64 `json:"rating"`
}

// TransportOption is one agency/vehicle offering, ordered by price.
type TransportOption struct {
	Agency       string  `json:"agency"`
	AgencyRating float64 `json:"agency_rating,omitempty"`
	Model        string  `json:"model"`
	VehicleType  string  `json:"vehicle_type"`
	Price        float64 `json:"price"`
}

// PairKey is an unordered, case-folded pair of entity names. The smaller
// name (lexicographically) is always stored first so that (a,b) and (b,a)
// hit the same key.
type PairKey struct {
	A, B string
}

// NewPairKey builds a PairKey from two names, case-folding both.
func NewPairKey(a, b string) PairKey {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// EdgeMap maps unordered name pairs to road time in minutes.
type EdgeMap map[PairKey]float64

// Minutes looks up the road time between two names, in either direction.
func (m EdgeMap) Minutes(a, b string) (float64, bool) {
	v, ok := m[NewPairKey(a, b)]
	return v, ok
}

// Merge copies every entry of other into m.
func (m EdgeMap) Merge(other EdgeMap) {
	for k, v := range other {
		m[k] = v
	}
}
