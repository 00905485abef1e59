// Package route computes day-by-day travel routes over the knowledge graph
// using a greedy nearest-neighbor heuristic. It never fails hard: every call
// produces a renderable bundle, degrading to defaults when data is missing
// and to a straight-line ordering when the store is unreachable.
package route

import "github.com/exson6969/xplorer/engine/graph"

// Status classifies how much of the bundle was actually computed.
type Status string

const (
	// StatusOptimized means every leg weight came from a stored edge.
	StatusOptimized Status = "optimized"
	// StatusDegraded means the route was optimized but one or more legs
	// fell back to the default weight.
	StatusDegraded Status = "degraded"
	// StatusFailed means computation could not run; the bundle carries a
	// best-effort straight-line fallback and an error message.
	StatusFailed Status = "failed"
)

// DefaultLegMinutes is the edge weight assumed when the store has no
// recorded road time between two stops.
const DefaultLegMinutes = 30.0

// Leg is one directed hop between two consecutive stops.
type Leg struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	RoadTimeMins float64 `json:"road_time_mins"`
}

// DayRoute is the computed route for one day of the trip.
type DayRoute struct {
	DayNumber         int      `json:"day_number"`
	Route             []string `json:"route"`
	Legs              []Leg    `json:"legs"`
	TotalRoadTimeMins float64  `json:"total_road_time_mins"`
}

// Bundle is the full result of one optimize call. Days holds every computed
// day in input order; OrderedRoute and Legs mirror the first day for
// single-day callers. Every referenced entity appears in PlacesDetail or
// HotelsDetail, synthesized when the store has no record.
type Bundle struct {
	Status            Status                  `json:"status"`
	Error             string                  `json:"error,omitempty"`
	Days              []DayRoute              `json:"days"`
	TotalRoadTimeMins float64                 `json:"total_road_time_mins"`
	PlacesDetail      []graph.Detail          `json:"places_detail"`
	HotelsDetail      []graph.Detail          `json:"hotels_detail"`
	TransportOptions  []graph.TransportOption `json:"transport_options"`
	OrderedRoute      []string                `json:"ordered_route"`
	Legs              []Leg                   `json:"legs"`
}

// liftFirstDay mirrors day one into the top-level route and legs.
func (b *Bundle) liftFirstDay() {
	if len(b.Days) == 0 {
		b.OrderedRoute = []string{}
		b.Legs = []Leg{}
		return
	}
	b.OrderedRoute = b.Days[0].Route
	b.Legs = b.Days[0].Legs
}
