package route

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/exson6969/xplorer/engine/graph"
)

// Accessor is the read surface the optimizer needs from the graph store.
// *graph.GraphStore satisfies it; tests inject in-memory fakes.
type Accessor interface {
	EdgesAmong(ctx context.Context, names []string) (graph.EdgeMap, error)
	HotelEdges(ctx context.Context, hotel string, places []string) (graph.EdgeMap, error)
	DetailsFor(ctx context.Context, names []string) ([]graph.Detail, error)
	TransportOptions(ctx context.Context, limit int) ([]graph.TransportOption, error)
}

// Optimizer computes greedy nearest-neighbor routes. It holds no per-request
// state and is safe for concurrent use.
type Optimizer struct {
	store Accessor
	log   *slog.Logger
}

func New(store Accessor, log *slog.Logger) *Optimizer {
	if log == nil {
		log = slog.Default()
	}
	return &Optimizer{store: store, log: log}
}

// request is the normalized, case-folded form of one optimize call.
type request struct {
	days     [][]string        // folded place names per day, deduped, empties dropped
	homeBase string            // folded, "" when absent
	display  map[string]string // folded -> display casing (input, then store canonical)
	all      []string          // every unique folded name incl. home base, input order
}

// normalize case-folds and deduplicates names within each day. Dedup is
// per-day on purpose: a place listed on two different days is a revisit and
// appears in both days' routes, while within one day it is visited once.
func normalize(days [][]string, homeBase string) request {
	req := request{display: make(map[string]string)}

	add := func(name string) (string, bool) {
		name = strings.TrimSpace(name)
		if name == "" {
			return "", false
		}
		folded := strings.ToLower(name)
		if _, seen := req.display[folded]; !seen {
			req.display[folded] = name
			req.all = append(req.all, folded)
		}
		return folded, true
	}

	if folded, ok := add(homeBase); ok {
		req.homeBase = folded
	}
	for _, day := range days {
		var folded []string
		seen := make(map[string]struct{})
		for _, name := range day {
			f, ok := add(name)
			if !ok || f == req.homeBase {
				continue
			}
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			folded = append(folded, f)
		}
		req.days = append(req.days, folded)
	}
	return req
}

// OptimizeSingleDay plans a flat place list as a one-day trip.
func (o *Optimizer) OptimizeSingleDay(ctx context.Context, places []string, homeBase string) Bundle {
	return o.Optimize(ctx, [][]string{places}, homeBase)
}

// Optimize computes routes for each day.
//
// The operation never returns an error: store failures and internal panics
// degrade to a straight-line ordering of the input with flat default legs,
// with the failure surfaced in the bundle's Error field.
func (o *Optimizer) Optimize(ctx context.Context, days [][]string, homeBase string) (bundle Bundle) {
	req := normalize(days, homeBase)

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("route optimization panicked", "panic", r)
			bundle = o.fallback(ctx, req, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if len(req.all) == 0 {
		return Bundle{
			Status:       StatusFailed,
			Error:        "No places provided",
			Days:         []DayRoute{},
			PlacesDetail: []graph.Detail{},
			HotelsDetail: []graph.Detail{},
			OrderedRoute: []string{},
			Legs:         []Leg{},
		}
	}

	edges, err := o.store.EdgesAmong(ctx, req.all)
	if err != nil {
		o.log.Warn("edge query failed, returning straight-line fallback", "error", err)
		return o.fallback(ctx, req, err.Error())
	}
	if req.homeBase != "" {
		hotelEdges, err := o.store.HotelEdges(ctx, req.homeBase, req.all)
		if err != nil {
			o.log.Warn("hotel edge query failed, returning straight-line fallback", "error", err)
			return o.fallback(ctx, req, err.Error())
		}
		edges.Merge(hotelEdges)
	}

	defaulted := 0
	weight := func(a, b string) float64 {
		if mins, ok := edges.Minutes(a, b); ok {
			return mins
		}
		defaulted++
		return DefaultLegMinutes
	}

	bundle = o.assemble(ctx, req, func(stops []string, current string) []string {
		return greedyOrder(stops, current, edges)
	}, weight, "")

	if defaulted > 0 {
		bundle.Status = StatusDegraded
	} else {
		bundle.Status = StatusOptimized
	}
	return bundle
}

// greedyOrder visits stops nearest-first from current. Ties on weight break
// to the lexicographically smaller folded name, which keeps repeated calls
// on identical inputs identical.
func greedyOrder(stops []string, current string, edges graph.EdgeMap) []string {
	unvisited := make([]string, len(stops))
	copy(unvisited, stops)

	ordered := make([]string, 0, len(stops))
	for len(unvisited) > 0 {
		best := 0
		bestWeight := edgeWeight(edges, current, unvisited[0])
		for i := 1; i < len(unvisited); i++ {
			w := edgeWeight(edges, current, unvisited[i])
			if w < bestWeight || (w == bestWeight && unvisited[i] < unvisited[best]) {
				best, bestWeight = i, w
			}
		}
		current = unvisited[best]
		ordered = append(ordered, current)
		unvisited = append(unvisited[:best], unvisited[best+1:]...)
	}
	return ordered
}

func edgeWeight(edges graph.EdgeMap, a, b string) float64 {
	if mins, ok := edges.Minutes(a, b); ok {
		return mins
	}
	return DefaultLegMinutes
}

// orderFunc decides the visiting order of a day's stops given the start.
type orderFunc func(stops []string, current string) []string

// assemble builds the bundle from a per-day ordering strategy and a leg
// weight function. The same path serves both the optimized and the fallback
// result, so even a failed bundle is structurally complete.
func (o *Optimizer) assemble(ctx context.Context, req request, order orderFunc, weight func(a, b string) float64, errMsg string) Bundle {
	found := o.lookupDetails(ctx, req.all)
	display := displayNames(req, found)

	bundle := Bundle{
		Error: errMsg,
		Days:  []DayRoute{},
	}

	for i, stops := range req.days {
		// Days left empty after trimming are skipped entirely.
		if len(stops) == 0 {
			continue
		}

		day := DayRoute{DayNumber: i + 1, Legs: []Leg{}}

		start := req.homeBase
		rest := stops
		if start == "" {
			start, rest = stops[0], stops[1:]
		}

		day.Route = append(day.Route, display[start])
		current := start
		for _, next := range order(rest, current) {
			mins := weight(current, next)
			day.Legs = append(day.Legs, Leg{From: display[current], To: display[next], RoadTimeMins: mins})
			day.Route = append(day.Route, display[next])
			day.TotalRoadTimeMins += mins
			current = next
		}
		if req.homeBase != "" && current != req.homeBase {
			mins := weight(current, req.homeBase)
			day.Legs = append(day.Legs, Leg{From: display[current], To: display[req.homeBase], RoadTimeMins: mins})
			day.Route = append(day.Route, display[req.homeBase])
			day.TotalRoadTimeMins += mins
		}

		bundle.TotalRoadTimeMins += day.TotalRoadTimeMins
		bundle.Days = append(bundle.Days, day)
	}

	// Home base alone, no places anywhere: a one-stop route with no legs.
	if len(bundle.Days) == 0 && req.homeBase != "" {
		bundle.Days = append(bundle.Days, DayRoute{
			DayNumber: 1,
			Route:     []string{display[req.homeBase]},
			Legs:      []Leg{},
		})
	}

	attachDetails(req, found, display, &bundle)
	bundle.TransportOptions = o.transportOptions(ctx)
	bundle.liftFirstDay()
	return bundle
}

// fallback is the outermost safety net: input order, flat default legs.
func (o *Optimizer) fallback(ctx context.Context, req request, errMsg string) Bundle {
	straight := func(stops []string, _ string) []string { return stops }
	flat := func(_, _ string) float64 { return DefaultLegMinutes }

	bundle := o.assemble(ctx, req, straight, flat, errMsg)
	bundle.Status = StatusFailed
	return bundle
}
