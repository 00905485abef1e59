package graph

import (
	"context"
	"strings"
)

// DefaultTransportLimit bounds TransportOptions when the caller passes no limit.
const DefaultTransportLimit = 10

// foldNames trims, case-folds, and de-duplicates a name set for matching.
func foldNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// EdgesAmong returns every travel edge whose both endpoints are in the given
// name set, keyed by unordered pair. Both CONNECTED_TO and NEARBY_PLACE edges
// are returned; direction is discarded. Edges without a recorded road time
// are omitted. Non-positive road times are clamped to zero.
func (g *GraphStore) EdgesAmong(ctx context.Context, names []string) (EdgeMap, error) {
	folded := foldNames(names)
	if len(folded) < 2 {
		return EdgeMap{}, nil
	}

	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (a)-[r:CONNECTED_TO|NEARBY_PLACE]-(b)
	           WHERE toLower(a.name) IN $names AND toLower(b.name) IN $names
	             AND r.road_time_mins IS NOT NULL
	           RETURN toLower(a.name) AS from, toLower(b.name) AS to,
	                  r.road_time_mins AS mins`
	result, err := sess.Run(ctx, cypher, map[string]any{"names": folded})
	if err != nil {
		return nil, err
	}
	return collectEdges(ctx, result), nil
}

// HotelEdges returns NEARBY_PLACE edges between one specific hotel and the
// given place names.
func (g *GraphStore) HotelEdges(ctx context.Context, hotel string, places []string) (EdgeMap, error) {
	hotel = strings.ToLower(strings.TrimSpace(hotel))
	folded := foldNames(places)
	if hotel == "" || len(folded) == 0 {
		return EdgeMap{}, nil
	}

	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (h:Hotel)-[r:NEARBY_PLACE]-(p:Place)
	           WHERE toLower(h.name) = $hotel AND toLower(p.name) IN $places
	             AND r.road_time_mins IS NOT NULL
	           RETURN toLower(h.name) AS from, toLower(p.name) AS to,
	                  r.road_time_mins AS mins`
	result, err := sess.Run(ctx, cypher, map[string]any{"hotel": hotel, "places": folded})
	if err != nil {
		return nil, err
	}
	return collectEdges(ctx, result), nil
}

func collectEdges(ctx context.Context, result CypherResult) EdgeMap {
	edges := EdgeMap{}
	for result.Next(ctx) {
		rec := result.Record()
		fromVal, _ := rec.Get("from")
		toVal, _ := rec.Get("to")
		minsVal, _ := rec.Get("mins")

		from, ok1 := fromVal.(string)
		to, ok2 := toVal.(string)
		if !ok1 || !ok2 || from == to {
			continue
		}
		var mins float64
		switch m := minsVal.(type) {
		case float64:
			mins = m
		case int64:
			mins = float64(m)
		default:
			continue
		}
		if mins < 0 {
			mins = 0
		}
		key := NewPairKey(from, to)
		// Keep the cheapest when duplicate edges exist between a pair.
		if prev, ok := edges[key]; !ok || mins < prev {
			edges[key] = mins
		}
	}
	return edges
}

// DetailsFor returns descriptive records for whichever of the given names
// exist as Place or Hotel nodes. Names absent from the store are simply not
// returned; synthesizing placeholders is the caller's concern.
func (g *GraphStore) DetailsFor(ctx context.Context, names []string) ([]Detail, error) {
	folded := foldNames(names)
	if len(folded) == 0 {
		return nil, nil
	}

	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n)
	           WHERE (n:Place OR n:Hotel) AND toLower(n.name) IN $names
	           RETURN n, labels(n)[0] AS kind`
	result, err := sess.Run(ctx, cypher, map[string]any{"names": folded})
	if err != nil {
		return nil, err
	}

	var details []Detail
	for result.Next(ctx) {
		rec := result.Record()
		nodeVal, _ := rec.Get("n")
		kindVal, _ := rec.Get("kind")

		props := nodeProps(nodeVal)
		if props == nil {
			continue
		}
		kind, _ := kindVal.(string)
		details = append(details, detailFromProps(props, strings.ToLower(kind)))
	}
	return details, nil
}

func detailFromProps(props map[string]any, kind string) Detail {
	lat, lon := coordProps(props)
	return Detail{
		Name:        strProp(props, "name"),
		Kind:        kind,
		Category:    strProp(props, "category"),
		Description: strProp(props, "description"),
		Area:        strProp(props, "area"),
		Lat:         lat,
		Lon:         lon,
		Rating:      floatProp(props, "rating"),
	}
}

// TransportOptions returns up to limit agency/vehicle offerings ordered by
// ascending day-package price. The listing is global, not filtered to any
// particular trip.
func (g *GraphStore) TransportOptions(ctx context.Context, limit int) ([]TransportOption, error) {
	if limit <= 0 {
		limit = DefaultTransportLimit
	}

	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (a:Agency)-[:OWNS_VEHICLE]->(v:Vehicle)
	           WHERE v.price IS NOT NULL
	           RETURN a.name AS agency, a.rating AS rating,
	                  v.model AS model, v.type AS type, v.price AS price
	           ORDER BY price ASC LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}

	var opts []TransportOption
	for result.Next(ctx) {
		rec := result.Record()
		o := TransportOption{}
		if v, ok := rec.Get("agency"); ok {
			o.Agency, _ = v.(string)
		}
		if v, ok := rec.Get("rating"); ok {
			o.AgencyRating = toFloat(v)
		}
		if v, ok := rec.Get("model"); ok {
			o.Model, _ = v.(string)
		}
		if v, ok := rec.Get("type"); ok {
			o.VehicleType, _ = v.(string)
		}
		if v, ok := rec.Get("price"); ok {
			o.Price = toFloat(v)
		}
		opts = append(opts, o)
	}
	return opts, nil
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	}
	return 0
}
