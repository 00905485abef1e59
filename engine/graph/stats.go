package graph

import "context"

// CityStats holds coverage statistics for one city.
type CityStats struct {
	Name   string `json:"name"`
	Places int64  `json:"places"`
	Hotels int64  `json:"hotels"`
}

// NodeCounts returns node counts grouped by label.
func (g *GraphStore) NodeCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n) RETURN labels(n)[0] AS type, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	return collectCounts(ctx, result), nil
}

// RelationshipCounts returns relationship counts grouped by type.
func (g *GraphStore) RelationshipCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH ()-[r]->() RETURN type(r) AS type, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	return collectCounts(ctx, result), nil
}

func collectCounts(ctx context.Context, result CypherResult) map[string]int64 {
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		cnt, _ := rec.Get("count")
		if t, ok := typ.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[t] = c
			}
		}
	}
	return counts
}

// TopCities returns the cities with the most catalogued places.
func (g *GraphStore) TopCities(ctx context.Context, limit int) ([]CityStats, error) {
	if limit <= 0 {
		limit = DefaultTransportLimit
	}

	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (c:City)
		OPTIONAL MATCH (p:Place)-[:LOCATED_IN]->(c)
		OPTIONAL MATCH (h:Hotel)-[:LOCATED_IN]->(c)
		RETURN c.name AS name, count(DISTINCT p) AS places, count(DISTINCT h) AS hotels
		ORDER BY places DESC LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}

	var stats []CityStats
	for result.Next(ctx) {
		rec := result.Record()
		s := CityStats{}
		if v, ok := rec.Get("name"); ok {
			s.Name, _ = v.(string)
		}
		if v, ok := rec.Get("places"); ok {
			s.Places, _ = v.(int64)
		}
		if v, ok := rec.Get("hotels"); ok {
			s.Hotels, _ = v.(int64)
		}
		stats = append(stats, s)
	}
	return stats, nil
}
