package graph

import (
	"context"
	"math"

	"github.com/google/uuid"
)

// Spatial connection parameters. Places within NearbyRadiusKm of each other
// get a CONNECTED_TO edge; hotels get NEARBY_PLACE edges to places in range.
// Road time is estimated from straight-line distance at AvgRoadSpeedKmh.
const (
	NearbyRadiusKm  = 20.0
	AvgRoadSpeedKmh = 25.0
)

// EnsureConstraints creates the uniqueness constraints the ingest path
// relies on. Safe to call on every startup.
func (g *GraphStore) EnsureConstraints(ctx context.Context) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	constraints := []string{
		`CREATE CONSTRAINT place_name IF NOT EXISTS FOR (p:Place) REQUIRE p.name IS UNIQUE`,
		`CREATE CONSTRAINT hotel_id IF NOT EXISTS FOR (h:Hotel) REQUIRE h.hotel_id IS UNIQUE`,
		`CREATE CONSTRAINT agency_name IF NOT EXISTS FOR (a:Agency) REQUIRE a.name IS UNIQUE`,
		`CREATE CONSTRAINT city_name IF NOT EXISTS FOR (c:City) REQUIRE c.name IS UNIQUE`,
		`CREATE CONSTRAINT review_id IF NOT EXISTS FOR (r:Review) REQUIRE r.review_id IS UNIQUE`,
	}
	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		for _, c := range constraints {
			if _, err := tx.Run(ctx, c, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// SavePlace upserts a place node and links it to its city.
func (g *GraphStore) SavePlace(ctx context.Context, p Place) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (p:Place {name: $name})
			SET p.city = $city, p.area = $area, p.category = $category,
			    p.description = $description, p.lat = $lat, p.lon = $lon,
			    p.rating = $rating
			MERGE (c:City {name: $city})
			MERGE (p)-[:LOCATED_IN]->(c)`,
			map[string]any{
				"name": p.Name, "city": p.City, "area": p.Area,
				"category": p.Category, "description": p.Description,
				"lat": p.Lat, "lon": p.Lon, "rating": p.Rating,
			})
		return nil, err
	})
	return err
}

// SaveHotel upserts a hotel node with its room inventory.
func (g *GraphStore) SaveHotel(ctx context.Context, h Hotel) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (h:Hotel {hotel_id: $id})
			SET h.name = $name, h.city = $city, h.area = $area,
			    h.lat = $lat, h.lon = $lon, h.rating = $rating
			MERGE (c:City {name: $city})
			MERGE (h)-[:LOCATED_IN]->(c)`,
			map[string]any{
				"id": h.ID, "name": h.Name, "city": h.City, "area": h.Area,
				"lat": h.Lat, "lon": h.Lon, "rating": h.Rating,
			})
		if err != nil {
			return nil, err
		}
		for _, r := range h.Rooms {
			_, err = tx.Run(ctx, `
				MATCH (h:Hotel {hotel_id: $id})
				MERGE (r:Room {hotel_id: $id, type: $type})
				SET r.price = $price
				MERGE (h)-[:HAS_ROOM]->(r)`,
				map[string]any{
					"id": h.ID, "type": r.Type, "price": r.PricePerNight,
				})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// SaveAgency upserts a transport agency with its vehicle fleet.
func (g *GraphStore) SaveAgency(ctx context.Context, a Agency) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (a:Agency {name: $name})
			SET a.city = $city, a.rating = $rating`,
			map[string]any{"name": a.Name, "city": a.City, "rating": a.Rating})
		if err != nil {
			return nil, err
		}
		for _, v := range a.Fleet {
			_, err = tx.Run(ctx, `
				MATCH (a:Agency {name: $agency})
				MERGE (v:Vehicle {agency: $agency, model: $model})
				SET v.type = $type, v.category = $category, v.price = $price
				MERGE (a)-[:OWNS_VEHICLE]->(v)`,
				map[string]any{
					"agency": a.Name, "model": v.Model, "type": v.Type,
					"category": v.Category, "price": v.Price,
				})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// SaveReview attaches a review node to an existing place.
func (g *GraphStore) SaveReview(ctx context.Context, placeName string, r Review) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		_, err := tx.Run(ctx, `
			MATCH (p:Place {name: $place})
			CREATE (r:Review {review_id: $id, entity: $place, author: $author, rating: $rating, text: $text})
			CREATE (p)-[:HAS_REVIEW]->(r)`,
			map[string]any{
				"place": placeName, "id": r.ID, "author": r.Author,
				"rating": r.Rating, "text": r.Text,
			})
		return nil, err
	})
	return err
}

// ConnectNearby runs the spatial connection pass: every place pair within
// NearbyRadiusKm gets a CONNECTED_TO edge, and every hotel gets NEARBY_PLACE
// edges to places in range. Edge weights are set from the haversine distance
// and the AvgRoadSpeedKmh estimate. Existing edges are overwritten, so the
// pass is idempotent.
func (g *GraphStore) ConnectNearby(ctx context.Context) (int, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	places, err := loadCoords(ctx, sess, "Place")
	if err != nil {
		return 0, err
	}
	hotels, err := loadCoords(ctx, sess, "Hotel")
	if err != nil {
		return 0, err
	}

	connected := 0
	_, err = sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		for i := 0; i < len(places); i++ {
			for j := i + 1; j < len(places); j++ {
				km := HaversineKm(places[i].lat, places[i].lon, places[j].lat, places[j].lon)
				if km > NearbyRadiusKm {
					continue
				}
				if err := connect(ctx, tx, "Place", "Place", "CONNECTED_TO", places[i].name, places[j].name, km); err != nil {
					return nil, err
				}
				connected++
			}
		}
		for _, h := range hotels {
			for _, p := range places {
				km := HaversineKm(h.lat, h.lon, p.lat, p.lon)
				if km > NearbyRadiusKm {
					continue
				}
				if err := connect(ctx, tx, "Hotel", "Place", "NEARBY_PLACE", h.name, p.name, km); err != nil {
					return nil, err
				}
				connected++
			}
		}
		return nil, nil
	})
	if err != nil {
		return 0, err
	}
	return connected, nil
}

type coordRow struct {
	name     string
	lat, lon float64
}

func loadCoords(ctx context.Context, runner CypherRunner, label string) ([]coordRow, error) {
	cypher := `MATCH (n:` + label + `)
	           WHERE n.lat IS NOT NULL AND n.lon IS NOT NULL
	           RETURN n.name AS name, n.lat AS lat, n.lon AS lon`
	result, err := runner.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	var rows []coordRow
	for result.Next(ctx) {
		rec := result.Record()
		name, _ := valueOf(rec, "name").(string)
		if name == "" {
			continue
		}
		rows = append(rows, coordRow{
			name: name,
			lat:  toFloat(valueOf(rec, "lat")),
			lon:  toFloat(valueOf(rec, "lon")),
		})
	}
	return rows, nil
}

func connect(ctx context.Context, tx CypherRunner, fromLabel, toLabel, rel, from, to string, km float64) error {
	mins := km / AvgRoadSpeedKmh * 60
	_, err := tx.Run(ctx, `
		MATCH (a:`+fromLabel+` {name: $from}), (b:`+toLabel+` {name: $to})
		MERGE (a)-[r:`+rel+`]->(b)
		SET r.road_dist_km = $km, r.road_time_mins = $mins`,
		map[string]any{"from": from, "to": to, "km": round1(km), "mins": round1(mins)})
	return err
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
