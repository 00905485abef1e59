package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// SearchRequest is one concrete lookup the assistant can ask the graph (or
// the vector index) to run. Exactly one variant is produced per tool call.
type SearchRequest interface {
	searchRequest()
}

// FindPlaces looks up places by city and optional category.
type FindPlaces struct {
	City     string
	Category string
	Limit    int
}

// FindHotels looks up hotels by city with an optional minimum rating.
type FindHotels struct {
	City      string
	MinRating float64
	Limit     int
}

// FindCabs lists transport offerings ordered by price.
type FindCabs struct {
	Limit int
}

// VectorSearch runs a free-text similarity query against the vector index.
// It is parsed here for uniformity but executed by the semantic store.
type VectorSearch struct {
	Query string
	Limit int
}

// PlanRoute asks the itinerary optimizer for a day-by-day route over the
// named places, optionally looping through a home base.
type PlanRoute struct {
	Days     [][]string
	HomeBase string
}

func (FindPlaces) searchRequest()   {}
func (FindHotels) searchRequest()   {}
func (FindCabs) searchRequest()     {}
func (VectorSearch) searchRequest() {}
func (PlanRoute) searchRequest()    {}

// rawSearchRequest is the wire shape the model emits for a tool call.
type rawSearchRequest struct {
	Tool      string     `json:"tool"`
	City      string     `json:"city,omitempty"`
	Category  string     `json:"category,omitempty"`
	Query     string     `json:"query,omitempty"`
	MinRating float64    `json:"min_rating,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Days      [][]string `json:"days,omitempty"`
	HomeBase  string     `json:"home_base,omitempty"`
}

// ParseSearchRequest converts a model-emitted tool call into its typed
// variant. Unknown tool names and missing required arguments are errors so
// the caller can surface them back to the model instead of guessing.
func ParseSearchRequest(data []byte) (SearchRequest, error) {
	var raw rawSearchRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding tool call: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(raw.Tool)) {
	case "find_places":
		if strings.TrimSpace(raw.City) == "" {
			return nil, fmt.Errorf("find_places: missing city")
		}
		return FindPlaces{City: raw.City, Category: raw.Category, Limit: raw.Limit}, nil
	case "find_hotels":
		if strings.TrimSpace(raw.City) == "" {
			return nil, fmt.Errorf("find_hotels: missing city")
		}
		return FindHotels{City: raw.City, MinRating: raw.MinRating, Limit: raw.Limit}, nil
	case "find_cabs":
		return FindCabs{Limit: raw.Limit}, nil
	case "vector_search":
		if strings.TrimSpace(raw.Query) == "" {
			return nil, fmt.Errorf("vector_search: missing query")
		}
		return VectorSearch{Query: raw.Query, Limit: raw.Limit}, nil
	case "plan_route":
		if len(raw.Days) == 0 && strings.TrimSpace(raw.HomeBase) == "" {
			return nil, fmt.Errorf("plan_route: missing days")
		}
		return PlanRoute{Days: raw.Days, HomeBase: raw.HomeBase}, nil
	default:
		return nil, fmt.Errorf("unknown tool %q", raw.Tool)
	}
}

// SearchPlaces executes a FindPlaces request.
func (g *GraphStore) SearchPlaces(ctx context.Context, req FindPlaces) ([]Place, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultTransportLimit
	}

	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (p:Place)
	           WHERE toLower(p.city) = $city
	             AND ($category = '' OR toLower(p.category) = $category)
	           RETURN p ORDER BY p.rating DESC LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{
		"city":     strings.ToLower(strings.TrimSpace(req.City)),
		"category": strings.ToLower(strings.TrimSpace(req.Category)),
		"limit":    int64(limit),
	})
	if err != nil {
		return nil, err
	}

	var places []Place
	for result.Next(ctx) {
		props := nodeProps(valueOf(result.Record(), "p"))
		if props == nil {
			continue
		}
		lat, lon := coordProps(props)
		places = append(places, Place{
			Name:        strProp(props, "name"),
			City:        strProp(props, "city"),
			Area:        strProp(props, "area"),
			Category:    strProp(props, "category"),
			Description: strProp(props, "description"),
			Lat:         lat,
			Lon:         lon,
			Rating:      floatProp(props, "rating"),
		})
	}
	return places, nil
}

// SearchHotels executes a FindHotels request.
func (g *GraphStore) SearchHotels(ctx context.Context, req FindHotels) ([]Hotel, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultTransportLimit
	}

	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (h:Hotel)
	           WHERE toLower(h.city) = $city AND coalesce(h.rating, 0) >= $min_rating
	           RETURN h ORDER BY h.rating DESC LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{
		"city":       strings.ToLower(strings.TrimSpace(req.City)),
		"min_rating": req.MinRating,
		"limit":      int64(limit),
	})
	if err != nil {
		return nil, err
	}

	var hotels []Hotel
	for result.Next(ctx) {
		props := nodeProps(valueOf(result.Record(), "h"))
		if props == nil {
			continue
		}
		lat, lon := coordProps(props)
		hotels = append(hotels, Hotel{
			ID:     strProp(props, "hotel_id"),
			Name:   strProp(props, "name"),
			City:   strProp(props, "city"),
			Area:   strProp(props, "area"),
			Lat:    lat,
			Lon:    lon,
			Rating: floatProp(props, "rating"),
		})
	}
	return hotels, nil
}
