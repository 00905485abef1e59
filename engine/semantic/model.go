// Package semantic owns the Qdrant vector index used for free-text "vibe"
// search over places and hotels ("quiet places near the sea").
package semantic

// SearchResult is a single vector search hit, resolved back to a travel
// entity via the payload stored at ingest time.
type SearchResult struct {
	ID          string            `json:"id"`
	Score       float32           `json:"score"`
	Name        string            `json:"name"`
	Kind        string            `json:"kind"` // "place" or "hotel"
	City        string            `json:"city"`
	Description string            `json:"description"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// VectorRecord is a single embedded entity to store in Qdrant.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // name, kind, city, description, rating
}
