// Package ingest loads a travel dataset into the knowledge graph and vector
// index: nodes first, then the spatial connection pass, then embeddings.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/exson6969/xplorer/engine/graph"
	"github.com/exson6969/xplorer/engine/semantic"
	"github.com/exson6969/xplorer/pkg/fn"
)

// Dataset is the on-disk input format: one JSON document per city.
type Dataset struct {
	City     string         `json:"city"`
	Places   []graph.Place  `json:"places"`
	Hotels   []graph.Hotel  `json:"hotels"`
	Agencies []graph.Agency `json:"agencies"`
	Reviews  []PlaceReview  `json:"reviews,omitempty"`
}

// PlaceReview ties a review to a place by name.
type PlaceReview struct {
	Place  string  `json:"place"`
	Author string  `json:"author,omitempty"`
	Rating float64 `json:"rating"`
	Text   string  `json:"text"`
}

// LoadDataset reads and decodes a dataset file.
func LoadDataset(path string) (Dataset, error) {
	var ds Dataset
	b, err := os.ReadFile(path)
	if err != nil {
		return ds, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &ds); err != nil {
		return ds, fmt.Errorf("ingest: decode %s: %w", path, err)
	}
	return ds, nil
}

// GraphWriter is the write surface of the knowledge graph.
type GraphWriter interface {
	EnsureConstraints(ctx context.Context) error
	SavePlace(ctx context.Context, p graph.Place) error
	SaveHotel(ctx context.Context, h graph.Hotel) error
	SaveAgency(ctx context.Context, a graph.Agency) error
	SaveReview(ctx context.Context, placeName string, r graph.Review) error
	ConnectNearby(ctx context.Context) (int, error)
}

// Embedder turns entity text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorWriter is the write surface of the vector index.
type VectorWriter interface {
	EnsureCollection(ctx context.Context, dims int) error
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Options configures a pipeline run.
type Options struct {
	// EmbedRate caps embedding calls per second, protecting the API quota.
	EmbedRate rate.Limit
	// SkipVectors loads the graph only.
	SkipVectors bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{EmbedRate: rate.Limit(5)}
}

// Pipeline ingests datasets. Construct once per run.
type Pipeline struct {
	graph   GraphWriter
	embed   Embedder
	vectors VectorWriter
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates an ingest pipeline. embed and vectors may be nil when
// Options.SkipVectors is set.
func New(g GraphWriter, embed Embedder, vectors VectorWriter, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.EmbedRate <= 0 {
		opts.EmbedRate = DefaultOptions().EmbedRate
	}
	return &Pipeline{
		graph:   g,
		embed:   embed,
		vectors: vectors,
		opts:    opts,
		limiter: rate.NewLimiter(opts.EmbedRate, 1),
		logger:  logger,
	}
}

// Summary counts what one run wrote.
type Summary struct {
	Places      int `json:"places"`
	Hotels      int `json:"hotels"`
	Agencies    int `json:"agencies"`
	Reviews     int `json:"reviews"`
	Connections int `json:"connections"`
	Vectors     int `json:"vectors"`
}

// Run ingests one dataset: constraints, nodes, spatial connections, then
// embeddings. Individual review failures are logged and skipped; anything
// else aborts the run.
func (p *Pipeline) Run(ctx context.Context, ds Dataset) (Summary, error) {
	var sum Summary

	if err := validateDataset(ds); err != nil {
		return sum, err
	}
	if err := p.graph.EnsureConstraints(ctx); err != nil {
		return sum, fmt.Errorf("ingest: constraints: %w", err)
	}

	ds.Places = dedupePlaces(ds.Places, ds.City)
	for _, place := range ds.Places {
		if err := p.graph.SavePlace(ctx, place); err != nil {
			return sum, fmt.Errorf("ingest: place %s: %w", place.Name, err)
		}
		sum.Places++
	}
	for _, hotel := range ds.Hotels {
		if hotel.City == "" {
			hotel.City = ds.City
		}
		if err := p.graph.SaveHotel(ctx, hotel); err != nil {
			return sum, fmt.Errorf("ingest: hotel %s: %w", hotel.Name, err)
		}
		sum.Hotels++
	}
	for _, agency := range ds.Agencies {
		if agency.City == "" {
			agency.City = ds.City
		}
		if err := p.graph.SaveAgency(ctx, agency); err != nil {
			return sum, fmt.Errorf("ingest: agency %s: %w", agency.Name, err)
		}
		sum.Agencies++
	}
	for _, review := range ds.Reviews {
		err := p.graph.SaveReview(ctx, review.Place, graph.Review{
			Author: review.Author,
			Rating: review.Rating,
			Text:   review.Text,
		})
		if err != nil {
			p.logger.Warn("skipping review", "place", review.Place, "error", err)
			continue
		}
		sum.Reviews++
	}

	connected, err := p.graph.ConnectNearby(ctx)
	if err != nil {
		return sum, fmt.Errorf("ingest: connect nearby: %w", err)
	}
	sum.Connections = connected

	if p.opts.SkipVectors {
		return sum, nil
	}
	vectors, err := p.embedEntities(ctx, ds)
	if err != nil {
		return sum, err
	}
	sum.Vectors = vectors
	return sum, nil
}

// embedEntities embeds every place and hotel and upserts the vectors. Calls
// are paced by the rate limiter and retried on transient failures.
func (p *Pipeline) embedEntities(ctx context.Context, ds Dataset) (int, error) {
	docs := entityDocs(ds)
	if len(docs) == 0 {
		return 0, nil
	}

	records := make([]semantic.VectorRecord, 0, len(docs))
	for _, doc := range docs {
		if err := p.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("ingest: embed pacing: %w", err)
		}
		result := fn.Retry(ctx, fn.DefaultRetry,
			func(ctx context.Context) fn.Result[[]float32] {
				return fn.FromPair(p.embed.Embed(ctx, doc.text))
			})
		embedding, err := result.Unwrap()
		if err != nil {
			return 0, fmt.Errorf("ingest: embed %s: %w", doc.payload["name"], err)
		}
		records = append(records, semantic.VectorRecord{
			ID:        uuid.NewString(),
			Embedding: embedding,
			Payload:   doc.payload,
		})
	}

	if err := p.vectors.EnsureCollection(ctx, len(records[0].Embedding)); err != nil {
		return 0, fmt.Errorf("ingest: ensure collection: %w", err)
	}
	if err := p.vectors.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("ingest: upsert vectors: %w", err)
	}
	return len(records), nil
}

type entityDoc struct {
	text    string
	payload map[string]any
}

// entityDocs builds one embeddable document per place and hotel.
func entityDocs(ds Dataset) []entityDoc {
	placeDocs := fn.Map(ds.Places, func(p graph.Place) entityDoc {
		return entityDoc{
			text: strings.TrimSpace(fmt.Sprintf("%s. %s. %s", p.Name, p.Category, p.Description)),
			payload: map[string]any{
				"name": p.Name, "kind": "place", "city": cityOf(p.City, ds.City),
				"description": p.Description, "rating": p.Rating,
			},
		}
	})
	hotelDocs := fn.Map(ds.Hotels, func(h graph.Hotel) entityDoc {
		return entityDoc{
			text: strings.TrimSpace(fmt.Sprintf("%s. Hotel in %s.", h.Name, cityOf(h.City, ds.City))),
			payload: map[string]any{
				"name": h.Name, "kind": "hotel", "city": cityOf(h.City, ds.City),
				"rating": h.Rating,
			},
		}
	})
	docs := append(placeDocs, hotelDocs...)
	return fn.Filter(docs, func(d entityDoc) bool { return d.payload["name"] != "" })
}

func cityOf(own, fallback string) string {
	if own != "" {
		return own
	}
	return fallback
}

func validateDataset(ds Dataset) error {
	if len(ds.Places) == 0 && len(ds.Hotels) == 0 && len(ds.Agencies) == 0 {
		return fmt.Errorf("ingest: dataset is empty")
	}
	return nil
}

// dedupePlaces drops duplicate place names (case-folded) and fills the city.
func dedupePlaces(places []graph.Place, city string) []graph.Place {
	unique := fn.UniqueBy(places, func(p graph.Place) string {
		return strings.ToLower(strings.TrimSpace(p.Name))
	})
	return fn.FilterMap(unique, func(p graph.Place) (graph.Place, bool) {
		if strings.TrimSpace(p.Name) == "" {
			return p, false
		}
		if p.City == "" {
			p.City = city
		}
		return p, true
	})
}
