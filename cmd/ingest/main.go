// Command ingest loads one or more city dataset files into Neo4j and Qdrant.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/time/rate"

	"github.com/exson6969/xplorer/engine/graph"
	"github.com/exson6969/xplorer/engine/ingest"
	"github.com/exson6969/xplorer/engine/semantic"
	"github.com/exson6969/xplorer/pkg/gemini"
	"github.com/exson6969/xplorer/pkg/metrics"
)

var met = metrics.New()

var (
	mDatasets    = met.Counter("xplorer_ingest_datasets_total", "Dataset files processed")
	mPlaces      = met.Counter("xplorer_ingest_places_total", "Place nodes written")
	mHotels      = met.Counter("xplorer_ingest_hotels_total", "Hotel nodes written")
	mAgencies    = met.Counter("xplorer_ingest_agencies_total", "Agency nodes written")
	mReviews     = met.Counter("xplorer_ingest_reviews_total", "Review nodes written")
	mConnections = met.Counter("xplorer_ingest_connections_total", "Spatial edges created")
	mVectors     = met.Counter("xplorer_ingest_vectors_total", "Vectors upserted")
	mErrors      = met.Counter("xplorer_ingest_errors_total", "Dataset files that failed")
	mDatasetDur  = met.Histogram("xplorer_ingest_dataset_duration_seconds", "Per-dataset pipeline time", nil)
)

func main() {
	var (
		neo4jURL    = flag.String("neo4j", "neo4j://localhost:7687", "Neo4j bolt URL")
		neo4jUser   = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass   = flag.String("neo4j-pass", "password", "Neo4j password")
		qdrantAddr  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection  = flag.String("collection", "xplorer", "Qdrant collection name")
		graphOnly   = flag.Bool("graph-only", false, "skip embeddings and the vector index")
		embedRate   = flag.Float64("embed-rate", 5, "embedding calls per second")
		metricsPort = flag.Int("metrics-port", 9091, "metrics listen port")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	if flag.NArg() == 0 {
		log.Error("usage: ingest [flags] dataset.json [dataset.json ...]")
		os.Exit(2)
	}

	met.ServeAsync(*metricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
	if err != nil {
		log.Error("neo4j connect failed", "error", err)
		os.Exit(1)
	}
	defer driver.Close(ctx)
	graphStore := graph.New(driver)

	var embedder ingest.Embedder
	var vectors ingest.VectorWriter
	if !*graphOnly {
		vectorStore, err := semantic.New(*qdrantAddr, *collection)
		if err != nil {
			log.Error("qdrant connect failed", "error", err)
			os.Exit(1)
		}
		defer vectorStore.Close()
		vectors = vectorStore
		embedder = gemini.New(os.Getenv("GEMINI_API_KEY"))
	}

	pipeline := ingest.New(graphStore, embedder, vectors, ingest.Options{
		EmbedRate:   rate.Limit(*embedRate),
		SkipVectors: *graphOnly,
	}, log)

	failed := 0
	for _, path := range flag.Args() {
		start := time.Now()
		ds, err := ingest.LoadDataset(path)
		if err != nil {
			log.Error("load failed", "path", path, "error", err)
			mErrors.Inc()
			failed++
			continue
		}

		sum, err := pipeline.Run(ctx, ds)
		if err != nil {
			log.Error("ingest failed", "path", path, "city", ds.City, "error", err)
			mErrors.Inc()
			failed++
			continue
		}

		mDatasets.Inc()
		mPlaces.Add(int64(sum.Places))
		mHotels.Add(int64(sum.Hotels))
		mAgencies.Add(int64(sum.Agencies))
		mReviews.Add(int64(sum.Reviews))
		mConnections.Add(int64(sum.Connections))
		mVectors.Add(int64(sum.Vectors))
		mDatasetDur.Since(start)

		log.Info("dataset ingested",
			"path", path,
			"city", ds.City,
			"places", sum.Places,
			"hotels", sum.Hotels,
			"agencies", sum.Agencies,
			"reviews", sum.Reviews,
			"connections", sum.Connections,
			"vectors", sum.Vectors,
			"took", time.Since(start),
		)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
