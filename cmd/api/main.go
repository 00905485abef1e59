// Package main implements the Xplorer API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/exson6969/xplorer/engine/agent"
	"github.com/exson6969/xplorer/engine/graph"
	"github.com/exson6969/xplorer/engine/route"
	"github.com/exson6969/xplorer/engine/semantic"
	"github.com/exson6969/xplorer/engine/store"
	"github.com/exson6969/xplorer/pkg/auth"
	"github.com/exson6969/xplorer/pkg/gemini"
	"github.com/exson6969/xplorer/pkg/metrics"
	"github.com/exson6969/xplorer/pkg/mid"
	"github.com/exson6969/xplorer/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port         string
	Neo4jURL     string
	Neo4jUser    string
	Neo4jPass    string
	RedisAddr    string
	RedisPass    string
	RedisDB      int
	QdrantURL    string
	Collection   string
	GeminiAPIKey string
	NATSUrl      string
	CORSOrigin   string
	ChatRate     float64
	ChatBurst    int
}

func loadConfig() Config {
	return Config{
		Port:         envOr("PORT", "8080"),
		Neo4jURL:     envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:    envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:    envOr("NEO4J_PASS", "password"),
		RedisAddr:    envOr("REDIS_ADDR", "localhost:6379"),
		RedisPass:    os.Getenv("REDIS_PASS"),
		RedisDB:      envInt("REDIS_DB", 0),
		QdrantURL:    envOr("QDRANT_URL", "localhost:6334"),
		Collection:   envOr("QDRANT_COLLECTION", "xplorer"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		NATSUrl:      os.Getenv("NATS_URL"),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
		ChatRate:     envFloat("CHAT_RATE", 2),
		ChatBurst:    envInt("CHAT_BURST", 5),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to Neo4j ---
	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer neo4jDriver.Close(ctx)

	graphStore := graph.New(neo4jDriver)

	// --- Connect to Redis ---
	userStore := store.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer userStore.Close()

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	// --- Connect to NATS (optional) ---
	var events *Events
	if cfg.NATSUrl != "" {
		nc, err := nats.Connect(cfg.NATSUrl)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		events = NewEvents(nc)
	}

	// --- Build the assistant ---
	llm := &guardedLLM{
		inner:   gemini.New(cfg.GeminiAPIKey),
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
	limiter := resilience.NewLimiter(resilience.LimiterOpts{Rate: cfg.ChatRate, Burst: cfg.ChatBurst})
	optimizer := route.New(graphStore, logger)
	assistant := agent.New(llm, graphStore, vectorStore, optimizer, limiter, agent.DefaultOptions(), logger)

	srv := newServer(serverDeps{
		store:     userStore,
		graph:     graphStore,
		reviews:   graph.NewReviewRepo(neo4jDriver),
		assistant: assistant,
		optimizer: optimizer,
		events:    events,
		registry:  metrics.New(),
		logger:    logger,
	})

	verifier := auth.NewVerifierFromEnv()
	handler := mid.Chain(srv.routes(verifier),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("xplorer-api"),
	)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}

// guardedLLM routes model calls through a circuit breaker so a failing
// upstream stops burning quota and request time.
type guardedLLM struct {
	inner   agent.TextGenerator
	breaker *resilience.Breaker
}

func (g *guardedLLM) Generate(ctx context.Context, system string, history []gemini.Turn, prompt string) (string, error) {
	var out string
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Generate(ctx, system, history, prompt)
		return err
	})
	return out, err
}

func (g *guardedLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Embed(ctx, text)
		return err
	})
	return out, err
}
