// Package agent orchestrates the travel assistant's LLM loop. It builds a
// profile-aware prompt, lets the model issue graph search, vector search,
// and route-planning tool calls, and loops until the model produces a final
// answer or the round cap is hit.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/exson6969/xplorer/engine/domain"
	"github.com/exson6969/xplorer/engine/graph"
	"github.com/exson6969/xplorer/engine/route"
	"github.com/exson6969/xplorer/engine/semantic"
	"github.com/exson6969/xplorer/pkg/gemini"
	"github.com/exson6969/xplorer/pkg/resilience"
)

// TextGenerator is the LLM surface the agent needs. *gemini.Client
// satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, system string, history []gemini.Turn, prompt string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GraphSearcher runs the structured graph lookups behind tool calls.
type GraphSearcher interface {
	SearchPlaces(ctx context.Context, req graph.FindPlaces) ([]graph.Place, error)
	SearchHotels(ctx context.Context, req graph.FindHotels) ([]graph.Hotel, error)
	TransportOptions(ctx context.Context, limit int) ([]graph.TransportOption, error)
}

// VectorSearcher runs free-text similarity lookups behind tool calls.
type VectorSearcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchResult, error)
}

// RoutePlanner builds day-by-day itineraries behind the plan_route tool.
// *route.Optimizer satisfies it.
type RoutePlanner interface {
	Optimize(ctx context.Context, days [][]string, homeBase string) route.Bundle
}

// Options configures the agent loop.
type Options struct {
	// MaxToolRounds caps model/tool iterations so the loop always
	// terminates.
	MaxToolRounds int
	// TopK bounds vector search results per tool call.
	TopK int
	// SystemPrompt overrides the default assistant instruction.
	SystemPrompt string
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxToolRounds: 4,
		TopK:          5,
		SystemPrompt:  defaultSystemPrompt,
	}
}

// Service is the travel assistant agent.
type Service struct {
	llm     TextGenerator
	graph   GraphSearcher
	vector  VectorSearcher
	planner RoutePlanner
	limiter *resilience.Limiter
	opts    Options
	logger  *slog.Logger

	// toolMu serializes tool execution: one in-flight request must not run
	// graph lookups from multiple tool calls at once.
	toolMu sync.Mutex
}

// New creates an agent Service. The limiter may be nil to disable rate
// limiting; a nil planner disables the plan_route tool.
func New(llm TextGenerator, g GraphSearcher, v VectorSearcher, planner RoutePlanner, limiter *resilience.Limiter, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultOptions().MaxToolRounds
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	return &Service{
		llm:     llm,
		graph:   g,
		vector:  v,
		planner: planner,
		limiter: limiter,
		opts:    opts,
		logger:  logger,
	}
}

// Reply is the agent's final answer for one chat turn.
type Reply struct {
	Text       string `json:"text"`
	ToolRounds int    `json:"tool_rounds"`
}

// loopState is the agent's position in the tool-calling loop.
type loopState int

const (
	awaitingModel loopState = iota
	executingTool
	loopDone
)

// Chat runs one turn of the conversation. History carries prior exchanges;
// the newest user input goes in query.
func (s *Service) Chat(ctx context.Context, profile domain.Profile, history []gemini.Turn, query string) (*Reply, error) {
	if err := domain.ValidateChatQuery(domain.ChatQuery{UID: profile.UID, Text: query}); err != nil {
		return nil, err
	}

	system := buildSystemPrompt(s.opts.SystemPrompt, profile)
	turns := make([]gemini.Turn, len(history))
	copy(turns, history)

	prompt := query
	rounds := 0
	state := awaitingModel

	for state != loopDone {
		switch state {
		case awaitingModel:
			if s.limiter != nil && !s.limiter.Allow() {
				return nil, resilience.ErrRateLimited
			}
			out, err := s.llm.Generate(ctx, system, turns, prompt)
			if err != nil {
				return nil, fmt.Errorf("agent: generate: %w", err)
			}

			call, ok := extractToolCall(out)
			if !ok || rounds >= s.opts.MaxToolRounds {
				return &Reply{Text: stripFences(out), ToolRounds: rounds}, nil
			}

			turns = append(turns,
				gemini.Turn{Role: "user", Text: prompt},
				gemini.Turn{Role: "model", Text: out})
			prompt = s.runTool(ctx, call)
			rounds++
			state = executingTool

		case executingTool:
			// Tool output becomes the next prompt; go ask the model again.
			state = awaitingModel
		}
	}
	return nil, fmt.Errorf("agent: unreachable loop exit")
}

// runTool parses and executes one tool call, returning the observation text
// fed back to the model. Parse and execution failures are reported to the
// model rather than the caller, so a bad call costs a round, not the turn.
func (s *Service) runTool(ctx context.Context, call []byte) string {
	req, err := graph.ParseSearchRequest(call)
	if err != nil {
		s.logger.Warn("rejected tool call", "error", err)
		return "TOOL_ERROR: " + err.Error()
	}

	s.toolMu.Lock()
	defer s.toolMu.Unlock()

	var result any
	switch r := req.(type) {
	case graph.FindPlaces:
		result, err = s.graph.SearchPlaces(ctx, r)
	case graph.FindHotels:
		result, err = s.graph.SearchHotels(ctx, r)
	case graph.FindCabs:
		result, err = s.graph.TransportOptions(ctx, r.Limit)
	case graph.VectorSearch:
		result, err = s.vectorSearch(ctx, r)
	case graph.PlanRoute:
		if s.planner == nil {
			err = fmt.Errorf("route planning unavailable")
		} else {
			// Optimize never fails; degraded results carry their own status.
			result = s.planner.Optimize(ctx, r.Days, r.HomeBase)
		}
	default:
		err = fmt.Errorf("unhandled tool %T", req)
	}
	if err != nil {
		s.logger.Warn("tool execution failed", "tool", fmt.Sprintf("%T", req), "error", err)
		return "TOOL_ERROR: " + err.Error()
	}

	b, err := json.Marshal(result)
	if err != nil {
		return "TOOL_ERROR: " + err.Error()
	}
	return "TOOL_RESULT: " + string(b)
}

func (s *Service) vectorSearch(ctx context.Context, r graph.VectorSearch) ([]semantic.SearchResult, error) {
	embedding, err := s.llm.Embed(ctx, r.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	topK := r.Limit
	if topK <= 0 {
		topK = s.opts.TopK
	}
	return s.vector.Search(ctx, embedding, topK)
}

// GenerateTitle asks the model for a short conversation title based on the
// opening exchange.
func (s *Service) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		return "", resilience.ErrRateLimited
	}
	out, err := s.llm.Generate(ctx, titlePrompt, nil, firstMessage)
	if err != nil {
		return "", fmt.Errorf("agent: title: %w", err)
	}
	return cleanTitle(out), nil
}
