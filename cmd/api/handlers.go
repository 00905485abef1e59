package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/exson6969/xplorer/engine/agent"
	"github.com/exson6969/xplorer/engine/domain"
	"github.com/exson6969/xplorer/engine/graph"
	"github.com/exson6969/xplorer/engine/route"
	"github.com/exson6969/xplorer/engine/store"
	"github.com/exson6969/xplorer/pkg/gemini"
	"github.com/exson6969/xplorer/pkg/metrics"
	"github.com/exson6969/xplorer/pkg/mid"
	"github.com/exson6969/xplorer/pkg/repo"
	"github.com/exson6969/xplorer/pkg/resilience"
)

// userStore is the Redis-backed state the handlers need.
type userStore interface {
	SaveProfile(ctx context.Context, userID string, p domain.Profile) error
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	DeleteProfile(ctx context.Context, userID string) error
	CreateConversation(ctx context.Context, userID, title string) (store.Conversation, error)
	GetConversation(ctx context.Context, userID, convoID string) (store.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]store.Conversation, error)
	AppendMessage(ctx context.Context, userID, convoID string, msg store.Message) error
	GetHistory(ctx context.Context, userID, convoID string) ([]store.Message, error)
	RenameConversation(ctx context.Context, userID, convoID, title string) error
	DeleteConversation(ctx context.Context, userID, convoID string) error
	SaveHotelBooking(ctx context.Context, userID string, b store.HotelBooking) (store.HotelBooking, error)
	SaveTransportBooking(ctx context.Context, userID string, b store.TransportBooking) (store.TransportBooking, error)
	ListHotelBookings(ctx context.Context, userID string) ([]store.HotelBooking, error)
	ListTransportBookings(ctx context.Context, userID string) ([]store.TransportBooking, error)
	DeleteHotelBooking(ctx context.Context, userID, bookingID string) error
	DeleteTransportBooking(ctx context.Context, userID, bookingID string) error
}

// graphReader is the Neo4j read surface the handlers need.
type graphReader interface {
	TransportOptions(ctx context.Context, limit int) ([]graph.TransportOption, error)
	NodeCounts(ctx context.Context) (map[string]int64, error)
	RelationshipCounts(ctx context.Context) (map[string]int64, error)
	TopCities(ctx context.Context, limit int) ([]graph.CityStats, error)
}

// chatService is the assistant surface the handlers need.
type chatService interface {
	Chat(ctx context.Context, profile domain.Profile, history []gemini.Turn, query string) (*agent.Reply, error)
	GenerateTitle(ctx context.Context, firstMessage string) (string, error)
}

// tripOptimizer builds itineraries.
type tripOptimizer interface {
	Optimize(ctx context.Context, days [][]string, homeBase string) route.Bundle
}

type serverDeps struct {
	store     userStore
	graph     graphReader
	reviews   repo.Repository[graph.Review, string]
	assistant chatService
	optimizer tripOptimizer
	events    *Events
	registry  *metrics.Registry
	logger    *slog.Logger
}

type server struct {
	serverDeps

	chatRequests  *metrics.Counter
	tripRequests  *metrics.Counter
	tripDurations *metrics.Histogram
}

func newServer(deps serverDeps) *server {
	if deps.registry == nil {
		deps.registry = metrics.New()
	}
	if deps.logger == nil {
		deps.logger = slog.Default()
	}
	return &server{
		serverDeps:    deps,
		chatRequests:  deps.registry.Counter("chat_requests_total", "Chat requests received."),
		tripRequests:  deps.registry.Counter("trip_requests_total", "Itinerary requests received."),
		tripDurations: deps.registry.Histogram("trip_optimize_seconds", "Itinerary build duration.", nil),
	}
}

// routes builds the HTTP handler. Everything under /api except the health
// check requires a bearer token.
func (s *server) routes(verifier mid.TokenVerifier) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/users/{uid}/profile", s.handleSaveProfile)
	api.HandleFunc("GET /api/users/{uid}/profile", s.handleGetProfile)
	api.HandleFunc("DELETE /api/users/{uid}/profile", s.handleDeleteProfile)
	api.HandleFunc("POST /api/users/{uid}/conversations", s.handleCreateConversation)
	api.HandleFunc("GET /api/users/{uid}/conversations", s.handleListConversations)
	api.HandleFunc("GET /api/users/{uid}/conversations/{id}", s.handleGetConversation)
	api.HandleFunc("PATCH /api/users/{uid}/conversations/{id}", s.handleRenameConversation)
	api.HandleFunc("DELETE /api/users/{uid}/conversations/{id}", s.handleDeleteConversation)
	api.HandleFunc("POST /api/users/{uid}/bookings/hotels", s.handleBookHotel)
	api.HandleFunc("GET /api/users/{uid}/bookings/hotels", s.handleListHotelBookings)
	api.HandleFunc("DELETE /api/users/{uid}/bookings/hotels/{id}", s.handleDeleteHotelBooking)
	api.HandleFunc("POST /api/users/{uid}/bookings/transport", s.handleBookTransport)
	api.HandleFunc("GET /api/users/{uid}/bookings/transport", s.handleListTransportBookings)
	api.HandleFunc("DELETE /api/users/{uid}/bookings/transport/{id}", s.handleDeleteTransportBooking)
	api.HandleFunc("POST /api/chat", s.handleChat)
	api.HandleFunc("POST /api/trips/optimize", s.handleOptimize)
	api.HandleFunc("GET /api/transport", s.handleTransportOptions)
	api.HandleFunc("GET /api/stats", s.handleStats)
	api.HandleFunc("GET /api/reviews", s.handleListReviews)
	api.HandleFunc("GET /api/reviews/{id}", s.handleGetReview)
	api.HandleFunc("DELETE /api/reviews/{id}", s.handleDeleteReview)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.Handle("GET /metrics", s.registry.Handler())
	mux.Handle("/api/", mid.Chain(api, mid.Auth(verifier)))
	return mux
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Profile ---

func (s *server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	var p domain.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.SaveProfile(r.Context(), uid, p); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeErr(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.fail(w, "save profile", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uid": uid})
}

func (s *server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	p, err := s.store.GetProfile(r.Context(), uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "profile not found")
			return
		}
		s.fail(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteProfile(r.Context(), uid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "profile not found")
			return
		}
		s.fail(w, "delete profile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Conversations ---

func (s *server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	var body struct {
		Title string `json:"conversation_title"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	convo, err := s.store.CreateConversation(r.Context(), uid, body.Title)
	if err != nil {
		s.fail(w, "create conversation", err)
		return
	}
	writeJSON(w, http.StatusCreated, convo)
}

func (s *server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	convos, err := s.store.ListConversations(r.Context(), uid)
	if err != nil {
		s.fail(w, "list conversations", err)
		return
	}
	writeJSON(w, http.StatusOK, convos)
}

func (s *server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	convoID := r.PathValue("id")
	convo, err := s.store.GetConversation(r.Context(), uid, convoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.fail(w, "get conversation", err)
		return
	}
	history, err := s.store.GetHistory(r.Context(), uid, convoID)
	if err != nil {
		s.fail(w, "get history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": convo,
		"messages":     history,
	})
}

func (s *server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	var body struct {
		Title string `json:"conversation_title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
		writeErr(w, http.StatusBadRequest, "conversation_title is required")
		return
	}
	if err := s.store.RenameConversation(r.Context(), uid, r.PathValue("id"), body.Title); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.fail(w, "rename conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"conversation_title": body.Title})
}

func (s *server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteConversation(r.Context(), uid, r.PathValue("id")); err != nil {
		s.fail(w, "delete conversation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Chat ---

// ChatRequest is the JSON body for POST /api/chat.
type ChatRequest struct {
	UID            string `json:"uid"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatResponse is the JSON response for POST /api/chat.
type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Answer         string `json:"answer"`
	ToolRounds     int    `json:"tool_rounds"`
	Title          string `json:"conversation_title,omitempty"`
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.chatRequests.Inc()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UID == "" || req.Message == "" {
		writeErr(w, http.StatusBadRequest, "uid and message are required")
		return
	}
	if !s.sameUser(w, r, req.UID) {
		return
	}
	ctx := r.Context()

	// Profile is optional; a traveller can chat before filling one in.
	profile, err := s.store.GetProfile(ctx, req.UID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.fail(w, "get profile", err)
		return
	}

	convoID := req.ConversationID
	if convoID == "" {
		convo, err := s.store.CreateConversation(ctx, req.UID, "")
		if err != nil {
			s.fail(w, "create conversation", err)
			return
		}
		convoID = convo.ID
	}

	history, err := s.store.GetHistory(ctx, req.UID, convoID)
	if err != nil {
		s.fail(w, "get history", err)
		return
	}

	reply, err := s.assistant.Chat(ctx, profile, historyTurns(history), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, resilience.ErrRateLimited):
			writeErr(w, http.StatusTooManyRequests, "too many requests, slow down")
		case errors.Is(err, resilience.ErrCircuitOpen):
			writeErr(w, http.StatusServiceUnavailable, "assistant temporarily unavailable")
		default:
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				writeErr(w, http.StatusBadRequest, verr.Error())
				return
			}
			s.fail(w, "chat", err)
		}
		return
	}

	msg := store.Message{
		UserInput: req.Message,
		AIOutput:  reply.Text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.store.AppendMessage(ctx, req.UID, convoID, msg); err != nil {
		s.fail(w, "append message", err)
		return
	}

	// First exchange names the conversation. Best effort: a failed title
	// never fails the chat.
	var title string
	if len(history) == 0 {
		if t, err := s.assistant.GenerateTitle(ctx, req.Message); err == nil {
			if err := s.store.RenameConversation(ctx, req.UID, convoID, t); err == nil {
				title = t
			}
		} else {
			s.logger.Warn("title generation failed", "err", err)
		}
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		ConversationID: convoID,
		Answer:         reply.Text,
		ToolRounds:     reply.ToolRounds,
		Title:          title,
	})
}

// historyTurns flattens stored exchanges into model turns, oldest first.
func historyTurns(msgs []store.Message) []gemini.Turn {
	turns := make([]gemini.Turn, 0, len(msgs)*2)
	for _, m := range msgs {
		if m.UserInput != "" {
			turns = append(turns, gemini.Turn{Role: "user", Text: m.UserInput})
		}
		if m.AIOutput != "" {
			turns = append(turns, gemini.Turn{Role: "model", Text: m.AIOutput})
		}
	}
	return turns
}

// --- Trips ---

// TripRequest is the JSON body for POST /api/trips/optimize. Places is the
// flat single-day form; Days wins when both are present.
type TripRequest struct {
	UID      string     `json:"uid,omitempty"`
	Places   []string   `json:"places,omitempty"`
	Days     [][]string `json:"days,omitempty"`
	HomeBase string     `json:"home_base,omitempty"`
}

func (s *server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	s.tripRequests.Inc()

	var req TripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	trip := domain.TripRequest{Days: req.Days, HomeBase: req.HomeBase}
	if len(trip.Days) == 0 && len(req.Places) > 0 {
		trip = domain.SingleDay(req.Places, req.HomeBase)
	}
	if err := domain.ValidateTripRequest(trip); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	bundle := s.optimizer.Optimize(r.Context(), trip.Days, trip.HomeBase)
	s.tripDurations.Since(start)

	if err := s.events.TripOptimized(r.Context(), TripOptimizedEvent{
		UserID:            req.UID,
		Status:            string(bundle.Status),
		Days:              len(bundle.Days),
		TotalRoadTimeMins: bundle.TotalRoadTimeMins,
	}); err != nil {
		s.logger.Warn("trip event publish failed", "err", err)
	}

	writeJSON(w, http.StatusOK, bundle)
}

// --- Bookings ---

func (s *server) handleBookHotel(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	var b store.HotelBooking
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if b.HotelName == "" {
		writeErr(w, http.StatusBadRequest, "hotel_name is required")
		return
	}
	saved, err := s.store.SaveHotelBooking(r.Context(), uid, b)
	if err != nil {
		s.fail(w, "save hotel booking", err)
		return
	}
	s.publishBooking(r.Context(), uid, "hotel", saved.ID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *server) handleListHotelBookings(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	bookings, err := s.store.ListHotelBookings(r.Context(), uid)
	if err != nil {
		s.fail(w, "list hotel bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *server) handleBookTransport(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	var b store.TransportBooking
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if b.AgencyName == "" {
		writeErr(w, http.StatusBadRequest, "agency_name is required")
		return
	}
	saved, err := s.store.SaveTransportBooking(r.Context(), uid, b)
	if err != nil {
		s.fail(w, "save transport booking", err)
		return
	}
	s.publishBooking(r.Context(), uid, "transport", saved.ID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *server) handleListTransportBookings(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	bookings, err := s.store.ListTransportBookings(r.Context(), uid)
	if err != nil {
		s.fail(w, "list transport bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *server) handleDeleteHotelBooking(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteHotelBooking(r.Context(), uid, r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "booking not found")
			return
		}
		s.fail(w, "delete hotel booking", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleDeleteTransportBooking(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.pathUID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteTransportBooking(r.Context(), uid, r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "booking not found")
			return
		}
		s.fail(w, "delete transport booking", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) publishBooking(ctx context.Context, uid, kind, id string) {
	err := s.events.BookingCreated(ctx, BookingCreatedEvent{UserID: uid, Kind: kind, BookingID: id})
	if err != nil {
		s.logger.Warn("booking event publish failed", "err", err)
	}
}

// --- Transport catalogue and stats ---

func (s *server) handleTransportOptions(w http.ResponseWriter, r *http.Request) {
	limit := graph.DefaultTransportLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			writeErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	options, err := s.graph.TransportOptions(r.Context(), limit)
	if err != nil {
		s.fail(w, "transport options", err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.graph.NodeCounts(r.Context())
	if err != nil {
		s.fail(w, "node counts", err)
		return
	}
	rels, err := s.graph.RelationshipCounts(r.Context())
	if err != nil {
		s.fail(w, "relationship counts", err)
		return
	}
	cities, err := s.graph.TopCities(r.Context(), 10)
	if err != nil {
		s.fail(w, "top cities", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes":         nodes,
		"relationships": rels,
		"top_cities":    cities,
	})
}

// --- Review moderation ---

func (s *server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	opts := repo.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}
	reviews, err := s.reviews.List(r.Context(), opts)
	if err != nil {
		s.fail(w, "list reviews", err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	review, err := s.reviews.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "review not found")
			return
		}
		s.fail(w, "get review", err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := s.reviews.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, "delete review", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if q := r.URL.Query().Get(key); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

// --- Helpers ---

// pathUID returns the {uid} path segment after checking it matches the
// authenticated caller.
func (s *server) pathUID(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := r.PathValue("uid")
	if uid == "" {
		writeErr(w, http.StatusBadRequest, "uid is required")
		return "", false
	}
	if !s.sameUser(w, r, uid) {
		return "", false
	}
	return uid, true
}

func (s *server) sameUser(w http.ResponseWriter, r *http.Request, uid string) bool {
	if id, ok := mid.IdentityFrom(r.Context()); ok && id.UID != uid {
		writeErr(w, http.StatusForbidden, "token does not match user")
		return false
	}
	return true
}

func (s *server) fail(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "err", err)
	writeErr(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
