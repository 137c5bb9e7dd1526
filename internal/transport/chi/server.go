// Package chi implements the HTTP API surface.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/roommatch/internal/domain"
	healthuc "github.com/kailas-cloud/roommatch/internal/usecase/health"
	matchuc "github.com/kailas-cloud/roommatch/internal/usecase/match"
	onboardinguc "github.com/kailas-cloud/roommatch/internal/usecase/onboarding"
)

// ErrorResponseCode is the machine-readable error code in error bodies.
type ErrorResponseCode string

const (
	CodeBadRequest          ErrorResponseCode = "bad_request"
	CodeValidationFailed    ErrorResponseCode = "validation_failed"
	CodeNotFound            ErrorResponseCode = "not_found"
	CodeProviderUnavailable ErrorResponseCode = "provider_unavailable"
	CodeProviderRejected    ErrorResponseCode = "provider_rejected"
	CodeProviderMalformed   ErrorResponseCode = "provider_malformed"
	CodePersistenceError    ErrorResponseCode = "persistence_error"
	CodeInternalError       ErrorResponseCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Embedder vectorizes raw text for the /embed endpoint.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Matcher ranks listings for a seeker.
type Matcher interface {
	Match(ctx context.Context, seekerID string, params matchuc.Params) ([]domain.MatchResult, error)
}

// Onboarding drives the seeker interview and the chat relay.
type Onboarding interface {
	Next(ctx context.Context, seekerID, userID string) (onboardinguc.Step, error)
	Answer(ctx context.Context, seekerID, userID, answer string) (onboardinguc.Step, error)
	Profile(ctx context.Context, seekerID string) (domain.SeekerProfile, error)
	Chat(ctx context.Context, prompt string) (string, error)
}

// ListingStore is the listing persistence surface the API needs.
type ListingStore interface {
	Get(ctx context.Context, id string) (domain.Listing, error)
	Save(ctx context.Context, l domain.Listing) error
	List(ctx context.Context) ([]domain.Listing, error)
	Delete(ctx context.Context, id string) error
}

// EmbeddingWarmer pre-generates a listing embedding after a write so the
// first match does not pay the provider latency. Failure is non-fatal.
type EmbeddingWarmer interface {
	GetOrGenerate(ctx context.Context, entity domain.Entity) (domain.EmbeddingRecord, error)
}

// Server hosts the API handlers.
type Server struct {
	embedder      Embedder
	matcher       Matcher
	onboarding    Onboarding
	listings      ListingStore
	warmer        EmbeddingWarmer
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	embedder Embedder,
	matcher Matcher,
	onboarding Onboarding,
	listings ListingStore,
	warmer EmbeddingWarmer,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		embedder:   embedder,
		matcher:    matcher,
		onboarding: onboarding,
		listings:   listings,
		warmer:     warmer,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, CodeProviderUnavailable),
		sentinelHandler(domain.ErrUpstreamRejected, http.StatusBadGateway, CodeProviderRejected),
		sentinelHandler(domain.ErrUpstreamMalformed, http.StatusBadGateway, CodeProviderMalformed),
		sentinelHandler(domain.ErrPersistence, http.StatusInternalServerError, CodePersistenceError),
	}
	return s
}

// Routes registers the API endpoints on the router.
func (s *Server) Routes(r chirouter.Router) {
	r.Route("/api/v1", func(r chirouter.Router) {
		r.Post("/embed", s.Embed)
		r.Post("/match", s.Match)
		r.Post("/chat", s.Chat)

		r.Route("/listings", func(r chirouter.Router) {
			r.Get("/", s.ListListings)
			r.Put("/{id}", s.PutListing)
			r.Get("/{id}", s.GetListing)
			r.Delete("/{id}", s.DeleteListing)
		})

		r.Route("/seekers/{id}", func(r chirouter.Router) {
			r.Get("/", s.GetSeeker)
			r.Get("/next-question", s.NextQuestion)
			r.Post("/answers", s.PostAnswer)
		})
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// --- /embed ---

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding    []float32 `json:"embedding"`
	PromptTokens int       `json:"prompt_tokens,omitempty"`
	TotalTokens  int       `json:"total_tokens,omitempty"`
}

// Embed handles POST /api/v1/embed.
func (s *Server) Embed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.embedder.Embed(r.Context(), req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, embedResponse{
		Embedding:    result.Embedding,
		PromptTokens: result.PromptTokens,
		TotalTokens:  result.TotalTokens,
	})
}

// --- /match ---

type matchRequest struct {
	SeekerID  string   `json:"seeker_id"`
	Threshold *float64 `json:"threshold,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

type matchItem struct {
	ListingID string          `json:"listing_id"`
	Score     float64         `json:"score"`
	Listing   listingResponse `json:"listing"`
}

type matchResponse struct {
	Matches []matchItem `json:"matches"`
}

// Match handles POST /api/v1/match.
func (s *Server) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.SeekerID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "seeker_id is required")
		return
	}

	results, err := s.matcher.Match(r.Context(), req.SeekerID, matchuc.Params{
		Threshold: req.Threshold,
		Limit:     req.Limit,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]matchItem, len(results))
	for i, m := range results {
		items[i] = matchItem{
			ListingID: m.ListingID,
			Score:     m.Score,
			Listing:   listingToResponse(m.Listing),
		}
	}
	writeJSON(w, http.StatusOK, matchResponse{Matches: items})
}

// --- /chat ---

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat handles POST /api/v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	reply, err := s.onboarding.Chat(r.Context(), req.Prompt)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}

// --- listings ---

type listingRequest struct {
	ListerID      string   `json:"lister_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	RentPerMonth  float64  `json:"rent_per_month"`
	RoomType      string   `json:"room_type"`
	Amenities     []string `json:"amenities"`
	AvailableFrom string   `json:"available_from"`
	PhotoRefs     []string `json:"photo_refs"`
}

type listingResponse struct {
	ID            string    `json:"id"`
	ListerID      string    `json:"lister_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Location      string    `json:"location"`
	RentPerMonth  float64   `json:"rent_per_month"`
	RoomType      string    `json:"room_type,omitempty"`
	Amenities     []string  `json:"amenities,omitempty"`
	AvailableFrom string    `json:"available_from"`
	PhotoRefs     []string  `json:"photo_refs,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func listingToResponse(l domain.Listing) listingResponse {
	return listingResponse{
		ID:            l.EntityID(),
		ListerID:      l.ListerID(),
		Title:         l.Title(),
		Description:   l.Description(),
		Location:      l.Location(),
		RentPerMonth:  l.RentPerMonth(),
		RoomType:      l.RoomType(),
		Amenities:     l.Amenities(),
		AvailableFrom: l.AvailableFrom(),
		PhotoRefs:     l.PhotoRefs(),
		CreatedAt:     l.CreatedAt(),
	}
}

// PutListing handles PUT /api/v1/listings/{id}: create or replace.
func (s *Server) PutListing(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")

	var req listingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	listing, err := domain.NewListing(
		id, req.ListerID, req.Title, req.Description, req.Location,
		req.RentPerMonth, req.RoomType, req.Amenities, req.AvailableFrom, req.PhotoRefs,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if err := s.listings.Save(r.Context(), listing); err != nil {
		s.handleDomainError(w, err)
		return
	}

	// Warm the embedding so the first match query does not block on the
	// provider. Generation stays idempotent; failure here is not the
	// caller's problem.
	if s.warmer != nil {
		if _, err := s.warmer.GetOrGenerate(r.Context(), &listing); err != nil {
			s.logger.Warn("listing embedding warm-up failed",
				zap.String("listing_id", id), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, listingToResponse(listing))
}

// GetListing handles GET /api/v1/listings/{id}.
func (s *Server) GetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := s.listings.Get(r.Context(), chirouter.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listingToResponse(listing))
}

// ListListings handles GET /api/v1/listings.
func (s *Server) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.listings.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]listingResponse, len(listings))
	for i, l := range listings {
		items[i] = listingToResponse(l)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// DeleteListing handles DELETE /api/v1/listings/{id}. The repository
// cascades the embedding record.
func (s *Server) DeleteListing(w http.ResponseWriter, r *http.Request) {
	if err := s.listings.Delete(r.Context(), chirouter.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- seekers ---

type stepResponse struct {
	Question string `json:"question,omitempty"`
	Index    int    `json:"index"`
	Total    int    `json:"total"`
	Done     bool   `json:"done"`
}

type answerRequest struct {
	Answer string `json:"answer"`
	UserID string `json:"user_id,omitempty"`
}

type qaResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type seekerResponse struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Answers   []qaResponse `json:"answers"`
	Completed bool         `json:"completed_onboarding"`
}

// NextQuestion handles GET /api/v1/seekers/{id}/next-question.
func (s *Server) NextQuestion(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = id
	}

	step, err := s.onboarding.Next(r.Context(), id, userID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stepToResponse(step))
}

// PostAnswer handles POST /api/v1/seekers/{id}/answers.
func (s *Server) PostAnswer(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = id
	}

	step, err := s.onboarding.Answer(r.Context(), id, userID, req.Answer)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stepToResponse(step))
}

// GetSeeker handles GET /api/v1/seekers/{id}.
func (s *Server) GetSeeker(w http.ResponseWriter, r *http.Request) {
	profile, err := s.onboarding.Profile(r.Context(), chirouter.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	answers := make([]qaResponse, len(profile.Answers()))
	for i, qa := range profile.Answers() {
		answers[i] = qaResponse{Question: qa.Question, Answer: qa.Answer}
	}
	writeJSON(w, http.StatusOK, seekerResponse{
		ID:        profile.EntityID(),
		UserID:    profile.UserID(),
		Answers:   answers,
		Completed: profile.Completed(),
	})
}

func stepToResponse(step onboardinguc.Step) stepResponse {
	return stepResponse{
		Question: step.Question,
		Index:    step.Index,
		Total:    step.Total,
		Done:     step.Done,
	}
}

// --- health ---

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- helpers ---

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrUpstreamUnavailable,
		domain.ErrUpstreamRejected,
		domain.ErrUpstreamMalformed,
		domain.ErrPersistence,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}
