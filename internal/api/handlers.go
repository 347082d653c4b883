package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/auth"
	"github.com/runcoach-ai/runcoach/internal/profile"
	"github.com/runcoach-ai/runcoach/internal/store"
)

// QuickQuestions are the canned prompts offered by clients.
var QuickQuestions = []string{
	"🏃 How do I start running as a beginner?",
	"🍎 What should I eat before a run?",
	"💪 Create a training plan for me",
	"🤕 How can I prevent injuries?",
	"⏱️ What's a good warm-up routine?",
	"🎯 Help me prepare for a 5K",
}

const searchResultCount = 3

type Coach interface {
	Chat(ctx context.Context, message string, p *profile.Profile) (string, error)
	Reset(ctx context.Context) error
}

type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*profile.Profile, error)
	SaveProfile(ctx context.Context, id string, p profile.Profile) error
}

type Searcher interface {
	Search(ctx context.Context, query string, k int) (string, []string, error)
}

type APIHandler struct {
	coach    Coach
	profiles ProfileStore
	search   Searcher
	logger   *zap.Logger
}

func NewAPIHandler(coach Coach, profiles ProfileStore, search Searcher, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		coach:    coach,
		profiles: profiles,
		search:   search,
		logger:   logger.With(zap.String("module", "api")),
	}
}

type contextKey string

const clientIDKey contextKey = "clientID"

// ClientID returns the authenticated token subject, if any.
func ClientID(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey).(string)
	return id
}

// JWTAuthMiddleware requires a valid bearer token when token auth is enabled
// and is a pass-through otherwise.
func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		clientID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), clientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "RunCoach AI is running! 🏃",
	})
}

type TokenRequest struct {
	ClientID string `json:"client_id"`
}

func (h *APIHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ClientID) == "" {
		http.Error(w, "client_id is required", http.StatusBadRequest)
		return
	}

	token, err := auth.GenerateJWT(req.ClientID)
	if err != nil {
		h.logger.Error("failed to generate token", zap.String("client_id", req.ClientID), zap.Error(err))
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type ChatRequest struct {
	Message     string           `json:"message"`
	UserProfile *profile.Profile `json:"user_profile,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "Message cannot be empty", http.StatusBadRequest)
		return
	}

	reply, err := h.coach.Chat(r.Context(), req.Message, req.UserProfile)
	if err != nil {
		h.logger.Error("chat failed", zap.String("client_id", ClientID(r.Context())), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ChatResponse{
			Response: fmt.Sprintf("I encountered an error: %v. Please try again.", err),
			Success:  false,
		})
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: reply, Success: true})
}

func (h *APIHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.coach.Reset(r.Context()); err != nil {
		h.logger.Error("reset failed", zap.Error(err))
		http.Error(w, "Failed to reset conversation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat history cleared!"})
}

func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetProfile(r.Context(), store.DefaultProfileID)
	if err != nil {
		h.logger.Error("failed to load profile", zap.Error(err))
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}
	if p == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type SaveProfileResponse struct {
	Message string          `json:"message"`
	Profile profile.Profile `json:"profile"`
}

func (h *APIHandler) SaveProfileHandler(w http.ResponseWriter, r *http.Request) {
	// Fields missing from the body keep their defaults.
	p := profile.Default()
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := p.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.profiles.SaveProfile(r.Context(), store.DefaultProfileID, p); err != nil {
		h.logger.Error("failed to save profile", zap.Error(err))
		http.Error(w, "Failed to save profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, SaveProfileResponse{Message: "Profile saved!", Profile: p})
}

func (h *APIHandler) QuickQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"questions": QuickQuestions})
}

type SearchResponse struct {
	Results string   `json:"results"`
	Sources []string `json:"sources"`
}

func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		http.Error(w, "query parameter is required", http.StatusBadRequest)
		return
	}

	results, sources, err := h.search.Search(r.Context(), query, searchResultCount)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results, Sources: sources})
}
