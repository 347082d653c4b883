package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/auth"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(apiHandler.logger)) // Structured request logging
	r.Use(middleware.Recoverer)             // Recover from panics
	r.Use(middleware.StripSlashes)          // Ensure consistent path handling

	r.Get("/", apiHandler.HealthHandler)

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", apiHandler.HealthHandler)
		if auth.Enabled() {
			r.Post("/token", apiHandler.TokenHandler)
		}

		// Token-protected when JWT_SECRET is set
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Post("/chat", apiHandler.ChatHandler)
			r.Post("/reset", apiHandler.ResetHandler)

			r.Get("/profile", apiHandler.GetProfileHandler)
			r.Post("/profile", apiHandler.SaveProfileHandler)

			r.Get("/quick-questions", apiHandler.QuickQuestionsHandler)
			r.Get("/search", apiHandler.SearchHandler)
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
