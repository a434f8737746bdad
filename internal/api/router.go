package api

import (
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds settings for the API router.
type RouterConfig struct {
	// BackendAPIKey is the key that must be provided in X-API-Key or Authorization: Bearer <key>.
	// If empty, auth middleware is skipped (development mode).
	BackendAPIKey string

	// CorsAllowedOrigins is a comma-separated list of allowed origins.
	// If empty, defaults to "*" (development mode).
	CorsAllowedOrigins string

	// RecognitionEnabled mounts the recognition backend proxy routes.
	RecognitionEnabled bool
}

func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   parseOrigins(cfg.CorsAllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Must be set before Route so the /api subrouter inherits it
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}

		r.Post("/gemini-tts", h.GeminiTTS)
		r.Post("/sync-user", h.SyncUser)

		if cfg.RecognitionEnabled && h.recognition != nil {
			r.Get("/status", h.RecognitionStatus)
			r.Post("/reset", h.RecognitionReset)
			r.Post("/patch-sentence", h.RecognitionPatchSentence)
			r.Get("/video-feed", h.RecognitionVideoFeed)
		}
	})

	return r
}

// parseOrigins splits the configured origin list, defaulting to "*".
func parseOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, o := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
