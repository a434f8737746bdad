package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobarin/signspeak/internal/api"
	"github.com/bobarin/signspeak/internal/cache"
	"github.com/bobarin/signspeak/internal/config"
	"github.com/bobarin/signspeak/internal/db"
	"github.com/bobarin/signspeak/internal/services"
)

func main() {
	log.Println("Starting SignSpeak API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Speech synthesis: one process-wide audio cache, owned here and passed down
	var speech *services.SpeechGateway
	if cfg.GeminiKey != "" {
		audioCache := cache.NewAudioCache(cfg.TTSCacheSize)
		geminiSvc := services.NewGeminiTTSServiceWithEndpoint(cfg.GeminiKey, cfg.GeminiTTSBaseURL, cfg.GeminiTTSModel, cfg.GeminiTTSTimeout)
		speech = services.NewSpeechGateway(geminiSvc, audioCache, services.SpeechGatewayConfig{
			DefaultVoice:   cfg.DefaultVoice,
			PromptTemplate: cfg.PrimaryPromptTmpl,
			Retry: services.RetryPolicy{
				MaxAttempts:    cfg.TTSMaxAttempts,
				RateLimitDelay: cfg.RateLimitRetryWait,
				NoAudioDelay:   cfg.NoAudioRetryWait,
				RetryAfterHint: cfg.RateLimitRetryHint,
			},
		})
		log.Printf("Gemini TTS enabled (model: %s, default voice: %s, cache size: %d)", cfg.GeminiTTSModel, cfg.DefaultVoice, cfg.TTSCacheSize)
	} else {
		log.Println("WARNING: No GEMINI_API_KEY set — /api/gemini-tts will return 500")
	}

	// Connect to database (optional, only needed for user sync)
	var users api.UserStore
	if cfg.DatabaseURL != "" {
		database, err := db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		users = database
		log.Println("Connected to database")
	} else {
		log.Println("No DATABASE_URL set — user sync disabled")
	}

	var recognition *services.RecognitionService
	if cfg.RecognitionEnabled {
		recognition = services.NewRecognitionService(cfg.RecognitionURL)
		log.Printf("Recognition proxy enabled (backend: %s)", cfg.RecognitionURL)
	}

	// Create API handler
	handler := api.NewHandler(speech, users, recognition)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		RecognitionEnabled: cfg.RecognitionEnabled,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
