package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database (user profile sync; empty disables /api/sync-user)
	DatabaseURL string

	// Sign recognition backend
	RecognitionEnabled bool
	RecognitionURL     string

	// Gemini TTS
	GeminiKey          string
	GeminiTTSModel     string
	GeminiTTSBaseURL   string
	GeminiTTSTimeout   time.Duration
	DefaultVoice       string
	PrimaryPromptTmpl  string // must contain exactly one %s for the input text
	TTSCacheSize       int
	TTSMaxAttempts     int
	RateLimitRetryWait time.Duration
	NoAudioRetryWait   time.Duration
	RateLimitRetryHint time.Duration // suggested wait returned to clients on 429
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	geminiKey := getEnv("GEMINI_API_KEY", "")
	if geminiKey == "" {
		geminiKey = getEnv("GOOGLE_API_KEY", "")
	}

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RecognitionEnabled: getEnvBool("RECOGNITION_PROXY_ENABLED", true),
		RecognitionURL:     getEnv("FLASK_BACKEND_URL", "http://localhost:5000"),
		GeminiKey:          geminiKey,
		GeminiTTSModel:     getEnv("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		GeminiTTSBaseURL:   getEnv("GEMINI_TTS_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiTTSTimeout:   time.Duration(getEnvInt("GEMINI_TTS_TIMEOUT_SECONDS", 60)) * time.Second,
		DefaultVoice:       getEnv("GEMINI_TTS_DEFAULT_VOICE", "Kore"),
		PrimaryPromptTmpl:  getEnv("GEMINI_TTS_PROMPT_TEMPLATE", `Read the following Malayalam text clearly: "%s"`),
		TTSCacheSize:       getEnvInt("TTS_CACHE_SIZE", 50),
		TTSMaxAttempts:     getEnvInt("TTS_MAX_ATTEMPTS", 3),
		RateLimitRetryWait: time.Duration(getEnvInt("TTS_RATE_LIMIT_RETRY_DELAY_MS", 1000)) * time.Millisecond,
		NoAudioRetryWait:   time.Duration(getEnvInt("TTS_NO_AUDIO_RETRY_DELAY_MS", 500)) * time.Millisecond,
		RateLimitRetryHint: time.Duration(getEnvInt("TTS_RETRY_AFTER_MS", 5000)) * time.Millisecond,
	}

	if strings.Count(cfg.PrimaryPromptTmpl, "%s") != 1 {
		return nil, fmt.Errorf("GEMINI_TTS_PROMPT_TEMPLATE must contain exactly one %%s placeholder")
	}

	if cfg.TTSCacheSize < 1 {
		return nil, fmt.Errorf("TTS_CACHE_SIZE must be at least 1 (got %d)", cfg.TTSCacheSize)
	}

	if cfg.TTSMaxAttempts < 1 || cfg.TTSMaxAttempts > 3 {
		return nil, fmt.Errorf("TTS_MAX_ATTEMPTS must be between 1 and 3 (got %d)", cfg.TTSMaxAttempts)
	}

	if cfg.RateLimitRetryWait < 0 || cfg.NoAudioRetryWait < 0 || cfg.GeminiTTSTimeout <= 0 {
		return nil, fmt.Errorf("TTS delays must be non-negative and GEMINI_TTS_TIMEOUT_SECONDS positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
