package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIPort != "8080" {
		t.Errorf("expected APIPort=8080, got %s", cfg.APIPort)
	}
	if cfg.DefaultVoice != "Kore" {
		t.Errorf("expected DefaultVoice=Kore, got %s", cfg.DefaultVoice)
	}
	if cfg.TTSCacheSize != 50 {
		t.Errorf("expected TTSCacheSize=50, got %d", cfg.TTSCacheSize)
	}
	if cfg.TTSMaxAttempts != 3 {
		t.Errorf("expected TTSMaxAttempts=3, got %d", cfg.TTSMaxAttempts)
	}
	if cfg.RateLimitRetryWait != time.Second {
		t.Errorf("expected RateLimitRetryWait=1s, got %v", cfg.RateLimitRetryWait)
	}
	if cfg.NoAudioRetryWait != 500*time.Millisecond {
		t.Errorf("expected NoAudioRetryWait=500ms, got %v", cfg.NoAudioRetryWait)
	}
	if cfg.RateLimitRetryHint != 5*time.Second {
		t.Errorf("expected RateLimitRetryHint=5s, got %v", cfg.RateLimitRetryHint)
	}
	if !cfg.RecognitionEnabled {
		t.Error("expected recognition proxy to be enabled by default")
	}
}

func TestLoadGoogleAPIKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GeminiKey != "google-key" {
		t.Errorf("expected GeminiKey=google-key, got %q", cfg.GeminiKey)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TTS_CACHE_SIZE", "7")
	t.Setenv("TTS_RATE_LIMIT_RETRY_DELAY_MS", "20")
	t.Setenv("TTS_NO_AUDIO_RETRY_DELAY_MS", "0")
	t.Setenv("RECOGNITION_PROXY_ENABLED", "false")
	t.Setenv("GEMINI_TTS_DEFAULT_VOICE", "Puck")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TTSCacheSize != 7 {
		t.Errorf("expected TTSCacheSize=7, got %d", cfg.TTSCacheSize)
	}
	if cfg.RateLimitRetryWait != 20*time.Millisecond {
		t.Errorf("expected RateLimitRetryWait=20ms, got %v", cfg.RateLimitRetryWait)
	}
	if cfg.NoAudioRetryWait != 0 {
		t.Errorf("expected NoAudioRetryWait=0, got %v", cfg.NoAudioRetryWait)
	}
	if cfg.RecognitionEnabled {
		t.Error("expected recognition proxy to be disabled")
	}
	if cfg.DefaultVoice != "Puck" {
		t.Errorf("expected DefaultVoice=Puck, got %s", cfg.DefaultVoice)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"template without placeholder", "GEMINI_TTS_PROMPT_TEMPLATE", "Read this aloud"},
		{"template with two placeholders", "GEMINI_TTS_PROMPT_TEMPLATE", "%s and %s"},
		{"zero cache size", "TTS_CACHE_SIZE", "0"},
		{"too many attempts", "TTS_MAX_ATTEMPTS", "4"},
		{"negative delay", "TTS_NO_AUDIO_RETRY_DELAY_MS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
