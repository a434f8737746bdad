package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bobarin/signspeak/internal/models"
)

// ---------------------------------------------------------------------------
// Gemini Text-to-Speech Service
// Calls the generateContent REST endpoint directly (not through the SDK
// client) so the caller sees the exact status code, body and rate-limit
// headers. Request/response bodies reuse the Gen AI SDK wire types.
// ---------------------------------------------------------------------------

const (
	DefaultGeminiTTSModel   = "gemini-2.5-flash-preview-tts"
	DefaultGeminiTTSBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiTTSTimeout = 60 * time.Second
)

// GeminiTTSService performs single synthesis calls against Gemini.
type GeminiTTSService struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// Ensure GeminiTTSService implements SpeechSynthesizer at compile time.
var _ SpeechSynthesizer = (*GeminiTTSService)(nil)

// NewGeminiTTSServiceWithEndpoint creates a Gemini TTS service with a custom
// base URL, model and transport timeout. Empty values fall back to defaults.
func NewGeminiTTSServiceWithEndpoint(apiKey, baseURL, model string, timeout time.Duration) *GeminiTTSService {
	if baseURL == "" {
		baseURL = DefaultGeminiTTSBaseURL
	}
	if model == "" {
		model = DefaultGeminiTTSModel
	}
	if timeout <= 0 {
		timeout = defaultGeminiTTSTimeout
	}
	return &GeminiTTSService{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type geminiTTSRequest struct {
	Contents         []*genai.Content          `json:"contents"`
	GenerationConfig geminiTTSGenerationConfig `json:"generationConfig"`
}

type geminiTTSGenerationConfig struct {
	ResponseModalities []genai.Modality    `json:"responseModalities"`
	SpeechConfig       *genai.SpeechConfig `json:"speechConfig"`
}

type geminiTTSResponse struct {
	Candidates []*genai.Candidate `json:"candidates"`
}

// SynthesizeSpeech implements SpeechSynthesizer.
func (s *GeminiTTSService) SynthesizeSpeech(ctx context.Context, prompt, voiceName string) (*TTSAttempt, error) {
	reqBody := geminiTTSRequest{
		Contents: []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		GenerationConfig: geminiTTSGenerationConfig{
			ResponseModalities: []genai.Modality{genai.ModalityAudio},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voiceName},
				},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Gemini TTS request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.baseURL, s.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini TTS request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Gemini TTS request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Gemini TTS response: %w", err)
	}

	attempt := &TTSAttempt{
		StatusCode: resp.StatusCode,
		RateLimit:  rateLimitInfoFromHeaders(resp.Header),
	}

	if !attempt.OK() {
		attempt.Body = bodyBytes
		attempt.ContentType = resp.Header.Get("Content-Type")
		log.Printf("[GeminiTTS] HTTP %d from Gemini: %s", resp.StatusCode, truncate(string(bodyBytes), 200))
		return attempt, nil
	}

	var geminiResp geminiTTSResponse
	if err := json.Unmarshal(bodyBytes, &geminiResp); err != nil {
		return nil, fmt.Errorf("failed to decode Gemini TTS response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || geminiResp.Candidates[0] == nil {
		log.Printf("[GeminiTTS] No candidates in response (voice=%s, model=%s)", voiceName, s.model)
		return attempt, nil
	}

	candidate := geminiResp.Candidates[0]
	attempt.FinishReason = string(candidate.FinishReason)

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				attempt.Audio = part.InlineData.Data
				attempt.MimeType = part.InlineData.MIMEType
				break
			}
		}
	}

	log.Printf("[GeminiTTS] Response (voice=%s, finishReason=%q, audioBytes=%d)", voiceName, attempt.FinishReason, len(attempt.Audio))

	return attempt, nil
}

// rateLimitInfoFromHeaders copies the optional rate-limit headers.
func rateLimitInfoFromHeaders(h http.Header) models.RateLimitInfo {
	return models.RateLimitInfo{
		RetryAfter:        headerValue(h, "Retry-After"),
		LimitRequests:     headerValue(h, "x-ratelimit-limit-requests"),
		RemainingRequests: headerValue(h, "x-ratelimit-remaining-requests"),
		LimitTokens:       headerValue(h, "x-ratelimit-limit-tokens"),
		RemainingTokens:   headerValue(h, "x-ratelimit-remaining-tokens"),
	}
}

func headerValue(h http.Header, key string) *string {
	if _, ok := h[http.CanonicalHeaderKey(key)]; !ok {
		return nil
	}
	v := h.Get(key)
	return &v
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
