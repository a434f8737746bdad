package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"

	"github.com/bobarin/signspeak/internal/cache"
	"github.com/bobarin/signspeak/internal/models"
)

// ---------------------------------------------------------------------------
// SpeechGateway — cached, retrying front for a SpeechSynthesizer.
//
// Flow per request: cache lookup → attempt 1 (primary prompt) → classify →
// at most one retry per soft-failure class → store on audio. Hard HTTP
// errors are never retried. At most three upstream calls per request.
// ---------------------------------------------------------------------------

const DefaultVoice = "Kore"

// DefaultPromptTemplate wraps the input text for the first attempt. Retries
// send the plain text instead.
const DefaultPromptTemplate = `Read the following Malayalam text clearly: "%s"`

// ErrMissingText is returned when the input text is empty after trimming.
var ErrMissingText = errors.New("missing text")

// UpstreamError is a non-2xx answer from the speech API.
type UpstreamError struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("speech API returned status %d: %s", e.StatusCode, truncate(string(e.Body), 200))
}

// RateLimitedError means the API kept refusing silently after the retry.
type RateLimitedError struct {
	RetryAfter time.Duration // suggested client wait
	RateLimit  models.RateLimitInfo
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("speech API rate limit reached, retry after %v", e.RetryAfter)
}

// NoAudioError means every permitted attempt succeeded at the HTTP level but
// none carried audio.
type NoAudioError struct {
	FinishReason string
	RateLimit    models.RateLimitInfo
}

func (e *NoAudioError) Error() string {
	return fmt.Sprintf("speech API returned no audio (finishReason=%q)", e.FinishReason)
}

// SpeechResult is a successful synthesis.
type SpeechResult struct {
	Audio     models.Audio
	FromCache bool
}

// RetryPolicy bounds the soft-failure retries.
type RetryPolicy struct {
	MaxAttempts    int           // total upstream calls per request, 1..3
	RateLimitDelay time.Duration // wait before retrying a silent rate limit
	NoAudioDelay   time.Duration // wait before retrying an empty response
	RetryAfterHint time.Duration // returned to callers in RateLimitedError
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		RateLimitDelay: 1000 * time.Millisecond,
		NoAudioDelay:   500 * time.Millisecond,
		RetryAfterHint: 5000 * time.Millisecond,
	}
}

type SpeechGatewayConfig struct {
	DefaultVoice   string
	PromptTemplate string // one %s for the text
	Retry          RetryPolicy
}

// SpeechGateway serves synthesis requests from the cache or the API.
// Safe for concurrent use.
type SpeechGateway struct {
	synth  SpeechSynthesizer
	cache  *cache.AudioCache
	cfg    SpeechGatewayConfig
	flight singleflight.Group
}

// NewSpeechGateway wires a synthesizer to an audio cache. Zero config fields
// take the package defaults; a zero Retry policy becomes DefaultRetryPolicy.
func NewSpeechGateway(synth SpeechSynthesizer, audioCache *cache.AudioCache, cfg SpeechGatewayConfig) *SpeechGateway {
	if audioCache == nil {
		audioCache = cache.NewAudioCache(cache.DefaultCapacity)
	}
	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = DefaultVoice
	}
	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = DefaultPromptTemplate
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	return &SpeechGateway{
		synth: synth,
		cache: audioCache,
		cfg:   cfg,
	}
}

// CacheStats exposes the underlying cache counters.
func (g *SpeechGateway) CacheStats() cache.Stats {
	return g.cache.Stats()
}

// Synthesize returns audio for text spoken by voice (DefaultVoice if empty).
//
// Errors: ErrMissingText, *UpstreamError, *RateLimitedError, *NoAudioError,
// or any other error for unexpected failures.
func (g *SpeechGateway) Synthesize(ctx context.Context, text, voice string) (*SpeechResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMissingText
	}
	if voice == "" {
		voice = g.cfg.DefaultVoice
	}

	key := cache.Key{Voice: voice, Text: text}
	if audio, ok := g.cache.Get(key); ok {
		log.Printf("[SpeechGateway] Cache HIT (voice=%s) for %q", voice, truncate(text, 40))
		return &SpeechResult{Audio: audio, FromCache: true}, nil
	}

	log.Printf("[SpeechGateway] Cache MISS (voice=%s), calling API for %q", voice, truncate(text, 40))

	// Identical concurrent misses share one upstream flight. The flight must
	// outlive any single caller, so it runs on a context without cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ch := g.flight.DoChan(key.String(), func() (interface{}, error) {
		return g.synthesizeUncached(flightCtx, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return &SpeechResult{Audio: res.Val.(models.Audio)}, nil
	}
}

type attemptClass int

const (
	attemptAudio attemptClass = iota
	attemptRateLimited
	attemptNoAudio
)

// classifyAttempt sorts a 2xx response. Gemini signals quota refusals with
// HTTP 200, no audio and finishReason OTHER; that quirk is confined here.
func classifyAttempt(a *TTSAttempt) attemptClass {
	switch {
	case len(a.Audio) > 0:
		return attemptAudio
	case a.FinishReason == string(genai.FinishReasonOther):
		return attemptRateLimited
	default:
		return attemptNoAudio
	}
}

func (g *SpeechGateway) synthesizeUncached(ctx context.Context, key cache.Key) (models.Audio, error) {
	policy := g.cfg.Retry
	calls := 0

	attempt, class, err := g.call(ctx, &calls, fmt.Sprintf(g.cfg.PromptTemplate, key.Text), key.Voice)
	if err != nil {
		return models.Audio{}, err
	}

	if class == attemptRateLimited {
		if calls >= policy.MaxAttempts {
			return models.Audio{}, g.rateLimited(attempt)
		}

		log.Printf("[SpeechGateway] finishReason=OTHER (likely rate-limited), retrying in %v", policy.RateLimitDelay)
		if err := sleepContext(ctx, policy.RateLimitDelay); err != nil {
			return models.Audio{}, err
		}

		attempt, class, err = g.call(ctx, &calls, key.Text, key.Voice)
		if err != nil {
			return models.Audio{}, err
		}
		if class == attemptRateLimited {
			log.Printf("[SpeechGateway] Still rate-limited after retry")
			return models.Audio{}, g.rateLimited(attempt)
		}
	}

	if class == attemptNoAudio && calls < policy.MaxAttempts {
		log.Printf("[SpeechGateway] No audio on attempt %d, retrying with plain text in %v", calls, policy.NoAudioDelay)
		if err := sleepContext(ctx, policy.NoAudioDelay); err != nil {
			return models.Audio{}, err
		}

		attempt, class, err = g.call(ctx, &calls, key.Text, key.Voice)
		if err != nil {
			return models.Audio{}, err
		}
	}

	if class != attemptAudio {
		log.Printf("[SpeechGateway] Giving up after %d attempts (finishReason=%q)", calls, attempt.FinishReason)
		return models.Audio{}, &NoAudioError{
			FinishReason: attempt.FinishReason,
			RateLimit:    attempt.RateLimit,
		}
	}

	audio := models.Audio{
		Data:       attempt.Audio,
		SampleRate: models.AudioSampleRate,
		Channels:   models.AudioChannels,
	}
	g.cache.Put(key, audio)

	log.Printf("[SpeechGateway] Success after %d attempt(s), cached %d bytes for %q", calls, len(audio.Data), truncate(key.Text, 40))

	return audio, nil
}

// call performs one upstream attempt. Non-2xx answers come back as *UpstreamError.
func (g *SpeechGateway) call(ctx context.Context, calls *int, prompt, voice string) (*TTSAttempt, attemptClass, error) {
	*calls++

	attempt, err := g.synth.SynthesizeSpeech(ctx, prompt, voice)
	if err != nil {
		return nil, 0, fmt.Errorf("synthesis attempt %d: %w", *calls, err)
	}

	if !attempt.OK() {
		return nil, 0, &UpstreamError{
			StatusCode:  attempt.StatusCode,
			Body:        attempt.Body,
			ContentType: attempt.ContentType,
		}
	}

	return attempt, classifyAttempt(attempt), nil
}

func (g *SpeechGateway) rateLimited(attempt *TTSAttempt) *RateLimitedError {
	return &RateLimitedError{
		RetryAfter: g.cfg.Retry.RetryAfterHint,
		RateLimit:  attempt.RateLimit,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
