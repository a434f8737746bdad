package services

import (
	"context"

	"github.com/bobarin/signspeak/internal/models"
)

// ---------------------------------------------------------------------------
// SpeechSynthesizer — a single call to a text-to-speech API.
// Implementations report what the API said and never retry; retry and
// caching policy lives in SpeechGateway.
// ---------------------------------------------------------------------------

// TTSAttempt is the raw outcome of one synthesis call that reached the API.
type TTSAttempt struct {
	StatusCode int

	// Set only when StatusCode is not 2xx.
	Body        []byte
	ContentType string

	FinishReason string // completion reason of the first candidate, "" if absent
	Audio        []byte // decoded inline audio, nil if the response carried none
	MimeType     string

	RateLimit models.RateLimitInfo
}

// OK reports whether the API answered with a 2xx status.
func (a *TTSAttempt) OK() bool {
	return a.StatusCode >= 200 && a.StatusCode < 300
}

// SpeechSynthesizer is the interface any TTS backend must implement.
type SpeechSynthesizer interface {
	// SynthesizeSpeech sends prompt to the API using the given prebuilt voice.
	// A non-nil error means no HTTP response was obtained (transport failure,
	// undecodable body); HTTP-level failures are reported through TTSAttempt.
	SynthesizeSpeech(ctx context.Context, prompt, voiceName string) (*TTSAttempt, error)
}
