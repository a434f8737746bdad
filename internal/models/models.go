package models

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Audio playback parameters for Gemini TTS output (16-bit PCM, mono).
const (
	AudioSampleRate = 24000
	AudioChannels   = 1
)

// Audio is a synthesized speech payload. Data is raw encoded audio and is
// serialized as base64. Values handed out by the cache are shared; treat Data
// as read-only.
type Audio struct {
	Data       []byte `json:"data"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// RateLimitInfo carries the upstream rate-limit headers. Absent headers are
// nil so they serialize as null.
type RateLimitInfo struct {
	RetryAfter        *string `json:"retryAfter"`
	LimitRequests     *string `json:"limitRequests"`
	RemainingRequests *string `json:"remainingRequests"`
	LimitTokens       *string `json:"limitTokens"`
	RemainingTokens   *string `json:"remainingTokens"`
}

// API request/response types

type TTSRequest struct {
	Text      string `json:"text"`
	VoiceName string `json:"voiceName,omitempty"`
}

type TTSResponse struct {
	Audio     Audio `json:"audio"`
	FromCache bool  `json:"fromCache"`
}

type TTSRateLimitedResponse struct {
	Error         string        `json:"error"`
	RetryAfterMs  int64         `json:"retryAfterMs"`
	RateLimitInfo RateLimitInfo `json:"rateLimitInfo"`
}

type TTSNoAudioResponse struct {
	Error         string        `json:"error"`
	FinishReason  *string       `json:"finishReason"`
	RateLimitInfo RateLimitInfo `json:"rateLimitInfo"`
}

type TTSFailureResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// User is a learner profile mirrored from the identity provider.
type User struct {
	ID        uuid.UUID `json:"id"`
	ClerkID   string    `json:"clerkId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type SyncUserRequest struct {
	ClerkID   string `json:"clerkId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	ImageURL  string `json:"imageUrl"`
}

type SyncUserResponse struct {
	Message string `json:"message"`
	User    *User  `json:"user,omitempty"`
}

// RecognitionStatus is the live state reported by the sign recognition backend.
type RecognitionStatus struct {
	Char       string  `json:"char"`
	Sentence   string  `json:"sentence"`
	Confidence float64 `json:"confidence"`
}

type PatchSentenceRequest struct {
	Sentence *string `json:"sentence"`
}

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

const maxNameLength = 50

// Validate reports every field problem on a user about to be stored.
// An empty slice means the record is valid.
func (u *User) Validate() []string {
	var problems []string

	if u.ClerkID == "" {
		problems = append(problems, "Clerk ID is required")
	}
	if u.FirstName == "" {
		problems = append(problems, "Please provide a first name")
	} else if utf8.RuneCountInString(u.FirstName) > maxNameLength {
		problems = append(problems, "First name cannot be more than 50 characters")
	}
	if u.LastName == "" {
		problems = append(problems, "Please provide a last name")
	} else if utf8.RuneCountInString(u.LastName) > maxNameLength {
		problems = append(problems, "Last name cannot be more than 50 characters")
	}
	if u.Email == "" {
		problems = append(problems, "Please provide an email")
	} else if !emailPattern.MatchString(u.Email) {
		problems = append(problems, "Please provide a valid email")
	}

	return problems
}

// Merge applies a sync request on top of an existing profile. Empty fields
// keep the stored value; the email is always replaced and lower-cased.
func (u *User) Merge(req SyncUserRequest) {
	if req.FirstName != "" {
		u.FirstName = req.FirstName
	}
	if req.LastName != "" {
		u.LastName = req.LastName
	}
	if req.ImageURL != "" {
		u.ImageURL = req.ImageURL
	}
	u.Email = strings.ToLower(req.Email)
}
