package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/bobarin/signspeak/internal/db"
	"github.com/bobarin/signspeak/internal/models"
	"github.com/bobarin/signspeak/internal/services"
)

// UserStore persists learner profiles. *db.DB implements it.
type UserStore interface {
	GetUserByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
}

type Handler struct {
	speech      *services.SpeechGateway      // nil when no Gemini key is configured
	users       UserStore                    // nil when no database is configured
	recognition *services.RecognitionService // nil when the proxy is disabled
}

func NewHandler(speech *services.SpeechGateway, users UserStore, recognition *services.RecognitionService) *Handler {
	return &Handler{
		speech:      speech,
		users:       users,
		recognition: recognition,
	}
}

// GeminiTTS handles POST /api/gemini-tts
func (h *Handler) GeminiTTS(w http.ResponseWriter, r *http.Request) {
	if h.speech == nil {
		respondError(w, http.StatusInternalServerError, "Missing GEMINI_API_KEY on server")
		return
	}

	var req models.TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Missing text")
		return
	}

	result, err := h.speech.Synthesize(r.Context(), req.Text, req.VoiceName)
	if err != nil {
		respondSpeechError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.TTSResponse{
		Audio:     result.Audio,
		FromCache: result.FromCache,
	})
}

func respondSpeechError(w http.ResponseWriter, err error) {
	var (
		upstream *services.UpstreamError
		limited  *services.RateLimitedError
		noAudio  *services.NoAudioError
	)

	switch {
	case errors.Is(err, services.ErrMissingText):
		respondError(w, http.StatusBadRequest, "Missing text")

	case errors.As(err, &upstream):
		// Forward the upstream answer verbatim
		contentType := upstream.ContentType
		if contentType == "" {
			contentType = "text/plain; charset=utf-8"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(upstream.StatusCode)
		w.Write(upstream.Body)

	case errors.As(err, &limited):
		retryMs := limited.RetryAfter.Milliseconds()
		w.Header().Set("Retry-After", strconv.FormatInt((retryMs+999)/1000, 10))
		respondJSON(w, http.StatusTooManyRequests, models.TTSRateLimitedResponse{
			Error:         "Gemini TTS rate limit reached. Please wait a few seconds and try again.",
			RetryAfterMs:  retryMs,
			RateLimitInfo: limited.RateLimit,
		})

	case errors.As(err, &noAudio):
		var finishReason *string
		if noAudio.FinishReason != "" {
			finishReason = &noAudio.FinishReason
		}
		respondJSON(w, http.StatusBadGateway, models.TTSNoAudioResponse{
			Error:         "Gemini TTS returned no audio. The model may be temporarily unavailable.",
			FinishReason:  finishReason,
			RateLimitInfo: noAudio.RateLimit,
		})

	default:
		log.Printf("[API] Unexpected speech error: %v", err)
		respondJSON(w, http.StatusInternalServerError, models.TTSFailureResponse{
			Error:  "Failed to generate speech",
			Detail: err.Error(),
		})
	}
}

// SyncUser handles POST /api/sync-user
// Creates the learner profile on first sign-in, updates it afterwards.
func (h *Handler) SyncUser(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		respondJSON(w, http.StatusServiceUnavailable, models.SyncUserResponse{Message: "User sync is not configured"})
		return
	}

	var req models.SyncUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, models.SyncUserResponse{Message: "Invalid request body"})
		return
	}

	if req.ClerkID == "" || req.Email == "" {
		respondJSON(w, http.StatusBadRequest, models.SyncUserResponse{Message: "Clerk ID and email are required"})
		return
	}

	user, err := h.users.GetUserByClerkID(r.Context(), req.ClerkID)
	switch {
	case err == nil:
		user.Merge(req)
		if problems := user.Validate(); len(problems) > 0 {
			respondJSON(w, http.StatusBadRequest, models.SyncUserResponse{Message: strings.Join(problems, ", ")})
			return
		}
		if err := h.users.UpdateUser(r.Context(), user); err != nil {
			respondUserStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, models.SyncUserResponse{Message: "User updated", User: user})

	case errors.Is(err, db.ErrUserNotFound):
		user = &models.User{ID: uuid.New(), ClerkID: req.ClerkID}
		user.Merge(req)
		if problems := user.Validate(); len(problems) > 0 {
			respondJSON(w, http.StatusBadRequest, models.SyncUserResponse{Message: strings.Join(problems, ", ")})
			return
		}
		if err := h.users.CreateUser(r.Context(), user); err != nil {
			respondUserStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, models.SyncUserResponse{Message: "User synced successfully", User: user})

	default:
		respondUserStoreError(w, err)
	}
}

func respondUserStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrDuplicateUser) {
		respondJSON(w, http.StatusBadRequest, models.SyncUserResponse{Message: "User with this Clerk ID already exists"})
		return
	}
	log.Printf("[API] Sync user error: %v", err)
	respondJSON(w, http.StatusInternalServerError, models.SyncUserResponse{Message: "Internal server error"})
}

// RecognitionStatus handles GET /api/status
// Falls back to an idle state when the backend is unreachable.
func (h *Handler) RecognitionStatus(w http.ResponseWriter, r *http.Request) {
	data, err := h.recognition.Status(r.Context())
	if err != nil {
		log.Printf("[Recognition] Error fetching status: %v", err)
		respondJSON(w, http.StatusOK, models.RecognitionStatus{Char: "—"})
		return
	}
	respondRawJSON(w, http.StatusOK, data)
}

// RecognitionReset handles POST /api/reset
func (h *Handler) RecognitionReset(w http.ResponseWriter, r *http.Request) {
	data, err := h.recognition.Reset(r.Context())
	if err != nil {
		// Still report success so the client can clear locally
		log.Printf("[Recognition] Error calling reset: %v", err)
		respondJSON(w, http.StatusOK, map[string]interface{}{"status": "reset", "flaskAvailable": false})
		return
	}
	respondRawJSON(w, http.StatusOK, data)
}

// RecognitionPatchSentence handles POST /api/patch-sentence
func (h *Handler) RecognitionPatchSentence(w http.ResponseWriter, r *http.Request) {
	var req models.PatchSentenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Sentence == nil {
		respondError(w, http.StatusBadRequest, "sentence string is required")
		return
	}

	data, err := h.recognition.PatchSentence(r.Context(), *req.Sentence)
	if err != nil {
		log.Printf("[Recognition] Error patching sentence: %v", err)
		respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "flaskAvailable": false})
		return
	}
	respondRawJSON(w, http.StatusOK, data)
}

// RecognitionVideoFeed handles GET /api/video-feed
// Streams the backend's MJPEG feed until either side disconnects.
func (h *Handler) RecognitionVideoFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := h.recognition.OpenVideoFeed(r.Context())
	if err != nil {
		log.Printf("[Recognition] Error proxying video feed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to connect to video feed. Make sure the recognition backend is running.")
		return
	}
	defer feed.Close()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := feed.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr != io.EOF && r.Context().Err() == nil {
				log.Printf("[Recognition] Streaming error: %v", readErr)
			}
			return
		}
	}
}

// MethodNotAllowed answers requests whose path exists under another method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondRawJSON(w http.ResponseWriter, status int, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if h.speech != nil {
		resp["ttsCache"] = h.speech.CacheStats()
	}
	respondJSON(w, http.StatusOK, resp)
}
