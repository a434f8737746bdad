package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Recognition backend client
// Thin pass-through to the computer-vision service that recognizes signs
// from the webcam feed. Responses are returned as raw JSON; this service
// does not interpret them.
// ---------------------------------------------------------------------------

const recognitionTimeout = 10 * time.Second

type RecognitionService struct {
	baseURL string
	client  *http.Client
	stream  *http.Client // no overall timeout; the video feed is long-lived
}

func NewRecognitionService(baseURL string) *RecognitionService {
	return &RecognitionService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: recognitionTimeout},
		stream:  &http.Client{},
	}
}

// Status returns the backend's current recognized character and sentence.
func (s *RecognitionService) Status(ctx context.Context) (json.RawMessage, error) {
	return s.doJSON(ctx, "GET", "/status", nil)
}

// Reset clears the recognized sentence on the backend.
func (s *RecognitionService) Reset(ctx context.Context) (json.RawMessage, error) {
	return s.doJSON(ctx, "POST", "/reset", struct{}{})
}

// PatchSentence overwrites the backend's sentence, e.g. after a backspace.
func (s *RecognitionService) PatchSentence(ctx context.Context, sentence string) (json.RawMessage, error) {
	return s.doJSON(ctx, "POST", "/patch-sentence", map[string]string{"sentence": sentence})
}

// OpenVideoFeed starts streaming the annotated MJPEG feed. The caller must
// close the returned body.
func (s *RecognitionService) OpenVideoFeed(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/video_feed", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create video feed request: %w", err)
	}
	req.Header.Set("Accept", "multipart/x-mixed-replace; boundary=frame")

	resp, err := s.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video feed request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("recognition backend responded with status: %d", resp.StatusCode)
	}

	return resp.Body, nil
}

func (s *RecognitionService) doJSON(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognition backend responded with status: %d", resp.StatusCode)
	}

	var data json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return data, nil
}
