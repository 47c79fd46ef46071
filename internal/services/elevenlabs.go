package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// ElevenLabs Text-to-Speech Service
// Uses the ElevenLabs REST API to convert narration text into speech audio,
// streamed straight to a scratch file.
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_monolingual_v1"
	elevenLabsDefaultVoice = "21m00Tcm4TlvDq8ikWAM"
)

type ElevenLabsService struct {
	apiKey  string
	voiceID string
	modelID string
	client  *http.Client
}

// Ensure ElevenLabsService implements TTSService at compile time.
var _ TTSService = (*ElevenLabsService)(nil)

func NewElevenLabsService(apiKey, voiceID string) *ElevenLabsService {
	if voiceID == "" {
		voiceID = elevenLabsDefaultVoice
	}
	return &ElevenLabsService{
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: elevenLabsDefaultModel,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text to speech and streams the MP3 response to
// outputPath. Rate/abuse throttling is returned wrapping ErrSpeechRejected;
// any other failure is fatal for the segment.
func (s *ElevenLabsService) Synthesize(ctx context.Context, text, outputPath string) error {
	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       0.4,
			SimilarityBoost: 0.6,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal ElevenLabs request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", elevenLabsBaseURL, s.voiceID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create ElevenLabs request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	log.Printf("[ElevenLabs] Generating speech (voiceID=%s, model=%s, textLen=%d)", s.voiceID, s.modelID, len(text))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ElevenLabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if isAbuseRejection(resp.StatusCode, string(body)) {
			return fmt.Errorf("ElevenLabs throttled request (status %d): %w", resp.StatusCode, ErrSpeechRejected)
		}
		return fmt.Errorf("ElevenLabs returned status %d: %s", resp.StatusCode, truncateOutput(string(body), 300))
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("failed to stream ElevenLabs audio: %w", err)
	}
	if written == 0 {
		os.Remove(outputPath)
		return fmt.Errorf("ElevenLabs returned empty audio")
	}

	log.Printf("[ElevenLabs] Speech generated (%d bytes)", written)
	return nil
}

// isAbuseRejection classifies the rate/abuse responses that are recoverable
// with the silent fallback: 429, and the 401 the API sends with a
// "detected_unusual_activity" status for flagged free-tier traffic.
func isAbuseRejection(status int, body string) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	if status == http.StatusUnauthorized && strings.Contains(body, "detected_unusual_activity") {
		return true
	}
	return false
}
