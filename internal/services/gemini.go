package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Gemini generative-text provider — preferred storyboard backend.
// ---------------------------------------------------------------------------

type GeminiService struct {
	client *genai.Client
	model  string
}

// Ensure GeminiService implements TextCompleter at compile time.
var _ TextCompleter = (*GeminiService)(nil)

func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiService{client: client, model: model}, nil
}

// Complete sends a single-turn prompt and returns the raw response text.
func (s *GeminiService) Complete(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	log.Printf("[Gemini] Requesting completion (model=%s, promptLen=%d)", s.model, len(prompt))

	resp, err := s.client.Models.GenerateContent(reqCtx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}

	return text, nil
}
