package services

import (
	"context"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------------------------------------------------------
// OpenAI generative-text provider — alternate storyboard backend, used when
// no Gemini key is configured.
// ---------------------------------------------------------------------------

type OpenAIService struct {
	client *openai.Client
	model  string
}

// Ensure OpenAIService implements TextCompleter at compile time.
var _ TextCompleter = (*OpenAIService)(nil)

func NewOpenAIService(apiKey, model string) *OpenAIService {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIService{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Complete sends a single-turn prompt in JSON mode and returns the raw
// response text. The storyboard parser handles validation and fallback.
func (s *OpenAIService) Complete(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	log.Printf("[OpenAI] Requesting completion (model=%s, promptLen=%d)", s.model, len(prompt))

	resp, err := s.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return resp.Choices[0].Message.Content, nil
}
