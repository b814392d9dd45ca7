package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"arogya-swarm/backend/internal/retry"

	"google.golang.org/genai"
)

// GeminiReasoner implements Reasoner on the Gemini API.
type GeminiReasoner struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiReasoner creates a client for the given model. The client is
// safe for concurrent use and should be shared by every stage.
func NewGeminiReasoner(ctx context.Context, apiKey, model string, temperature float32) (*GeminiReasoner, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiReasoner{client: client, model: model, temperature: temperature}, nil
}

// Invoke asks the model for a JSON response to prompt.
func (r *GeminiReasoner) Invoke(ctx context.Context, prompt string) (string, error) {
	temperature := r.temperature
	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", classifyGenAIError(err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
		break
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return sb.String(), nil
}

func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return retry.RateLimited(err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code == http.StatusTooManyRequests {
		return retry.RateLimited(err)
	}
	if strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
		return retry.RateLimited(err)
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
