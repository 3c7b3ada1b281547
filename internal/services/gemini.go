package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/hwade/propreel/internal/models"
)

const geminiModel = "gemini-2.0-flash"

// GeminiService is an alternative description provider backed by the
// Gemini API, selected via DESCRIPTION_PROVIDER=gemini.
type GeminiService struct {
	client *genai.Client
}

var _ DescriptionProvider = (*GeminiService)(nil)

func NewGeminiService(ctx context.Context, apiKey string) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{client: client}, nil
}

func (s *GeminiService) GenerateDescription(ctx context.Context, job *models.VideoJob) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, geminiModel, genai.Text(descriptionPrompt(job)), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned empty description")
	}
	return text, nil
}
