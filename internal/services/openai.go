package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hwade/propreel/internal/models"
)

// OpenAIService provides both property descriptions (chat) and narration
// audio (speech) from the OpenAI API.
type OpenAIService struct {
	client *openai.Client
}

var (
	_ DescriptionProvider = (*OpenAIService)(nil)
	_ SpeechSynthesizer   = (*OpenAIService)(nil)
)

func NewOpenAIService(apiKey string) *OpenAIService {
	return &OpenAIService{client: openai.NewClient(apiKey)}
}

func descriptionPrompt(job *models.VideoJob) string {
	var sb strings.Builder
	sb.WriteString("Write an engaging 80-100 word narration script for a real estate marketing video.\n")
	fmt.Fprintf(&sb, "Property address: %s\n", job.Address)
	if job.Description != "" {
		fmt.Fprintf(&sb, "Property details: %s\n", job.Description)
	}
	sb.WriteString("Do not mention the price or any contact information. ")
	sb.WriteString("Spell out any numbers digit by digit so they read naturally aloud. ")
	sb.WriteString("Warm, inviting tone. Respond with the narration text only.")
	return sb.String()
}

// GenerateDescription asks the chat model for a narration script. On API
// failure it returns a generic script instead of an error, so a flaky chat
// endpoint never blocks narration.
func (s *OpenAIService) GenerateDescription(ctx context.Context, job *models.VideoJob) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4o,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: descriptionPrompt(job)},
		},
		Temperature: 0.7,
		MaxTokens:   250,
	})
	if err != nil {
		log.Printf("[OPENAI] description failed for job %d, using fallback: %v", job.ID, err)
		return fmt.Sprintf("Welcome to this beautiful property at %s.", job.Address), nil
	}
	if len(resp.Choices) == 0 {
		return fmt.Sprintf("Welcome to this beautiful property at %s.", job.Address), nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var speechVoices = map[string]openai.SpeechVoice{
	"alloy":   openai.VoiceAlloy,
	"echo":    openai.VoiceEcho,
	"fable":   openai.VoiceFable,
	"onyx":    openai.VoiceOnyx,
	"nova":    openai.VoiceNova,
	"shimmer": openai.VoiceShimmer,
}

func (s *OpenAIService) GenerateSpeech(ctx context.Context, text, voiceID string) ([]byte, error) {
	voice, ok := speechVoices[voiceID]
	if !ok {
		voice = openai.VoiceNova
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          0.95,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech response: %w", err)
	}
	return audio, nil
}
