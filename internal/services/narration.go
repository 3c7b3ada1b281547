package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hwade/propreel/internal/models"
)

// DescriptionProvider writes a short spoken-word property description.
type DescriptionProvider interface {
	GenerateDescription(ctx context.Context, job *models.VideoJob) (string, error)
}

// SpeechSynthesizer converts text to mp3 audio.
type SpeechSynthesizer interface {
	GenerateSpeech(ctx context.Context, text, voiceID string) ([]byte, error)
}

// NarrationResult is the narrator's output for one job.
type NarrationResult struct {
	Description string
	AudioURL    string
}

// Narrator produces a narration track for a job: description first, then
// speech synthesis, then the audio file written under audioDir and served
// at /audio.
type Narrator struct {
	descriptions DescriptionProvider
	speech       SpeechSynthesizer
	audioDir     string
}

func NewNarrator(descriptions DescriptionProvider, speech SpeechSynthesizer, audioDir string) *Narrator {
	return &Narrator{
		descriptions: descriptions,
		speech:       speech,
		audioDir:     audioDir,
	}
}

func (n *Narrator) Narrate(ctx context.Context, job *models.VideoJob) (*NarrationResult, error) {
	if n.descriptions == nil || n.speech == nil {
		return nil, models.ErrNarrationUnavailable
	}

	description, err := n.descriptions.GenerateDescription(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to generate description: %w", err)
	}

	audio, err := n.speech.GenerateSpeech(ctx, description, job.VoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize narration: %w", err)
	}

	name := fmt.Sprintf("narration-%d-%d.mp3", job.ID, time.Now().UnixMilli())
	path := filepath.Join(n.audioDir, name)
	if err := os.WriteFile(path, audio, 0644); err != nil {
		return nil, fmt.Errorf("failed to write narration file: %w", err)
	}

	log.Printf("[NARRATION] job %d: wrote %s (%d bytes)", job.ID, name, len(audio))

	return &NarrationResult{
		Description: description,
		AudioURL:    "/audio/" + name,
	}, nil
}
