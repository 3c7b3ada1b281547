package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Storage. DATABASE_URL wins over REDIS_URL; with neither set, jobs live
	// in memory and disappear on restart.
	DatabaseURL string
	RedisURL    string

	// Narration. None of these are required: without a speech provider the
	// pipeline renders videos with no voice track.
	OpenAIKey           string
	GeminiKey           string
	DescriptionProvider string // "openai" (default) or "gemini"
	ElevenLabsKey       string
	ElevenLabsVoiceID   string

	// Filesystem layout
	MediaDir  string // public media root: music/, audio/, videos/
	UploadDir string // uploaded property photos
	TempDir   string // render intermediates
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:             getEnv("API_PORT", "8080"),
		BackendAPIKey:       getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:  getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		OpenAIKey:           getEnv("OPENAI_API_KEY", ""),
		GeminiKey:           getEnv("GEMINI_API_KEY", ""),
		DescriptionProvider: getEnv("DESCRIPTION_PROVIDER", "openai"),
		ElevenLabsKey:       getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:   getEnv("ELEVENLABS_VOICE_ID", ""),
		MediaDir:            getEnv("MEDIA_DIR", "public"),
		UploadDir:           getEnv("UPLOAD_DIR", "uploads"),
		TempDir:             getEnv("TEMP_DIR", "temp"),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
