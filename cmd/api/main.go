package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hwade/propreel/internal/api"
	"github.com/hwade/propreel/internal/config"
	"github.com/hwade/propreel/internal/db"
	"github.com/hwade/propreel/internal/redisstore"
	"github.com/hwade/propreel/internal/repository"
	"github.com/hwade/propreel/internal/services"
	"github.com/hwade/propreel/internal/worker"
)

func main() {
	log.Println("Starting PropReel API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Media directories must exist before anything writes to them
	for _, dir := range []string{
		cfg.UploadDir,
		cfg.TempDir,
		filepath.Join(cfg.MediaDir, "videos"),
		filepath.Join(cfg.MediaDir, "audio"),
		filepath.Join(cfg.MediaDir, "music"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	// Pick the job store: Postgres preferred, Redis next, in-memory last
	var store repository.Store
	switch {
	case cfg.DatabaseURL != "":
		database, err := db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		store = database
		log.Println("Connected to Postgres")
	case cfg.RedisURL != "":
		rs, err := redisstore.New(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rs.Close()
		store = rs
		log.Println("Connected to Redis")
	default:
		store = repository.NewMemoryStore()
		log.Println("WARNING: No DATABASE_URL or REDIS_URL set — jobs are stored in memory")
	}

	// Narration providers. Both are optional: without them, videos render
	// without a voice track.
	var descriptions services.DescriptionProvider
	switch {
	case cfg.DescriptionProvider == "gemini" && cfg.GeminiKey != "":
		descriptions, err = services.NewGeminiService(context.Background(), cfg.GeminiKey)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		log.Println("Description provider: Gemini")
	case cfg.OpenAIKey != "":
		descriptions = services.NewOpenAIService(cfg.OpenAIKey)
		log.Println("Description provider: OpenAI")
	default:
		log.Println("No description provider configured — narration disabled")
	}

	var speech services.SpeechSynthesizer
	switch {
	case cfg.ElevenLabsKey != "":
		speech = services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
		log.Println("Speech provider: ElevenLabs")
	case cfg.OpenAIKey != "":
		speech = services.NewOpenAIService(cfg.OpenAIKey)
		log.Println("Speech provider: OpenAI TTS")
	default:
		log.Println("No speech provider configured — narration disabled")
	}

	narrator := services.NewNarrator(descriptions, speech, filepath.Join(cfg.MediaDir, "audio"))

	// Render pipeline
	renderer := services.NewFFmpegRenderer()
	executor := worker.NewExecutor(renderer, cfg.TempDir, cfg.MediaDir)
	generator := worker.NewGenerator(store, narrator, executor, cfg.UploadDir)

	// API
	handler := api.NewHandler(store, generator, cfg.UploadDir)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		MediaDir:           cfg.MediaDir,
		UploadDir:          cfg.UploadDir,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
