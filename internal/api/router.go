package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds settings for the API router.
// Passed from main.go so the router can configure CORS, auth, and the static
// media mounts from env vars.
type RouterConfig struct {
	// BackendAPIKey is the key that must be provided in X-API-Key or
	// Authorization: Bearer <key>. If empty, auth middleware is skipped
	// (development mode).
	BackendAPIKey string

	// CorsAllowedOrigins is a comma-separated list of allowed origins.
	// If empty, defaults to "*" (development mode).
	CorsAllowedOrigins string

	// MediaDir is the public media root holding music/, audio/ and videos/.
	MediaDir string

	// UploadDir holds the uploaded property photos, served at /uploads.
	UploadDir string
}

func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (applied to all routes including /health)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// CORS: restrict origins when configured, otherwise allow all (dev mode)
	allowedOrigins := []string{"*"}
	if cfg.CorsAllowedOrigins != "" {
		origins := strings.Split(cfg.CorsAllowedOrigins, ",")
		trimmed := make([]string, 0, len(origins))
		for _, o := range origins {
			if s := strings.TrimSpace(o); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			allowedOrigins = trimmed
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check — public, no auth required
	r.Get("/health", h.Health)

	// Static media — generated videos, narration audio, music library, and
	// uploaded photos are served directly off disk.
	mountStatic(r, "/videos", filepath.Join(cfg.MediaDir, "videos"))
	mountStatic(r, "/audio", filepath.Join(cfg.MediaDir, "audio"))
	mountStatic(r, "/music", filepath.Join(cfg.MediaDir, "music"))
	mountStatic(r, "/uploads", cfg.UploadDir)

	// API routes — protected by API key auth
	r.Route("/api", func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}

		// Videos
		r.Post("/videos", h.CreateVideo)
		r.Get("/videos/{id}", h.GetVideo)
		r.Patch("/videos/{id}", h.UpdateVideo)
		r.Get("/videos/{id}/status", h.VideoStatus)
		r.Post("/videos/{id}/generate", h.GenerateVideo)
		r.Post("/videos/{id}/cancel", h.CancelVideo)

		// Photos
		r.Post("/videos/{id}/photos", h.UploadPhoto)
		r.Get("/videos/{id}/photos", h.ListPhotos)
		r.Patch("/photos/{id}/order", h.UpdatePhotoOrder)
		r.Patch("/photos/{id}/cover", h.UpdatePhotoCover)
		r.Delete("/photos/{id}", h.DeletePhoto)
	})

	return r
}

func mountStatic(r chi.Router, prefix, dir string) {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		fs.ServeHTTP(w, req)
	})
}
