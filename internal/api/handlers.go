package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hwade/propreel/internal/models"
	"github.com/hwade/propreel/internal/repository"
	"github.com/hwade/propreel/internal/worker"
)

const maxUploadBytes = 10 << 20 // 10 MB per photo

type Handler struct {
	store     repository.Store
	generator *worker.Generator
	uploadDir string
}

func NewHandler(store repository.Store, generator *worker.Generator, uploadDir string) *Handler {
	return &Handler{
		store:     store,
		generator: generator,
		uploadDir: uploadDir,
	}
}

// CreateVideo handles POST /api/videos
func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVideoJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Set defaults
	showPrice := true
	if req.ShowPrice != nil {
		showPrice = *req.ShowPrice
	}
	if req.SlideDuration <= 0 {
		req.SlideDuration = 5
	}
	if req.MusicTrack == "" {
		req.MusicTrack = "upbeat"
	}
	if req.TransitionType == "" {
		req.TransitionType = "fade"
	}
	if req.VoiceID == "" {
		req.VoiceID = "alloy"
	}

	job := &models.VideoJob{
		Address:        req.Address,
		StreetAddress:  req.StreetAddress,
		City:           req.City,
		State:          req.State,
		ZipCode:        req.ZipCode,
		Price:          req.Price,
		Description:    req.Description,
		ContactName:    req.ContactName,
		ContactPhone:   req.ContactPhone,
		ContactEmail:   req.ContactEmail,
		MusicTrack:     req.MusicTrack,
		SlideDuration:  req.SlideDuration,
		TransitionType: req.TransitionType,
		ShowPrice:      showPrice,
		VoiceID:        req.VoiceID,
	}

	if err := h.store.CreateVideoJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create video")
		return
	}

	respondJSON(w, http.StatusCreated, job)
}

// GetVideo handles GET /api/videos/{id}
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := videoID(w, r)
	if !ok {
		return
	}

	job, err := h.store.GetVideoJob(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "Video not found")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// UpdateVideo handles PATCH /api/videos/{id}
func (h *Handler) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := videoID(w, r)
	if !ok {
		return
	}

	var upd models.VideoJobUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if upd.SlideDuration != nil && *upd.SlideDuration <= 0 {
		respondError(w, http.StatusBadRequest, "slideDuration must be at least 1 second")
		return
	}

	job, err := h.store.UpdateVideoJob(r.Context(), id, upd)
	if err != nil {
		respondStoreError(w, err, "Video not found")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// UploadPhoto handles POST /api/videos/{id}/photos
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := videoID(w, r)
	if !ok {
		return
	}

	if _, err := h.store.GetVideoJob(r.Context(), id); err != nil {
		respondStoreError(w, err, "Video not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Photo too large or invalid form")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing photo field")
		return
	}
	defer file.Close()

	ext, err := sniffImageExt(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Only JPEG, PNG and WebP images are accepted")
		return
	}

	storedName := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(h.uploadDir, storedName))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save photo")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		respondError(w, http.StatusInternalServerError, "Failed to save photo")
		return
	}
	dst.Close()

	existing, err := h.store.ListPhotosByVideo(r.Context(), id)
	if err != nil {
		os.Remove(filepath.Join(h.uploadDir, storedName))
		respondError(w, http.StatusInternalServerError, "Failed to save photo")
		return
	}

	// Orders may have gaps after deletions, so append past the current
	// maximum rather than reusing the count.
	nextOrder := 0
	for _, p := range existing {
		if p.DisplayOrder >= nextOrder {
			nextOrder = p.DisplayOrder + 1
		}
	}

	photo := &models.PhotoRecord{
		VideoID:      id,
		OriginalName: header.Filename,
		StoredName:   storedName,
		DisplayOrder: nextOrder,
		IsCover:      len(existing) == 0, // first upload becomes the cover
	}
	if err := h.store.CreatePhoto(r.Context(), photo); err != nil {
		os.Remove(filepath.Join(h.uploadDir, storedName))
		respondError(w, http.StatusInternalServerError, "Failed to save photo")
		return
	}

	respondJSON(w, http.StatusCreated, photo)
}

// sniffImageExt checks the magic bytes of an upload and returns the file
// extension to store it under. The reader is rewound afterwards.
func sniffImageExt(file io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	switch http.DetectContentType(head[:n]) {
	case "image/jpeg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/webp":
		return ".webp", nil
	}
	return "", errors.New("unsupported image type")
}

// ListPhotos handles GET /api/videos/{id}/photos
func (h *Handler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	id, ok := videoID(w, r)
	if !ok {
		return
	}

	photos, err := h.store.ListPhotosByVideo(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list photos")
		return
	}
	if photos == nil {
		photos = []models.PhotoRecord{}
	}

	respondJSON(w, http.StatusOK, photos)
}

// UpdatePhotoOrder handles PATCH /api/photos/{id}/order
func (h *Handler) UpdatePhotoOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid photo ID")
	if !ok {
		return
	}

	var req struct {
		Order *int `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Order == nil {
		respondError(w, http.StatusBadRequest, "Order is required")
		return
	}

	photo, err := h.store.UpdatePhotoOrder(r.Context(), id, *req.Order)
	if err != nil {
		respondStoreError(w, err, "Photo not found")
		return
	}

	respondJSON(w, http.StatusOK, photo)
}

// UpdatePhotoCover handles PATCH /api/photos/{id}/cover
func (h *Handler) UpdatePhotoCover(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid photo ID")
	if !ok {
		return
	}

	var req struct {
		IsCover *bool `json:"isCover"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsCover == nil {
		respondError(w, http.StatusBadRequest, "isCover is required")
		return
	}

	photo, err := h.store.UpdatePhotoCover(r.Context(), id, *req.IsCover)
	if err != nil {
		respondStoreError(w, err, "Photo not found")
		return
	}

	respondJSON(w, http.StatusOK, photo)
}

// DeletePhoto handles DELETE /api/photos/{id}
func (h *Handler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid photo ID")
	if !ok {
		return
	}

	photo, err := h.store.GetPhoto(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "Photo not found")
		return
	}

	if err := h.store.DeletePhoto(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete photo")
		return
	}

	// Record is gone; a leftover file is harmless.
	if err := os.Remove(filepath.Join(h.uploadDir, photo.StoredName)); err != nil && !os.IsNotExist(err) {
		log.Printf("[PHOTOS] failed to remove file for photo %d: %v", id, err)
	}

	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// GenerateVideo handles POST /api/videos/{id}/generate
func (h *Handler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := videoID(w, r)
	if !ok {
		return
	}

	err := h.generator.Generate(r.Context(), id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, "Video not found")
	case errors.Is(err, models.ErrNoPhotos):
		respondError(w, http.StatusBadRequest, "No photos available for video creation")
	case errors.Is(err, models.ErrGenerationInProgress):
		respondError(w, http.StatusConflict, "Video generation already in progress")
	case err != nil:
		respondError(w, http.StatusInternalServerError, "Failed to start video generation")
	default:
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"id":     id,
			"status": models.StatusProcessing,
		})
	}
}

// CancelVideo handles POST /api/videos/{id}/cancel
func (h *Handler) CancelVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := videoID(w, r)
	if !ok {
		return
	}

	job, err := h.generator.Cancel(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "Video not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":     job.ID,
		"status": job.Status,
	})
}

// VideoStatus handles GET /api/videos/{id}/status
func (h *Handler) VideoStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := videoID(w, r)
	if !ok {
		return
	}

	job, err := h.store.GetVideoJob(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "Video not found")
		return
	}

	resp := models.JobStatusResponse{
		ID:       job.ID,
		Status:   job.Status,
		VideoURL: job.VideoURL,
	}
	if job.Status == models.StatusError {
		resp.Error = "Video generation failed"
	}

	respondJSON(w, http.StatusOK, resp)
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func videoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	return pathID(w, r, "Invalid video ID")
}

func pathID(w http.ResponseWriter, r *http.Request, msg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, msg)
		return 0, false
	}
	return id, true
}

func respondStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, models.ErrNotFound) {
		respondError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	respondError(w, http.StatusInternalServerError, "Internal server error")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
