package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwade/propreel/internal/models"
	"github.com/hwade/propreel/internal/repository"
	"github.com/hwade/propreel/internal/services"
	"github.com/hwade/propreel/internal/worker"
)

func newTestServer(t *testing.T, apiKey string) (*httptest.Server, repository.Store) {
	t.Helper()

	store := repository.NewMemoryStore()
	mediaDir := t.TempDir()
	uploadDir := t.TempDir()

	narrator := services.NewNarrator(nil, nil, mediaDir)
	executor := worker.NewExecutor(services.NewFFmpegRenderer(), t.TempDir(), mediaDir)
	generator := worker.NewGenerator(store, narrator, executor, uploadDir)

	handler := NewHandler(store, generator, uploadDir)
	router := NewRouter(handler, RouterConfig{
		BackendAPIKey: apiKey,
		MediaDir:      mediaDir,
		UploadDir:     uploadDir,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestCreateVideoAppliesDefaults(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp := postJSON(t, srv.URL+"/api/videos", `{"address":"12 Oak St, Springfield, IL","price":"$375,000"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var job models.VideoJob
	decode(t, resp, &job)
	assert.Equal(t, int64(1), job.ID)
	assert.Equal(t, models.StatusPending, job.Status)
	assert.Equal(t, 5, job.SlideDuration)
	assert.Equal(t, "upbeat", job.MusicTrack)
	assert.Equal(t, "fade", job.TransitionType)
	assert.Equal(t, "alloy", job.VoiceID)
	assert.True(t, job.ShowPrice)
}

func TestGetVideoNotFound(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/api/videos/99")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/videos/notanumber")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateVideoValidatesSlideDuration(t *testing.T) {
	srv, store := newTestServer(t, "")

	job := &models.VideoJob{Address: "12 Oak St"}
	require.NoError(t, store.CreateVideoJob(t.Context(), job))

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/videos/1", strings.NewReader(`{"slideDuration":0}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodPatch, srv.URL+"/api/videos/1", strings.NewReader(`{"price":"$425,000"}`))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)

	var updated models.VideoJob
	decode(t, resp, &updated)
	assert.Equal(t, "$425,000", updated.Price)
	assert.Equal(t, "12 Oak St", updated.Address)
}

func TestGenerateVideoRequiresPhotos(t *testing.T) {
	srv, store := newTestServer(t, "")

	job := &models.VideoJob{Address: "12 Oak St"}
	require.NoError(t, store.CreateVideoJob(t.Context(), job))

	resp := postJSON(t, srv.URL+"/api/videos/1/generate", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/videos/99/generate", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVideoStatusReportsError(t *testing.T) {
	srv, store := newTestServer(t, "")

	job := &models.VideoJob{Address: "12 Oak St"}
	require.NoError(t, store.CreateVideoJob(t.Context(), job))
	require.NoError(t, store.UpdateVideoJobStatus(t.Context(), job.ID, models.StatusError))

	resp, err := http.Get(srv.URL + "/api/videos/1/status")
	require.NoError(t, err)

	var status models.JobStatusResponse
	decode(t, resp, &status)
	assert.Equal(t, models.StatusError, status.Status)
	assert.NotEmpty(t, status.Error)
	assert.Nil(t, status.VideoURL)
}

func TestUploadPhotoRejectsNonImage(t *testing.T) {
	srv, store := newTestServer(t, "")

	job := &models.VideoJob{Address: "12 Oak St"}
	require.NoError(t, store.CreateVideoJob(t.Context(), job))

	var buf bytes.Buffer
	contentType := writeMultipart(t, &buf, "photo", "notes.txt", []byte("plain text, not an image"))

	resp, err := http.Post(srv.URL+"/api/videos/1/photos", contentType, &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestUploadPhotoOrderSkipsDeletedSlots(t *testing.T) {
	srv, store := newTestServer(t, "")

	job := &models.VideoJob{Address: "12 Oak St"}
	require.NoError(t, store.CreateVideoJob(t.Context(), job))

	first := &models.PhotoRecord{VideoID: job.ID, StoredName: "a.jpg", DisplayOrder: 0}
	second := &models.PhotoRecord{VideoID: job.ID, StoredName: "b.jpg", DisplayOrder: 1}
	require.NoError(t, store.CreatePhoto(t.Context(), first))
	require.NoError(t, store.CreatePhoto(t.Context(), second))
	require.NoError(t, store.DeletePhoto(t.Context(), first.ID))

	var buf bytes.Buffer
	contentType := writeMultipart(t, &buf, "photo", "kitchen.png", pngHeader)

	resp, err := http.Post(srv.URL+"/api/videos/1/photos", contentType, &buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var photo models.PhotoRecord
	decode(t, resp, &photo)
	assert.Equal(t, 2, photo.DisplayOrder, "new photo must not reuse the surviving photo's order")
	assert.False(t, photo.IsCover)
}

func writeMultipart(t *testing.T, buf *bytes.Buffer, field, filename string, content []byte) string {
	t.Helper()
	w := multipart.NewWriter(buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return w.FormDataContentType()
}

func TestAPIKeyAuth(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	// Health stays public.
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/videos/1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/videos/1", nil)
	req.Header.Set("X-API-Key", "wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "valid key reaches the handler")
}
