package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwade/propreel/internal/models"
	"github.com/hwade/propreel/internal/repository"
	"github.com/hwade/propreel/internal/services"
)

type fakeNarrator struct {
	result  *services.NarrationResult
	err     error
	entered chan struct{}
	release chan struct{}
}

func (n *fakeNarrator) Narrate(ctx context.Context, job *models.VideoJob) (*services.NarrationResult, error) {
	if n.entered != nil {
		close(n.entered)
	}
	if n.release != nil {
		<-n.release
	}
	return n.result, n.err
}

type fakeVideoRenderer struct {
	mu      sync.Mutex
	renders int
	url     string
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeVideoRenderer) ResolveAudio(job *models.VideoJob) (string, string) {
	return "", ""
}

func (f *fakeVideoRenderer) Render(ctx context.Context, job *models.VideoJob, slides []SlideUnit, mix AudioMixPlan, musicPath, narrationPath string) (string, error) {
	f.mu.Lock()
	f.renders++
	f.mu.Unlock()
	if f.entered != nil {
		close(f.entered)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func (f *fakeVideoRenderer) renderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renders
}

func newTestJob(t *testing.T, store repository.Store, uploadDir string, photoCount int) *models.VideoJob {
	t.Helper()

	job := &models.VideoJob{
		Address:       "12 Oak St, Springfield, IL",
		Price:         "$375,000",
		ContactName:   "Jordan Realty",
		SlideDuration: 5,
		ShowPrice:     true,
	}
	require.NoError(t, store.CreateVideoJob(context.Background(), job))

	for i := 0; i < photoCount; i++ {
		name := string(rune('a'+i)) + ".jpg"
		writePhotoFile(t, uploadDir, name)
		require.NoError(t, store.CreatePhoto(context.Background(), &models.PhotoRecord{
			VideoID:    job.ID,
			StoredName: name,
		}))
	}
	return job
}

func waitForStatus(t *testing.T, store repository.Store, id int64, want models.JobStatus) *models.VideoJob {
	t.Helper()

	var job *models.VideoJob
	require.Eventually(t, func() bool {
		var err error
		job, err = store.GetVideoJob(context.Background(), id)
		return err == nil && job.Status == want
	}, 2*time.Second, 10*time.Millisecond, "job never reached status %s", want)
	return job
}

func TestGenerateRejectsJobWithoutPhotos(t *testing.T) {
	store := repository.NewMemoryStore()
	gen := NewGenerator(store, &fakeNarrator{}, &fakeVideoRenderer{}, t.TempDir())

	job := newTestJob(t, store, t.TempDir(), 0)

	err := gen.Generate(context.Background(), job.ID)
	assert.ErrorIs(t, err, models.ErrNoPhotos)

	got, err := store.GetVideoJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status, "rejection must happen before any transition")
}

func TestGenerateUnknownJob(t *testing.T) {
	store := repository.NewMemoryStore()
	gen := NewGenerator(store, &fakeNarrator{}, &fakeVideoRenderer{}, t.TempDir())

	err := gen.Generate(context.Background(), 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGenerateCompletesAndPersistsNarration(t *testing.T) {
	store := repository.NewMemoryStore()
	uploadDir := t.TempDir()
	narrator := &fakeNarrator{result: &services.NarrationResult{
		Description: "A lovely home.",
		AudioURL:    "/audio/narration-1-1.mp3",
	}}
	renderer := &fakeVideoRenderer{url: "/videos/property-video-1-1.mp4"}
	gen := NewGenerator(store, narrator, renderer, uploadDir)

	job := newTestJob(t, store, uploadDir, 2)
	require.NoError(t, gen.Generate(context.Background(), job.ID))

	got := waitForStatus(t, store, job.ID, models.StatusCompleted)
	require.NotNil(t, got.VideoURL)
	assert.Equal(t, "/videos/property-video-1-1.mp4", *got.VideoURL)
	require.NotNil(t, got.AIDescription)
	assert.Equal(t, "A lovely home.", *got.AIDescription)
	require.NotNil(t, got.NarrationURL)
	assert.Equal(t, "/audio/narration-1-1.mp3", *got.NarrationURL)
}

func TestGenerateAppliesMetadataDefaults(t *testing.T) {
	store := repository.NewMemoryStore()
	uploadDir := t.TempDir()
	gen := NewGenerator(store, &fakeNarrator{err: errors.New("no provider")},
		&fakeVideoRenderer{url: "/videos/v.mp4"}, uploadDir)

	job := &models.VideoJob{SlideDuration: 5}
	require.NoError(t, store.CreateVideoJob(context.Background(), job))
	writePhotoFile(t, uploadDir, "a.jpg")
	require.NoError(t, store.CreatePhoto(context.Background(), &models.PhotoRecord{VideoID: job.ID, StoredName: "a.jpg"}))

	require.NoError(t, gen.Generate(context.Background(), job.ID))

	got := waitForStatus(t, store, job.ID, models.StatusCompleted)
	assert.Equal(t, "Beautiful Property", got.Address)
	assert.Equal(t, "$375,000", got.Price)
	assert.Equal(t, "Property Owner", got.ContactName)
}

func TestNarrationFailureStillCompletes(t *testing.T) {
	store := repository.NewMemoryStore()
	uploadDir := t.TempDir()
	gen := NewGenerator(store, &fakeNarrator{err: models.ErrNarrationUnavailable},
		&fakeVideoRenderer{url: "/videos/v.mp4"}, uploadDir)

	job := newTestJob(t, store, uploadDir, 1)
	require.NoError(t, gen.Generate(context.Background(), job.ID))

	got := waitForStatus(t, store, job.ID, models.StatusCompleted)
	require.NotNil(t, got.VideoURL)
	assert.Nil(t, got.NarrationURL)
	assert.Nil(t, got.AIDescription)
}

func TestRenderFailureMarksError(t *testing.T) {
	store := repository.NewMemoryStore()
	uploadDir := t.TempDir()
	renderer := &fakeVideoRenderer{err: &models.RenderError{Stage: "audio mix", Err: errors.New("boom")}}
	gen := NewGenerator(store, &fakeNarrator{err: errors.New("skip")}, renderer, uploadDir)

	job := newTestJob(t, store, uploadDir, 1)
	require.NoError(t, gen.Generate(context.Background(), job.ID))

	got := waitForStatus(t, store, job.ID, models.StatusError)
	assert.Nil(t, got.VideoURL)
}

func TestCancelBeforeCheckpointSkipsRender(t *testing.T) {
	store := repository.NewMemoryStore()
	uploadDir := t.TempDir()
	narrator := &fakeNarrator{
		err:     errors.New("skip"),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	renderer := &fakeVideoRenderer{url: "/videos/v.mp4"}
	gen := NewGenerator(store, narrator, renderer, uploadDir)

	job := newTestJob(t, store, uploadDir, 1)
	require.NoError(t, gen.Generate(context.Background(), job.ID))

	// Cancel while the background task is still inside narration.
	<-narrator.entered
	cancelled, err := gen.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	close(narrator.release)

	assert.Never(t, func() bool { return renderer.renderCount() > 0 },
		300*time.Millisecond, 20*time.Millisecond, "render must not start after cancel")

	got, err := store.GetVideoJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Nil(t, got.VideoURL)
}

func TestCancelDuringRenderStillCompletes(t *testing.T) {
	store := repository.NewMemoryStore()
	uploadDir := t.TempDir()
	renderer := &fakeVideoRenderer{
		url:     "/videos/v.mp4",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	gen := NewGenerator(store, &fakeNarrator{err: errors.New("skip")}, renderer, uploadDir)

	job := newTestJob(t, store, uploadDir, 1)
	require.NoError(t, gen.Generate(context.Background(), job.ID))

	// Cancel once rendering has started. The render runs detached and its
	// completion overwrites the cancelled status.
	<-renderer.entered
	cancelled, err := gen.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	close(renderer.release)

	got := waitForStatus(t, store, job.ID, models.StatusCompleted)
	require.NotNil(t, got.VideoURL)
	assert.Equal(t, "/videos/v.mp4", *got.VideoURL)
}

func TestGenerateRejectsProcessingJob(t *testing.T) {
	store := repository.NewMemoryStore()
	uploadDir := t.TempDir()
	renderer := &fakeVideoRenderer{
		url:     "/videos/v.mp4",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	gen := NewGenerator(store, &fakeNarrator{err: errors.New("skip")}, renderer, uploadDir)

	job := newTestJob(t, store, uploadDir, 1)
	require.NoError(t, gen.Generate(context.Background(), job.ID))

	<-renderer.entered
	err := gen.Generate(context.Background(), job.ID)
	assert.ErrorIs(t, err, models.ErrGenerationInProgress)
	close(renderer.release)

	waitForStatus(t, store, job.ID, models.StatusCompleted)
	assert.Equal(t, 1, renderer.renderCount(), "second generate must not start another render")
}

func TestCancelIgnoresFinishedJob(t *testing.T) {
	store := repository.NewMemoryStore()
	gen := NewGenerator(store, &fakeNarrator{}, &fakeVideoRenderer{}, t.TempDir())

	job := newTestJob(t, store, t.TempDir(), 0)
	require.NoError(t, store.UpdateVideoJobURL(context.Background(), job.ID, "/videos/v.mp4"))

	got, err := gen.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status, "cancel leaves non-processing jobs alone")
}

func TestRegenerationRestartsFinishedJob(t *testing.T) {
	store := repository.NewMemoryStore()
	uploadDir := t.TempDir()
	renderer := &fakeVideoRenderer{url: "/videos/v2.mp4"}
	gen := NewGenerator(store, &fakeNarrator{err: errors.New("skip")}, renderer, uploadDir)

	job := newTestJob(t, store, uploadDir, 1)
	require.NoError(t, store.UpdateVideoJobURL(context.Background(), job.ID, "/videos/v1.mp4"))

	require.NoError(t, gen.Generate(context.Background(), job.ID))

	require.Eventually(t, func() bool {
		got, err := store.GetVideoJob(context.Background(), job.ID)
		return err == nil && got.Status == models.StatusCompleted &&
			got.VideoURL != nil && *got.VideoURL == "/videos/v2.mp4"
	}, 2*time.Second, 10*time.Millisecond, "regeneration never produced a new video")
}
