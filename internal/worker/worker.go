package worker

import (
	"context"
	"log"
	"sync"

	"github.com/hwade/propreel/internal/models"
	"github.com/hwade/propreel/internal/repository"
	"github.com/hwade/propreel/internal/services"
)

// JobNarrator produces the narration track for a job.
type JobNarrator interface {
	Narrate(ctx context.Context, job *models.VideoJob) (*services.NarrationResult, error)
}

// VideoRenderer runs the render pipeline for a planned job.
type VideoRenderer interface {
	ResolveAudio(job *models.VideoJob) (musicPath, narrationPath string)
	Render(ctx context.Context, job *models.VideoJob, slides []SlideUnit, mix AudioMixPlan, musicPath, narrationPath string) (string, error)
}

// Generator owns the video job lifecycle. Each generation runs as its own
// goroutine; there is no queue. A per-job cancel function lets Cancel stop a
// run before rendering begins.
type Generator struct {
	store     repository.Store
	narrator  JobNarrator
	renderer  VideoRenderer
	uploadDir string

	mu      sync.Mutex
	running map[int64]context.CancelFunc
}

func NewGenerator(store repository.Store, narrator JobNarrator, renderer VideoRenderer, uploadDir string) *Generator {
	return &Generator{
		store:     store,
		narrator:  narrator,
		renderer:  renderer,
		uploadDir: uploadDir,
		running:   make(map[int64]context.CancelFunc),
	}
}

// Generate starts video generation for a job and returns as soon as the job
// is marked processing. A job with no photos is rejected before any state
// change. Calling Generate on a finished job starts a fresh run.
func (g *Generator) Generate(ctx context.Context, id int64) error {
	job, err := g.store.GetVideoJob(ctx, id)
	if err != nil {
		return err
	}

	photos, err := g.store.ListPhotosByVideo(ctx, id)
	if err != nil {
		return err
	}
	if len(photos) == 0 {
		return models.ErrNoPhotos
	}

	if !models.CanTransition(job.Status, models.StatusProcessing) {
		return models.ErrGenerationInProgress
	}

	if upd, needed := metadataDefaults(job); needed {
		if job, err = g.store.UpdateVideoJob(ctx, id, upd); err != nil {
			return err
		}
	}

	if err := g.store.UpdateVideoJobStatus(ctx, id, models.StatusProcessing); err != nil {
		return err
	}
	job.Status = models.StatusProcessing

	runCtx, cancel := context.WithCancel(context.Background())
	g.mu.Lock()
	if prev, ok := g.running[id]; ok {
		prev()
	}
	g.running[id] = cancel
	g.mu.Unlock()

	log.Printf("[GENERATE] job %d: starting generation with %d photos", id, len(photos))
	go g.run(runCtx, job, photos)
	return nil
}

// Cancel stops a processing job. Jobs in any other state are left untouched.
func (g *Generator) Cancel(ctx context.Context, id int64) (*models.VideoJob, error) {
	job, err := g.store.GetVideoJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(job.Status, models.StatusCancelled) {
		return job, nil
	}

	if err := g.store.UpdateVideoJobStatus(ctx, id, models.StatusCancelled); err != nil {
		return nil, err
	}
	job.Status = models.StatusCancelled

	g.mu.Lock()
	if cancel, ok := g.running[id]; ok {
		cancel()
		delete(g.running, id)
	}
	g.mu.Unlock()

	log.Printf("[CANCEL] job %d: cancelled", id)
	return job, nil
}

func metadataDefaults(job *models.VideoJob) (models.VideoJobUpdate, bool) {
	var upd models.VideoJobUpdate
	needed := false
	if job.Address == "" {
		v := "Beautiful Property"
		upd.Address = &v
		needed = true
	}
	if job.Price == "" {
		v := "$375,000"
		upd.Price = &v
		needed = true
	}
	if job.ContactName == "" {
		v := "Property Owner"
		upd.ContactName = &v
		needed = true
	}
	return upd, needed
}

// run is the background generation task. ctx is the job's cancellation
// token: it covers narration and the pre-render checkpoint. The render
// itself runs detached so a cancel request never kills ffmpeg mid-flight,
// and store writes use the background context so results are persisted even
// after a late cancel loses the race.
func (g *Generator) run(ctx context.Context, job *models.VideoJob, photos []models.PhotoRecord) {
	defer g.release(job.ID)

	if result, err := g.narrator.Narrate(ctx, job); err != nil {
		log.Printf("[GENERATE] job %d: narration unavailable, continuing without: %v", job.ID, err)
	} else {
		if err := g.store.UpdateVideoJobNarration(context.Background(), job.ID, result.Description, result.AudioURL); err != nil {
			log.Printf("[GENERATE] job %d: failed to persist narration: %v", job.ID, err)
		}
		job.AIDescription = &result.Description
		job.NarrationURL = &result.AudioURL
	}

	// Cancellation checkpoint: last chance to stop before committing to a
	// full render.
	current, err := g.store.GetVideoJob(context.Background(), job.ID)
	if err != nil {
		log.Printf("[GENERATE] job %d: checkpoint read failed: %v", job.ID, err)
		g.fail(job.ID)
		return
	}
	if current.Status == models.StatusCancelled || ctx.Err() != nil {
		log.Printf("[GENERATE] job %d: cancelled before render", job.ID)
		return
	}

	slides, err := BuildSlidePlan(job, photos, g.uploadDir)
	if err != nil {
		log.Printf("[GENERATE] job %d: slide planning failed: %v", job.ID, err)
		g.fail(job.ID)
		return
	}

	musicPath, narrationPath := g.renderer.ResolveAudio(job)
	mix := BuildAudioMixPlan(slides, musicPath != "", narrationPath != "")

	videoURL, err := g.renderer.Render(context.Background(), job, slides, mix, musicPath, narrationPath)
	if err != nil {
		log.Printf("[GENERATE] job %d: render failed: %v", job.ID, err)
		g.fail(job.ID)
		return
	}

	if err := g.store.UpdateVideoJobURL(context.Background(), job.ID, videoURL); err != nil {
		log.Printf("[GENERATE] job %d: failed to persist video URL: %v", job.ID, err)
		g.fail(job.ID)
		return
	}
	log.Printf("[GENERATE] job %d: completed, video at %s", job.ID, videoURL)
}

func (g *Generator) fail(id int64) {
	if err := g.store.UpdateVideoJobStatus(context.Background(), id, models.StatusError); err != nil {
		log.Printf("[GENERATE] job %d: failed to mark error: %v", id, err)
	}
}

func (g *Generator) release(id int64) {
	g.mu.Lock()
	if cancel, ok := g.running[id]; ok {
		cancel()
		delete(g.running, id)
	}
	g.mu.Unlock()
}
