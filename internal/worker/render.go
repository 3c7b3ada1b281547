package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hwade/propreel/internal/models"
	"github.com/hwade/propreel/internal/services"
)

const defaultMusicTrack = "upbeat"

// Executor drives a full render: overlay frames, per-slide segments,
// concatenation, audio mix, and the final mux. Intermediate files live in
// tempDir and are removed when the render finishes, success or not; the
// final video lands under mediaDir/videos.
type Executor struct {
	renderer services.MediaRenderer
	tempDir  string
	mediaDir string
}

func NewExecutor(renderer services.MediaRenderer, tempDir, mediaDir string) *Executor {
	return &Executor{renderer: renderer, tempDir: tempDir, mediaDir: mediaDir}
}

// scratch tracks intermediate files for exactly-once removal.
type scratch struct {
	paths []string
	done  bool
}

func (s *scratch) file(path string) string {
	s.paths = append(s.paths, path)
	return path
}

func (s *scratch) cleanup() {
	if s.done {
		return
	}
	s.done = true
	for _, p := range s.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("[CLEANUP] failed to remove %s: %v", p, err)
		}
	}
}

// ResolveAudio locates the audio sources for a job. Either path may come
// back empty: a missing music track is logged and dropped rather than
// failing the render, and narration is simply absent when the narration
// stage produced nothing.
func (e *Executor) ResolveAudio(job *models.VideoJob) (musicPath, narrationPath string) {
	track := job.MusicTrack
	if track == "" {
		track = defaultMusicTrack
	}
	music := filepath.Join(e.mediaDir, "music", track+".mp3")
	if _, err := os.Stat(music); err != nil {
		log.Printf("[RENDER] job %d: music track %q not found, rendering without music", job.ID, track)
	} else {
		musicPath = music
	}

	if job.NarrationURL != nil {
		narration := filepath.Join(e.mediaDir, filepath.FromSlash(strings.TrimPrefix(*job.NarrationURL, "/")))
		if _, err := os.Stat(narration); err != nil {
			log.Printf("[RENDER] job %d: narration file %s not found", job.ID, narration)
		} else {
			narrationPath = narration
		}
	}
	return musicPath, narrationPath
}

// Render executes the slide plan and returns the public URL of the finished
// video.
func (e *Executor) Render(ctx context.Context, job *models.VideoJob, slides []SlideUnit, mix AudioMixPlan, musicPath, narrationPath string) (string, error) {
	sc := &scratch{}
	defer sc.cleanup()

	finalName := fmt.Sprintf("property-video-%d-%d.mp4", job.ID, time.Now().UnixMilli())
	finalPath := filepath.Join(e.mediaDir, "videos", finalName)

	titleFrame := sc.file(filepath.Join(e.tempDir, fmt.Sprintf("title-%d.png", job.ID)))
	contactFrame := sc.file(filepath.Join(e.tempDir, fmt.Sprintf("contact-%d.png", job.ID)))

	// The two overlay frames are independent of each other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.renderFrame(gctx, slides, SlideTitle, titleFrame)
	})
	g.Go(func() error {
		return e.renderFrame(gctx, slides, SlideContact, contactFrame)
	})
	if err := g.Wait(); err != nil {
		return "", &models.RenderError{Stage: "overlay frames", Err: err}
	}

	var segments []string
	photoIndex := 0
	for _, slide := range slides {
		var image, stage string
		switch slide.Kind {
		case SlideTitle:
			image = titleFrame
			stage = "title slide"
		case SlideContact:
			image = contactFrame
			stage = "contact slide"
		default:
			photoIndex++
			image = slide.PhotoPath
			stage = fmt.Sprintf("photo segment %d", photoIndex)
		}

		out := sc.file(filepath.Join(e.tempDir, fmt.Sprintf("segment-%d-%d.mp4", job.ID, len(segments))))
		err := e.renderer.RenderSegment(ctx, services.SegmentRequest{
			ImagePath:    image,
			DurationSec:  slide.DurationSec,
			FrameRate:    frameRate,
			FadeInFrames: frameRate,
			Width:        frameWidth,
			Height:       frameHeight,
			OutputPath:   out,
		})
		if err != nil {
			return "", &models.RenderError{Stage: stage, Err: err}
		}
		segments = append(segments, out)
	}

	manifest := sc.file(filepath.Join(e.tempDir, fmt.Sprintf("filelist-%d.txt", job.ID)))
	if err := writeConcatManifest(manifest, segments); err != nil {
		return "", &models.RenderError{Stage: "concatenation", Err: err}
	}

	hasAudio := mix.HasMusic || mix.HasNarration

	concatOut := finalPath
	if hasAudio {
		concatOut = sc.file(filepath.Join(e.tempDir, fmt.Sprintf("slideshow-%d.mp4", job.ID)))
	}
	err := e.renderer.Concat(ctx, services.ConcatRequest{
		ManifestPath: manifest,
		Width:        frameWidth,
		Height:       frameHeight,
		FrameRate:    frameRate,
		OutputPath:   concatOut,
	})
	if err != nil {
		return "", &models.RenderError{Stage: "concatenation", Err: err}
	}

	if !hasAudio {
		log.Printf("[RENDER] job %d: no audio sources, produced silent video", job.ID)
		return "/videos/" + finalName, nil
	}

	var inputs []services.AudioInput
	if mix.HasMusic {
		inputs = append(inputs, services.AudioInput{
			Path:            musicPath,
			Volume:          mix.MusicVolume,
			FadeOutStartSec: mix.MusicFadeStartSec,
			FadeOutDurSec:   mix.MusicFadeDurSec,
		})
	}
	if mix.HasNarration {
		inputs = append(inputs, services.AudioInput{
			Path:    narrationPath,
			Volume:  mix.NarrationVolume,
			DelayMs: mix.NarrationDelayMs,
		})
	}

	mixOut := sc.file(filepath.Join(e.tempDir, fmt.Sprintf("mix-%d.mp3", job.ID)))
	err = e.renderer.MixAudio(ctx, services.MixRequest{
		Inputs:     inputs,
		OutputGain: mix.OutputGain,
		OutputPath: mixOut,
	})
	if err != nil {
		return "", &models.RenderError{Stage: "audio mix", Err: err}
	}

	err = e.renderer.Mux(ctx, services.MuxRequest{
		VideoPath:    concatOut,
		AudioPath:    mixOut,
		AudioBitrate: "192k",
		OutputPath:   finalPath,
	})
	if err != nil {
		return "", &models.RenderError{Stage: "audio mux", Err: err}
	}

	return "/videos/" + finalName, nil
}

func (e *Executor) renderFrame(ctx context.Context, slides []SlideUnit, kind SlideKind, out string) error {
	for _, slide := range slides {
		if slide.Kind != kind {
			continue
		}
		return e.renderer.RenderFrame(ctx, services.FrameRequest{
			Width:      frameWidth,
			Height:     frameHeight,
			Background: "black",
			Lines:      slide.Lines,
			OutputPath: out,
		})
	}
	return fmt.Errorf("slide plan has no slide of kind %d", kind)
}

func writeConcatManifest(path string, segments []string) error {
	var sb strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&sb, "file '%s'\n", seg)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write concat manifest: %w", err)
	}
	return nil
}
