package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwade/propreel/internal/models"
	"github.com/hwade/propreel/internal/services"
)

// fakeRenderer records invocations and writes a marker file for each output,
// so scratch cleanup has real files to remove.
type fakeRenderer struct {
	mu     sync.Mutex
	calls  []string
	failAt string
}

func (f *fakeRenderer) record(name, out string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if f.failAt == name {
		return errors.New("boom")
	}
	return os.WriteFile(out, []byte(name), 0644)
}

func (f *fakeRenderer) RenderFrame(_ context.Context, req services.FrameRequest) error {
	return f.record("frame", req.OutputPath)
}

func (f *fakeRenderer) RenderSegment(_ context.Context, req services.SegmentRequest) error {
	return f.record("segment", req.OutputPath)
}

func (f *fakeRenderer) Concat(_ context.Context, req services.ConcatRequest) error {
	return f.record("concat", req.OutputPath)
}

func (f *fakeRenderer) MixAudio(_ context.Context, req services.MixRequest) error {
	return f.record("mix", req.OutputPath)
}

func (f *fakeRenderer) Mux(_ context.Context, req services.MuxRequest) error {
	return f.record("mux", req.OutputPath)
}

func renderFixture(t *testing.T) (*models.VideoJob, []SlideUnit, string) {
	t.Helper()

	uploadDir := t.TempDir()
	writePhotoFile(t, uploadDir, "a.jpg")

	job := &models.VideoJob{ID: 7, Address: "12 Oak St", ContactName: "Owner", SlideDuration: 5, MusicTrack: "upbeat"}
	photos := []models.PhotoRecord{{ID: 1, StoredName: "a.jpg"}}

	slides, err := BuildSlidePlan(job, photos, uploadDir)
	require.NoError(t, err)
	return job, slides, uploadDir
}

func newTestExecutor(t *testing.T, renderer services.MediaRenderer) (*Executor, string, string) {
	t.Helper()
	tempDir := t.TempDir()
	mediaDir := t.TempDir()
	for _, sub := range []string{"videos", "audio", "music"} {
		require.NoError(t, os.MkdirAll(filepath.Join(mediaDir, sub), 0755))
	}
	return NewExecutor(renderer, tempDir, mediaDir), tempDir, mediaDir
}

func TestRenderWithAudioRunsFullPipeline(t *testing.T) {
	job, slides, _ := renderFixture(t)

	fake := &fakeRenderer{}
	exec, tempDir, mediaDir := newTestExecutor(t, fake)

	musicPath := filepath.Join(mediaDir, "music", "upbeat.mp3")
	require.NoError(t, os.WriteFile(musicPath, []byte("mp3"), 0644))

	mix := BuildAudioMixPlan(slides, true, false)
	url, err := exec.Render(context.Background(), job, slides, mix, musicPath, "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "/videos/property-video-7-"))
	assert.True(t, strings.HasSuffix(url, ".mp4"))

	// Two overlay frames, three segments, then concat, mix, mux.
	assert.Equal(t, []string{"frame", "frame", "segment", "segment", "segment", "concat", "mix", "mux"}, fake.calls)

	// Intermediates are gone, final video remains.
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	final, err := os.ReadDir(filepath.Join(mediaDir, "videos"))
	require.NoError(t, err)
	assert.Len(t, final, 1)
}

func TestRenderWithoutAudioSkipsMixAndMux(t *testing.T) {
	job, slides, _ := renderFixture(t)

	fake := &fakeRenderer{}
	exec, tempDir, _ := newTestExecutor(t, fake)

	mix := BuildAudioMixPlan(slides, false, false)
	_, err := exec.Render(context.Background(), job, slides, mix, "", "")
	require.NoError(t, err)

	assert.NotContains(t, fake.calls, "mix")
	assert.NotContains(t, fake.calls, "mux")

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRenderFailureTagsStageAndCleansUp(t *testing.T) {
	job, slides, _ := renderFixture(t)

	fake := &fakeRenderer{failAt: "concat"}
	exec, tempDir, _ := newTestExecutor(t, fake)

	mix := BuildAudioMixPlan(slides, false, false)
	_, err := exec.Render(context.Background(), job, slides, mix, "", "")
	require.Error(t, err)

	var renderErr *models.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "concatenation", renderErr.Stage)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch files must be removed on failure too")
}

func TestResolveAudioMissingSources(t *testing.T) {
	fake := &fakeRenderer{}
	exec, _, mediaDir := newTestExecutor(t, fake)

	job := &models.VideoJob{ID: 7, MusicTrack: "nosuchtrack"}
	music, narration := exec.ResolveAudio(job)
	assert.Empty(t, music)
	assert.Empty(t, narration)

	// Default track kicks in when the job names none.
	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "music", "upbeat.mp3"), []byte("m"), 0644))
	job = &models.VideoJob{ID: 7}
	music, _ = exec.ResolveAudio(job)
	assert.Equal(t, filepath.Join(mediaDir, "music", "upbeat.mp3"), music)

	narrationURL := "/audio/narration-7-1.mp3"
	job.NarrationURL = &narrationURL
	_, narration = exec.ResolveAudio(job)
	assert.Empty(t, narration, "narration URL without a backing file resolves to nothing")

	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "audio", "narration-7-1.mp3"), []byte("n"), 0644))
	_, narration = exec.ResolveAudio(job)
	assert.Equal(t, filepath.Join(mediaDir, "audio", "narration-7-1.mp3"), narration)
}
