package services

import "context"

// TextLine is one drawtext overlay. Text must already be escaped for use
// inside a filter expression (see worker.EscapeOverlayText). OffsetY is
// relative to the frame's vertical center.
type TextLine struct {
	Text     string
	FontFile string
	FontSize int
	OffsetY  int
}

// FrameRequest produces a single still image of text lines over a solid
// background color.
type FrameRequest struct {
	Width      int
	Height     int
	Background string
	Lines      []TextLine
	OutputPath string
}

// SegmentRequest turns a single image into a silent video clip with a
// fade-in from black.
type SegmentRequest struct {
	ImagePath    string
	DurationSec  int
	FrameRate    int
	FadeInFrames int
	Width        int
	Height       int
	OutputPath   string
}

// ConcatRequest joins the clips listed in a concat manifest file into one
// silent video, normalizing every frame to the target geometry.
type ConcatRequest struct {
	ManifestPath string
	Width        int
	Height       int
	FrameRate    int
	OutputPath   string
}

// AudioInput is one source feeding the mix. DelayMs shifts the stream's
// start; FadeOutStartSec of zero means no fade.
type AudioInput struct {
	Path            string
	Volume          float64
	DelayMs         int
	FadeOutStartSec int
	FadeOutDurSec   int
}

// MixRequest combines one or two audio inputs into a single mp3 track.
type MixRequest struct {
	Inputs     []AudioInput
	OutputGain float64
	OutputPath string
}

// MuxRequest pairs a silent video with an audio track. The video stream is
// copied, the audio is re-encoded, and the output ends with the shorter of
// the two.
type MuxRequest struct {
	VideoPath    string
	AudioPath    string
	AudioBitrate string
	OutputPath   string
}

// MediaRenderer executes render requests. The production implementation
// shells out to ffmpeg; tests substitute a recording fake.
type MediaRenderer interface {
	RenderFrame(ctx context.Context, req FrameRequest) error
	RenderSegment(ctx context.Context, req SegmentRequest) error
	Concat(ctx context.Context, req ConcatRequest) error
	MixAudio(ctx context.Context, req MixRequest) error
	Mux(ctx context.Context, req MuxRequest) error
}
