package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// Bundled DejaVu faces, present on the render hosts.
const (
	FontBold = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
	FontSans = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
	FontMono = "/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf"
)

// FFmpegRenderer implements MediaRenderer by invoking the ffmpeg binary.
// Arguments are passed as an argv, never through a shell.
type FFmpegRenderer struct {
	binary string
}

var _ MediaRenderer = (*FFmpegRenderer)(nil)

func NewFFmpegRenderer() *FFmpegRenderer {
	return &FFmpegRenderer{binary: "ffmpeg"}
}

func (r *FFmpegRenderer) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, r.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Printf("[FFMPEG] running: %s %s", r.binary, strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, stderrTail(stderr.String()))
	}
	return nil
}

// stderrTail keeps the last few lines of ffmpeg output, which is where the
// actual failure reason lands.
func stderrTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, " | ")
}

func (r *FFmpegRenderer) RenderFrame(ctx context.Context, req FrameRequest) error {
	filters := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		// drawtext rejects an empty text value.
		if line.Text == "" {
			continue
		}
		filters = append(filters, fmt.Sprintf(
			"drawtext=text=%s:fontfile=%s:fontsize=%d:fontcolor=white:x=(w-text_w)/2:y=(h-text_h)/2%s",
			line.Text, line.FontFile, line.FontSize, offsetExpr(line.OffsetY)))
	}

	return r.run(ctx,
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d", req.Background, req.Width, req.Height),
		"-vf", strings.Join(filters, ","),
		"-frames:v", "1",
		req.OutputPath,
	)
}

func offsetExpr(offset int) string {
	switch {
	case offset > 0:
		return fmt.Sprintf("+%d", offset)
	case offset < 0:
		return fmt.Sprintf("%d", offset)
	default:
		return ""
	}
}

func (r *FFmpegRenderer) RenderSegment(ctx context.Context, req SegmentRequest) error {
	return r.run(ctx,
		"-y",
		"-loop", "1",
		"-i", req.ImagePath,
		"-filter_complex", fmt.Sprintf("[0:v]scale=%d:%d,fade=in:0:%d,format=yuv420p",
			req.Width, req.Height, req.FadeInFrames),
		"-t", fmt.Sprintf("%d", req.DurationSec),
		"-c:v", "libx264",
		"-preset", "fast",
		"-r", fmt.Sprintf("%d", req.FrameRate),
		req.OutputPath,
	)
}

func (r *FFmpegRenderer) Concat(ctx context.Context, req ConcatRequest) error {
	return r.run(ctx,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", req.ManifestPath,
		"-vf", fmt.Sprintf(
			"fps=%d,scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,format=yuv420p",
			req.FrameRate, req.Width, req.Height, req.Width, req.Height),
		"-an",
		"-c:v", "libx264",
		"-preset", "fast",
		req.OutputPath,
	)
}

func (r *FFmpegRenderer) MixAudio(ctx context.Context, req MixRequest) error {
	args := []string{"-y"}
	for _, in := range req.Inputs {
		args = append(args, "-i", in.Path)
	}

	var chains []string
	labels := make([]string, 0, len(req.Inputs))
	for i, in := range req.Inputs {
		steps := []string{fmt.Sprintf("volume=%g", in.Volume)}
		if in.FadeOutStartSec > 0 {
			steps = append(steps, fmt.Sprintf("afade=t=out:st=%d:d=%d", in.FadeOutStartSec, in.FadeOutDurSec))
		}
		if in.DelayMs > 0 {
			steps = append(steps, fmt.Sprintf("adelay=%d|%d", in.DelayMs, in.DelayMs))
		}
		label := fmt.Sprintf("[a%d]", i)
		chains = append(chains, fmt.Sprintf("[%d:a]%s%s", i, strings.Join(steps, ","), label))
		labels = append(labels, label)
	}

	var out string
	if len(req.Inputs) == 1 {
		out = labels[0]
	} else {
		out = "[aout]"
		chains = append(chains, fmt.Sprintf("%samix=inputs=%d:duration=longest,volume=%g%s",
			strings.Join(labels, ""), len(req.Inputs), req.OutputGain, out))
	}

	args = append(args,
		"-filter_complex", strings.Join(chains, ";"),
		"-map", out,
		"-c:a", "libmp3lame",
		req.OutputPath,
	)
	return r.run(ctx, args...)
}

func (r *FFmpegRenderer) Mux(ctx context.Context, req MuxRequest) error {
	return r.run(ctx,
		"-y",
		"-i", req.VideoPath,
		"-i", req.AudioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", req.AudioBitrate,
		"-shortest",
		req.OutputPath,
	)
}
