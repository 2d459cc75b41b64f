package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/avatarlab/headcast/internal/render"
)

// ErrMux reports a failure while encoding or muxing the output video.
var ErrMux = errors.New("mux")

// FFmpegService encodes rendered frame sequences to H.264 MP4 and muxes
// narration audio in. All intermediate files live in tempDir.
type FFmpegService struct {
	tempDir string
}

func NewFFmpegService(tempDir string) *FFmpegService {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create temp dir: %v", err))
	}

	return &FFmpegService{
		tempDir: tempDir,
	}
}

// WriteVideo streams raw RGB24 frames into ffmpeg over stdin and encodes
// them as an H.264 MP4 at the given fps. All frames must share the
// dimensions of the first.
func (s *FFmpegService) WriteVideo(ctx context.Context, frames []render.Frame, fps int, outputPath string) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames to encode", ErrMux)
	}
	if fps <= 0 {
		return fmt.Errorf("%w: invalid fps %d", ErrMux, fps)
	}

	w, h := frames[0].Width, frames[0].Height
	args := []string{
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", w, h),
		"-r", fmt.Sprintf("%d", fps),
		"-i", "-", // frames arrive on stdin
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: open ffmpeg stdin: %w", ErrMux, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %w", ErrMux, err)
	}

	var writeErr error
	for i, fr := range frames {
		if fr.Width != w || fr.Height != h {
			writeErr = fmt.Errorf("frame %d is %dx%d, expected %dx%d", i, fr.Width, fr.Height, w, h)
			break
		}
		if _, err := stdin.Write(fr.Pix); err != nil {
			writeErr = fmt.Errorf("write frame %d: %w", i, err)
			break
		}
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%w: ffmpeg encode failed: %w", ErrMux, err)
	}
	if writeErr != nil {
		return fmt.Errorf("%w: %w", ErrMux, writeErr)
	}
	return nil
}

// Mux writes the frames to a temporary silent video, then remuxes it with
// the narration audio. The output ends when the shorter stream ends. The
// temporary file is removed on every path. An empty audioPath produces a
// silent video at outputPath directly.
func (s *FFmpegService) Mux(ctx context.Context, frames []render.Frame, fps int, audioPath, outputPath string) error {
	if audioPath == "" {
		return s.WriteVideo(ctx, frames, fps, outputPath)
	}

	silentPath := filepath.Join(s.tempDir, fmt.Sprintf("silent-%s.mp4", uuid.New().String()))
	defer os.Remove(silentPath)

	if err := s.WriteVideo(ctx, frames, fps, silentPath); err != nil {
		return err
	}

	args := []string{
		"-i", silentPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: ffmpeg audio mux failed: %w", ErrMux, err)
	}
	return nil
}

// GetAudioDuration returns the duration of an audio file in milliseconds
func (s *FFmpegService) GetAudioDuration(ctx context.Context, audioPath string) (int, error) {
	// Use ffprobe to get duration
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(string(output), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return int(durationSec * 1000), nil
}

// CreateTempFile creates a temporary file in the service's temp directory
func (s *FFmpegService) CreateTempFile(filename string) string {
	return filepath.Join(s.tempDir, filename)
}

// Cleanup removes temporary files
func (s *FFmpegService) Cleanup(paths ...string) {
	for _, path := range paths {
		os.Remove(path)
	}
}
