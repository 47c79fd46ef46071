package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Canonical clip geometry — 720x1280 vertical, matching the catalog seeding
// format so every clip in a composition shares one frame size.
const (
	clipWidth  = 720
	clipHeight = 1280

	// Source clips are trimmed to this length on normalization; the timeline
	// decides how much of each clip is actually shown.
	clipTrimSeconds = 5

	subprocessTimeout = 120 * time.Second
)

// ---------------------------------------------------------------------------
// FFmpegService — wraps the ffmpeg/ffprobe command-line tools. All
// invocations use argument vectors, never shell interpolation.
// ---------------------------------------------------------------------------

type FFmpegService struct {
	tempDir string
}

func NewFFmpegService(tempDir string) (*FFmpegService, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	return &FFmpegService{tempDir: tempDir}, nil
}

// TranscodeVertical normalizes an arbitrary input clip to the canonical
// vertical geometry: scaled to fit 720x1280 preserving aspect ratio, padded
// to fill, trimmed to the standard clip length. keepAudio controls whether
// the source audio track survives; catalog clips are muted so narration and
// music are the only audio in the final composition.
func (s *FFmpegService) TranscodeVertical(ctx context.Context, inputPath, outputPath string, keepAudio bool) error {
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		clipWidth, clipHeight, clipWidth, clipHeight,
	)

	args := []string{
		"-y",
		"-i", inputPath,
		"-t", strconv.Itoa(clipTrimSeconds),
		"-vf", vf,
	}
	if !keepAudio {
		args = append(args, "-an")
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		outputPath,
	)

	return s.runFFmpeg(ctx, args)
}

// GenerateSilence writes a silent audio file of exactly the given duration.
// Used as the narration fallback when the speech service rejects a request.
func (s *FFmpegService) GenerateSilence(ctx context.Context, outputPath string, seconds float64) error {
	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=mono",
		"-t", fmt.Sprintf("%.3f", seconds),
		"-c:a", "libmp3lame",
		"-b:a", "128k",
		outputPath,
	}

	return s.runFFmpeg(ctx, args)
}

func (s *FFmpegService) runFFmpeg(ctx context.Context, args []string) error {
	runCtx, cancel := context.WithTimeout(ctx, subprocessTimeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, "ffmpeg", args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, truncateOutput(stderr.String(), 500))
	}

	return nil
}

// ProbeDuration returns the duration of a media file in seconds using ffprobe.
func (s *FFmpegService) ProbeDuration(ctx context.Context, path string) (float64, error) {
	runCtx, cancel := context.WithTimeout(ctx, subprocessTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(runCtx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return seconds, nil
}

// CreateTempFile returns a scratch path in the service's temp directory.
// Callers namespace filenames per job/segment so concurrent jobs never collide.
func (s *FFmpegService) CreateTempFile(filename string) string {
	return filepath.Join(s.tempDir, filename)
}

// Cleanup removes temporary files
func (s *FFmpegService) Cleanup(paths ...string) {
	for _, path := range paths {
		os.Remove(path)
	}
}

// truncateOutput limits captured subprocess output for error messages
func truncateOutput(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
