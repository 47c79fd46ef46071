package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"

	"github.com/adreel/adreel/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ---------------------------------------------------------------------------
// Synthesizer — per-segment narration: TTS → scratch file → measured
// duration → upload. The measured duration is ground truth; the planner's
// estimate is never trusted for timing.
// ---------------------------------------------------------------------------

// audioToolkit is the slice of FFmpegService the synthesizer needs.
type audioToolkit interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	GenerateSilence(ctx context.Context, outputPath string, seconds float64) error
	CreateTempFile(filename string) string
	Cleanup(paths ...string)
}

// audioUploader is the slice of the storage client the synthesizer needs.
type audioUploader interface {
	UploadFile(ctx context.Context, bucket, key, localPath, contentType string) error
	GetPublicURL(bucket, key string) string
}

type Synthesizer struct {
	tts             TTSService
	audio           audioToolkit
	uploader        audioUploader
	bucket          string
	fallbackSeconds float64
}

func NewSynthesizer(tts TTSService, audio audioToolkit, uploader audioUploader, bucket string, fallbackSeconds float64) *Synthesizer {
	if fallbackSeconds <= 0 {
		fallbackSeconds = 3.0
	}
	return &Synthesizer{
		tts:             tts,
		audio:           audio,
		uploader:        uploader,
		bucket:          bucket,
		fallbackSeconds: fallbackSeconds,
	}
}

// SynthesizeSegment produces the narration audio for one segment. If the
// speech service rejects the request for a rate/abuse reason, a silent track
// of the configured fallback duration is substituted — narration is
// cosmetic-critical but not render-blocking. Any other failure is fatal.
func (s *Synthesizer) SynthesizeSegment(ctx context.Context, jobID uuid.UUID, index int, text string) (*models.AudioRef, error) {
	suffix := uuid.New().String()[:8]
	audioPath := s.audio.CreateTempFile(fmt.Sprintf("narration_%s_%d_%s.mp3", jobID, index, suffix))
	defer s.audio.Cleanup(audioPath)

	duration := s.fallbackSeconds
	measured := false

	err := s.tts.Synthesize(ctx, text, audioPath)
	switch {
	case err == nil:
		duration, err = s.audio.ProbeDuration(ctx, audioPath)
		if err != nil {
			return nil, fmt.Errorf("failed to measure narration duration: %w", err)
		}
		measured = true
	case errors.Is(err, ErrSpeechRejected):
		log.Printf("[Narration] Segment %d: speech service throttled, substituting %.1fs of silence: %v", index, s.fallbackSeconds, err)
		if err := s.audio.GenerateSilence(ctx, audioPath, s.fallbackSeconds); err != nil {
			return nil, fmt.Errorf("failed to generate silent fallback: %w", err)
		}
	default:
		return nil, fmt.Errorf("segment %d synthesis failed: %w", index, err)
	}

	key := path.Join("jobs", jobID.String(), fmt.Sprintf("narration_%d.mp3", index))
	if err := s.uploader.UploadFile(ctx, s.bucket, key, audioPath, "audio/mpeg"); err != nil {
		return nil, fmt.Errorf("failed to upload narration: %w", err)
	}

	ref := &models.AudioRef{
		URL:             s.uploader.GetPublicURL(s.bucket, key),
		DurationSeconds: duration,
	}

	if measured {
		log.Printf("[Narration] Segment %d synthesized (%.2fs measured)", index, duration)
	}
	return ref, nil
}

// SynthesizeBatch synthesizes all segments concurrently. Results come back
// indexed by input position regardless of completion order. Segments with
// empty text get a nil AudioRef — the timeline falls back to the planned
// duration for those.
func (s *Synthesizer) SynthesizeBatch(ctx context.Context, jobID uuid.UUID, texts []string) ([]*models.AudioRef, error) {
	refs := make([]*models.AudioRef, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	for i, text := range texts {
		if text == "" {
			continue
		}
		i, text := i, text
		g.Go(func() error {
			ref, err := s.SynthesizeSegment(gctx, jobID, i, text)
			if err != nil {
				return err
			}
			refs[i] = ref
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return refs, nil
}
