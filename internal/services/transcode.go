package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"

	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ---------------------------------------------------------------------------
// Transcoder — normalizes arbitrary source clips into the canonical vertical
// format: download → ffmpeg scale/pad/trim → upload → stable reference.
// ---------------------------------------------------------------------------

type Transcoder struct {
	ffmpeg  *FFmpegService
	storage *storage.Storage
	bucket  string
}

func NewTranscoder(ffmpegSvc *FFmpegService, stor *storage.Storage, bucket string) *Transcoder {
	return &Transcoder{
		ffmpeg:  ffmpegSvc,
		storage: stor,
		bucket:  bucket,
	}
}

// Normalize downloads one source clip, transcodes it to the canonical
// vertical geometry and uploads the result. Scratch files are removed on
// every exit path. keepAudio is false for catalog clips so narration and
// music stay the only audio tracks.
func (t *Transcoder) Normalize(ctx context.Context, jobID uuid.UUID, index int, sourceURL string, keepAudio bool) (models.ClipReference, error) {
	suffix := uuid.New().String()[:8]
	inPath := t.ffmpeg.CreateTempFile(fmt.Sprintf("src_%s_%d_%s.mp4", jobID, index, suffix))
	outPath := t.ffmpeg.CreateTempFile(fmt.Sprintf("norm_%s_%d_%s.mp4", jobID, index, suffix))
	defer t.ffmpeg.Cleanup(inPath, outPath)

	data, err := t.storage.DownloadURL(ctx, sourceURL)
	if err != nil {
		return "", &FetchError{URL: sourceURL, Err: err}
	}

	if err := os.WriteFile(inPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write source clip: %w", err)
	}

	if err := t.ffmpeg.TranscodeVertical(ctx, inPath, outPath, keepAudio); err != nil {
		return "", &TranscodeError{Source: sourceURL, Err: err}
	}

	key := path.Join("jobs", jobID.String(), fmt.Sprintf("clip_%d.mp4", index))
	if err := t.storage.UploadFile(ctx, t.bucket, key, outPath, "video/mp4"); err != nil {
		return "", fmt.Errorf("failed to upload normalized clip: %w", err)
	}

	ref := models.ClipReference(t.storage.GetPublicURL(t.bucket, key))
	log.Printf("[Transcoder] Normalized clip %d for job %s -> %s", index, jobID, ref)
	return ref, nil
}

// NormalizeBatch normalizes all source clips concurrently. Results come back
// in input order regardless of completion order. The batch is fail-fast: any
// clip failure fails the whole batch, since a storyboard referencing a
// missing clip cannot be scheduled. In-flight siblings still run to
// completion so their scratch files are cleaned up; their results are
// simply discarded with the error.
func (t *Transcoder) NormalizeBatch(ctx context.Context, jobID uuid.UUID, sourceURLs []string, keepAudio bool) ([]models.ClipReference, error) {
	refs := make([]models.ClipReference, len(sourceURLs))

	var g errgroup.Group
	for i, src := range sourceURLs {
		i, src := i, src
		g.Go(func() error {
			ref, err := t.Normalize(ctx, jobID, i, src, keepAudio)
			if err != nil {
				return fmt.Errorf("clip %d: %w", i, err)
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
