package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/adreel/adreel/internal/config"
	"github.com/adreel/adreel/internal/db"
	"github.com/adreel/adreel/internal/models"
	"github.com/adreel/adreel/internal/queue"
	"github.com/adreel/adreel/internal/services"
	"github.com/adreel/adreel/internal/storage"
	"github.com/adreel/adreel/internal/timeline"
	"github.com/google/uuid"
)

// Worker drives render jobs through the pipeline: normalize assets, generate
// the storyboard, synthesize narration, freeze the timeline, render, upload.
// Every stage moves the job exactly one state forward; any failure parks the
// job in failed with a message.
type Worker struct {
	db         *db.DB
	queue      *queue.Queue
	storage    *storage.Storage
	transcoder *services.Transcoder
	storyboard *services.StoryboardGenerator
	narration  *services.Synthesizer
	remotion   *services.RemotionService
	ffmpeg     *services.FFmpegService
	cfg        *config.Config
	uploadSem  chan struct{} // Limits concurrent Supabase uploads to prevent congestion
}

func New(
	database *db.DB,
	q *queue.Queue,
	stor *storage.Storage,
	transcoderSvc *services.Transcoder,
	storyboardSvc *services.StoryboardGenerator,
	narrationSvc *services.Synthesizer,
	remotionSvc *services.RemotionService,
	ffmpegSvc *services.FFmpegService,
	cfg *config.Config,
) *Worker {
	return &Worker{
		db:         database,
		queue:      q,
		storage:    stor,
		transcoder: transcoderSvc,
		storyboard: storyboardSvc,
		narration:  narrationSvc,
		remotion:   remotionSvc,
		ffmpeg:     ffmpegSvc,
		cfg:        cfg,
		uploadSem:  make(chan struct{}, 2),
	}
}

// uploadWithLimit wraps an upload call with a semaphore to prevent Supabase congestion.
func (w *Worker) uploadWithLimit(ctx context.Context, label string, fn func() error) error {
	select {
	case w.uploadSem <- struct{}{}:
		// Acquired slot
	case <-ctx.Done():
		return fmt.Errorf("upload cancelled while waiting for slot: %w", ctx.Err())
	}
	defer func() { <-w.uploadSem }()

	log.Printf("[Upload] %s uploading...", label)
	return fn()
}

// Start begins processing render jobs from the queue
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx, queue.QueueRenderVideo, w.handleRenderVideo)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context, queueName string, handler func(context.Context, *queue.Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queueName, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Error dequeuing from %s: %v", queueName, err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing job %s (type: %s, render job: %s)", job.ID, job.Type, job.JobID)

			if err := handler(ctx, job); err != nil {
				log.Printf("Job %s failed: %v", job.JobID, err)
				if dbErr := w.db.UpdateJobError(ctx, job.JobID, err.Error()); dbErr != nil {
					log.Printf("Failed to record job error for %s: %v", job.JobID, dbErr)
				}
			} else {
				log.Printf("Job %s completed successfully", job.JobID)
			}
		}
	}
}

// advance moves the job one state forward, enforcing the pipeline ordering.
// An illegal transition here is a programming error, not an external failure.
func (w *Worker) advance(ctx context.Context, job *models.RenderJob, next models.JobStatus) error {
	if !job.Status.CanTransition(next) {
		return fmt.Errorf("illegal status transition %s -> %s for job %s", job.Status, next, job.ID)
	}
	if err := w.db.UpdateJobStatus(ctx, job.ID, next); err != nil {
		return fmt.Errorf("failed to advance job to %s: %w", next, err)
	}
	job.Status = next
	return nil
}

// handleRenderVideo runs the full pipeline for one render job.
func (w *Worker) handleRenderVideo(ctx context.Context, qjob *queue.Job) error {
	job, err := w.db.GetJob(ctx, qjob.JobID)
	if err != nil {
		return fmt.Errorf("failed to load render job: %w", err)
	}

	if job.Status != models.JobStatusQueued {
		// Stale queue entry (job already advanced or finished elsewhere).
		log.Printf("[Pipeline] Job %s is %s, not queued; skipping", job.ID, job.Status)
		return nil
	}

	log.Printf("[Pipeline] Starting render v%d for %q (%s)", job.Version, job.BusinessName, job.ID)

	// Stage 1: normalize source clips to the vertical canvas.
	clipRefs, err := w.transcoder.NormalizeBatch(ctx, job.ID, job.SourceClips, false)
	if err != nil {
		return fmt.Errorf("asset normalization failed: %w", err)
	}
	if err := w.db.SetJobClipRefs(ctx, job.ID, clipRefs); err != nil {
		return err
	}
	job.ClipRefs = clipRefs
	if err := w.advance(ctx, job, models.JobStatusAssetsNormalized); err != nil {
		return err
	}

	// Stage 2: storyboard. A pre-authored storyboard submitted with the job
	// is taken as-is; otherwise one is generated from the normalized clips.
	if job.Storyboard == nil {
		sb, err := w.storyboard.Generate(ctx, job.BusinessName, job.Category, clipRefs)
		if err != nil {
			return fmt.Errorf("storyboard generation failed: %w", err)
		}
		job.Storyboard = &sb
		if err := w.db.SetJobStoryboard(ctx, job.ID, job.Storyboard); err != nil {
			return err
		}
	} else {
		log.Printf("[Pipeline] Job %s uses a pre-authored storyboard (%d segments)", job.ID, len(job.Storyboard.Sequence))
	}
	if err := w.advance(ctx, job, models.JobStatusStoryboardReady); err != nil {
		return err
	}

	// Stage 3: narration, one track per segment.
	texts := make([]string, len(job.Storyboard.Sequence))
	for i, seg := range job.Storyboard.Sequence {
		texts[i] = seg.Text
	}
	audio, err := w.narration.SynthesizeBatch(ctx, job.ID, texts)
	if err != nil {
		return fmt.Errorf("narration synthesis failed: %w", err)
	}
	if err := w.advance(ctx, job, models.JobStatusNarrationReady); err != nil {
		return err
	}

	// Stage 4: freeze the timeline and persist the props document. The props
	// upload must land before rendering starts so a crashed render can be
	// diagnosed against exactly what the engine was given.
	opts := timeline.Options{
		FPS:         w.cfg.VideoFPS,
		IntroFrames: w.cfg.IntroFrames,
		MusicURL:    w.cfg.BackgroundMusicURL,
	}
	if job.LogoURL != nil {
		opts.LogoURL = *job.LogoURL
	}
	tl := timeline.Compose(*job.Storyboard, audio, opts)
	if err := w.db.SetJobTimeline(ctx, job.ID, &tl); err != nil {
		return err
	}
	job.Timeline = &tl

	propsPath, err := w.writeProps(ctx, job, tl)
	if err != nil {
		return err
	}
	defer w.ffmpeg.Cleanup(propsPath)

	if err := w.advance(ctx, job, models.JobStatusTimelineFrozen); err != nil {
		return err
	}

	// Stage 5: render.
	if err := w.advance(ctx, job, models.JobStatusRendering); err != nil {
		return err
	}

	outputPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("render_%s_v%d.mp4", job.ID, job.Version))
	defer w.ffmpeg.Cleanup(outputPath)

	log.Printf("[Pipeline] Rendering job %s: %d frames at %d fps", job.ID, tl.TotalFrames, tl.FPS)
	if err := w.remotion.Render(ctx, propsPath, outputPath, tl.TotalFrames); err != nil {
		return renderFailure(job.ID, err)
	}

	// Stage 6: upload the finished video and point the job at it.
	outputKey := fmt.Sprintf("out-%s-v%d.mp4", job.ID, job.Version)
	err = w.uploadWithLimit(ctx, outputKey, func() error {
		return w.storage.UploadFile(ctx, w.cfg.VideosBucket, outputKey, outputPath, "video/mp4")
	})
	if err != nil {
		return fmt.Errorf("failed to upload rendered video: %w", err)
	}
	if err := w.db.SetJobOutput(ctx, job.ID, outputKey); err != nil {
		return err
	}
	if err := w.advance(ctx, job, models.JobStatusUploaded); err != nil {
		return err
	}

	// Stage 7: record metadata, retire the superseded artifact, complete.
	if err := finalizeJob(ctx, w.db, w.storage, w.cfg.VideosBucket, job, outputKey); err != nil {
		return err
	}
	return w.advance(ctx, job, models.JobStatusCompleted)
}

// renderFailure builds the job-facing error for a failed render. The engine's
// captured output is logged in full and a bounded tail of it rides along in
// the stored error message, so a failed job record carries its diagnostics.
func renderFailure(jobID uuid.UUID, err error) error {
	var renderErr *services.RenderError
	if !errors.As(err, &renderErr) {
		return fmt.Errorf("render failed: %w", err)
	}

	out := strings.TrimSpace(renderErr.Output)
	if out == "" {
		return err
	}

	log.Printf("[Pipeline] Render output for job %s: %s", jobID, out)
	return fmt.Errorf("%w: %s", err, tailOutput(out, 500))
}

// tailOutput keeps the last maxLen characters — render CLIs report the
// actual failure at the end of their output.
func tailOutput(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// writeProps marshals the rendering contract, writes it locally for the
// render CLI, and archives a copy next to the job's other artifacts.
func (w *Worker) writeProps(ctx context.Context, job *models.RenderJob, tl models.Timeline) (string, error) {
	props := models.PropsDocument{
		Storyboard:         *job.Storyboard,
		Timeline:           tl,
		ClipRefs:           job.ClipRefs,
		Font:               job.Font,
		Theme:              job.Theme,
		BackgroundMusicURL: w.cfg.BackgroundMusicURL,
		DurationInFrames:   tl.TotalFrames,
	}
	if job.LogoURL != nil {
		props.LogoURL = *job.LogoURL
	}

	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("failed to marshal props: %w", err)
	}

	propsPath := w.ffmpeg.CreateTempFile(fmt.Sprintf("props_%s_v%d.json", job.ID, job.Version))
	if err := os.WriteFile(propsPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write props file: %w", err)
	}

	propsKey := path.Join("jobs", job.ID.String(), "props.json")
	err = w.uploadWithLimit(ctx, propsKey, func() error {
		return w.storage.Upload(ctx, w.cfg.ClipsBucket, propsKey, data, "application/json")
	})
	if err != nil {
		w.ffmpeg.Cleanup(propsPath)
		return "", fmt.Errorf("failed to archive props: %w", err)
	}

	return propsPath, nil
}

// finalizeStore is the slice of the database the completion step needs.
type finalizeStore interface {
	UpsertVideo(ctx context.Context, v *models.VideoRecord) error
	ClearPreviousOutput(ctx context.Context, id uuid.UUID) error
}

// artifactStore is the slice of object storage the completion step needs.
type artifactStore interface {
	Delete(ctx context.Context, bucket, key string) error
	GetPublicURL(bucket, key string) string
}

// finalizeJob upserts the video metadata row and deletes the artifact this
// render superseded, leaving exactly one live artifact per logical job. The
// delete is idempotent and best-effort: a missing old object is fine, and a
// transient storage error never fails a finished render — the marker stays
// set so the next render version retries the cleanup.
func finalizeJob(ctx context.Context, store finalizeStore, artifacts artifactStore, bucket string, job *models.RenderJob, outputKey string) error {
	record := &models.VideoRecord{
		JobID:        job.ID,
		BusinessName: job.BusinessName,
		Category:     job.Category,
		Font:         job.Font,
		VideoURL:     artifacts.GetPublicURL(bucket, outputKey),
	}
	if job.LogoURL != nil {
		record.LogoURL = *job.LogoURL
	}
	if err := store.UpsertVideo(ctx, record); err != nil {
		return fmt.Errorf("failed to record video metadata: %w", err)
	}

	if job.PreviousOutputKey != nil && *job.PreviousOutputKey != outputKey {
		if err := artifacts.Delete(ctx, bucket, *job.PreviousOutputKey); err != nil {
			log.Printf("[Pipeline] Failed to delete superseded artifact %s: %v", *job.PreviousOutputKey, err)
		} else if err := store.ClearPreviousOutput(ctx, job.ID); err != nil {
			log.Printf("[Pipeline] Failed to clear previous output marker for %s: %v", job.ID, err)
		}
	}

	return nil
}
