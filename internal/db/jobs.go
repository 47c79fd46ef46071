package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/adreel/adreel/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateJob(ctx context.Context, job *models.RenderJob) error {
	sourceClips, err := json.Marshal(job.SourceClips)
	if err != nil {
		return fmt.Errorf("failed to marshal source clips: %w", err)
	}

	var storyboard []byte
	if job.Storyboard != nil {
		storyboard, err = json.Marshal(job.Storyboard)
		if err != nil {
			return fmt.Errorf("failed to marshal storyboard: %w", err)
		}
	}

	query := `
		INSERT INTO render_jobs (
			id, business_name, category, font, theme, logo_url,
			source_clips, storyboard, status, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		job.ID, job.BusinessName, job.Category, job.Font, job.Theme, job.LogoURL,
		sourceClips, nullableJSON(storyboard), job.Status, job.Version,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*models.RenderJob, error) {
	query := `
		SELECT
			id, business_name, category, font, theme, logo_url,
			source_clips, clip_refs, storyboard, timeline,
			status, version, output_key, previous_output_key,
			error_message, created_at, updated_at
		FROM render_jobs
		WHERE id = $1
	`

	job, err := scanJob(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("render job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get render job: %w", err)
	}

	return job, nil
}

// ListJobs returns jobs ordered by creation date (newest first), with an
// optional status filter and limit/offset pagination.
func (db *DB) ListJobs(ctx context.Context, status string, limit, offset int) ([]models.RenderJob, error) {
	baseSelect := `
		SELECT
			id, business_name, category, font, theme, logo_url,
			source_clips, clip_refs, storyboard, timeline,
			status, version, output_key, previous_output_key,
			error_message, created_at, updated_at
		FROM render_jobs
	`

	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		query := baseSelect + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list render jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.RenderJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan render job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	return jobs, rows.Err()
}

func (db *DB) CountJobs(ctx context.Context, status string) (int, error) {
	var (
		count int
		err   error
	)
	if status != "" {
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM render_jobs WHERE status = $1`, status).Scan(&count)
	} else {
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM render_jobs`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count render jobs: %w", err)
	}
	return count, nil
}

func (db *DB) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	_, err := db.ExecContext(ctx,
		`UPDATE render_jobs SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

// UpdateJobError marks the job failed and records the user-facing message.
func (db *DB) UpdateJobError(ctx context.Context, id uuid.UUID, message string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE render_jobs SET status = $2, error_message = $3, updated_at = NOW() WHERE id = $1`,
		id, models.JobStatusFailed, message,
	)
	if err != nil {
		return fmt.Errorf("failed to record job error: %w", err)
	}
	return nil
}

func (db *DB) SetJobClipRefs(ctx context.Context, id uuid.UUID, refs []models.ClipReference) error {
	data, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("failed to marshal clip refs: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE render_jobs SET clip_refs = $2, updated_at = NOW() WHERE id = $1`,
		id, data,
	)
	if err != nil {
		return fmt.Errorf("failed to set clip refs: %w", err)
	}
	return nil
}

func (db *DB) SetJobStoryboard(ctx context.Context, id uuid.UUID, sb *models.Storyboard) error {
	data, err := json.Marshal(sb)
	if err != nil {
		return fmt.Errorf("failed to marshal storyboard: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE render_jobs SET storyboard = $2, updated_at = NOW() WHERE id = $1`,
		id, data,
	)
	if err != nil {
		return fmt.Errorf("failed to set storyboard: %w", err)
	}
	return nil
}

func (db *DB) SetJobTimeline(ctx context.Context, id uuid.UUID, tl *models.Timeline) error {
	data, err := json.Marshal(tl)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE render_jobs SET timeline = $2, updated_at = NOW() WHERE id = $1`,
		id, data,
	)
	if err != nil {
		return fmt.Errorf("failed to set timeline: %w", err)
	}
	return nil
}

// SetJobOutput records the live artifact key for the current version.
func (db *DB) SetJobOutput(ctx context.Context, id uuid.UUID, outputKey string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE render_jobs SET output_key = $2, updated_at = NOW() WHERE id = $1`,
		id, outputKey,
	)
	if err != nil {
		return fmt.Errorf("failed to set job output: %w", err)
	}
	return nil
}

// ClearPreviousOutput drops the superseded-artifact marker once the old
// object has been deleted from storage.
func (db *DB) ClearPreviousOutput(ctx context.Context, id uuid.UUID) error {
	_, err := db.ExecContext(ctx,
		`UPDATE render_jobs SET previous_output_key = NULL, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to clear previous output: %w", err)
	}
	return nil
}

// PrepareRerender starts a new render version of a finished job: the current
// artifact (if any) becomes the previous one, the version is bumped, and the
// job re-enters the pipeline at queued.
func (db *DB) PrepareRerender(ctx context.Context, id uuid.UUID) (*models.RenderJob, error) {
	query := `
		UPDATE render_jobs
		SET previous_output_key = COALESCE(output_key, previous_output_key),
		    output_key = NULL,
		    timeline = NULL,
		    error_message = NULL,
		    version = version + 1,
		    status = $2,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
		RETURNING id
	`

	var returned uuid.UUID
	err := db.QueryRowContext(ctx, query, id,
		models.JobStatusQueued, models.JobStatusCompleted, models.JobStatusFailed,
	).Scan(&returned)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job is not in a re-renderable state")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to prepare re-render: %w", err)
	}

	return db.GetJob(ctx, id)
}

// ---------------------------------------------------------------------------
// scanning helpers
// ---------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.RenderJob, error) {
	var (
		job         models.RenderJob
		sourceClips []byte
		clipRefs    []byte
		storyboard  []byte
		timeline    []byte
	)

	err := row.Scan(
		&job.ID, &job.BusinessName, &job.Category, &job.Font, &job.Theme, &job.LogoURL,
		&sourceClips, &clipRefs, &storyboard, &timeline,
		&job.Status, &job.Version, &job.OutputKey, &job.PreviousOutputKey,
		&job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(sourceClips) > 0 {
		if err := json.Unmarshal(sourceClips, &job.SourceClips); err != nil {
			return nil, fmt.Errorf("failed to unmarshal source clips: %w", err)
		}
	}
	if len(clipRefs) > 0 {
		if err := json.Unmarshal(clipRefs, &job.ClipRefs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal clip refs: %w", err)
		}
	}
	if len(storyboard) > 0 {
		job.Storyboard = &models.Storyboard{}
		if err := json.Unmarshal(storyboard, job.Storyboard); err != nil {
			return nil, fmt.Errorf("failed to unmarshal storyboard: %w", err)
		}
	}
	if len(timeline) > 0 {
		job.Timeline = &models.Timeline{}
		if err := json.Unmarshal(timeline, job.Timeline); err != nil {
			return nil, fmt.Errorf("failed to unmarshal timeline: %w", err)
		}
	}

	return &job, nil
}

// nullableJSON maps empty payloads to NULL instead of an empty byte string.
func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}
