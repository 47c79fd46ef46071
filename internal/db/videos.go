package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adreel/adreel/internal/models"
	"github.com/google/uuid"
)

// UpsertVideo records the finished video for a job. Re-renders of the same
// job replace the row so the metadata always points at the live artifact.
func (db *DB) UpsertVideo(ctx context.Context, v *models.VideoRecord) error {
	query := `
		INSERT INTO videos (job_id, business_name, category, font, logo_url, video_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			category = EXCLUDED.category,
			font = EXCLUDED.font,
			logo_url = EXCLUDED.logo_url,
			video_url = EXCLUDED.video_url
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		v.JobID, v.BusinessName, v.Category, v.Font, v.LogoURL, v.VideoURL,
	).Scan(&v.CreatedAt)
}

func (db *DB) GetVideo(ctx context.Context, jobID uuid.UUID) (*models.VideoRecord, error) {
	query := `
		SELECT job_id, business_name, category, font, logo_url, video_url, created_at
		FROM videos
		WHERE job_id = $1
	`

	var v models.VideoRecord
	err := db.QueryRowContext(ctx, query, jobID).Scan(
		&v.JobID, &v.BusinessName, &v.Category, &v.Font, &v.LogoURL, &v.VideoURL, &v.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return &v, nil
}
