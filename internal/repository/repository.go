package repository

import (
	"context"

	"github.com/hwade/propreel/internal/models"
)

// Store is the persistence collaborator for video jobs and photos. Record ids
// are owned by the store's own sequences; callers never invent them.
//
// Implementations: Postgres (internal/db), Redis (internal/redisstore), and
// the in-memory store below.
type Store interface {
	// CreateVideoJob assigns an id and creation time, sets the status to
	// pending, and persists the job.
	CreateVideoJob(ctx context.Context, job *models.VideoJob) error
	GetVideoJob(ctx context.Context, id int64) (*models.VideoJob, error)

	// UpdateVideoJob merges the non-nil fields of upd and returns the
	// updated record.
	UpdateVideoJob(ctx context.Context, id int64, upd models.VideoJobUpdate) (*models.VideoJob, error)

	// UpdateVideoJobStatus atomically replaces the job's status. The status
	// field is the single source of truth read by pollers.
	UpdateVideoJobStatus(ctx context.Context, id int64, status models.JobStatus) error

	// UpdateVideoJobNarration records the generated description and the
	// narration audio URL.
	UpdateVideoJobNarration(ctx context.Context, id int64, description, narrationURL string) error

	// UpdateVideoJobURL records the rendered video URL and forces the status
	// to completed.
	UpdateVideoJobURL(ctx context.Context, id int64, videoURL string) error

	// CreatePhoto assigns an id and persists the photo record.
	CreatePhoto(ctx context.Context, photo *models.PhotoRecord) error
	GetPhoto(ctx context.Context, id int64) (*models.PhotoRecord, error)

	// ListPhotosByVideo returns the job's photos in ascending display order.
	// Order values may have gaps after deletions.
	ListPhotosByVideo(ctx context.Context, videoID int64) ([]models.PhotoRecord, error)

	UpdatePhotoOrder(ctx context.Context, id int64, order int) (*models.PhotoRecord, error)

	// UpdatePhotoCover sets the cover flag. Setting a new cover clears the
	// flag on every other photo of the same job.
	UpdatePhotoCover(ctx context.Context, id int64, isCover bool) (*models.PhotoRecord, error)

	DeletePhoto(ctx context.Context, id int64) error
}
