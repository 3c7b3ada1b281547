package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hwade/propreel/internal/models"
)

const videoJobColumns = `
	id, address, street_address, city, state, zip_code, price, description,
	contact_name, contact_phone, contact_email,
	music_track, slide_duration, transition_type, show_price, voice_id,
	status, video_url, narration_url, ai_description, created_at
`

func scanVideoJob(row interface{ Scan(...interface{}) error }) (*models.VideoJob, error) {
	job := &models.VideoJob{}
	err := row.Scan(
		&job.ID, &job.Address, &job.StreetAddress, &job.City, &job.State,
		&job.ZipCode, &job.Price, &job.Description,
		&job.ContactName, &job.ContactPhone, &job.ContactEmail,
		&job.MusicTrack, &job.SlideDuration, &job.TransitionType,
		&job.ShowPrice, &job.VoiceID,
		&job.Status, &job.VideoURL, &job.NarrationURL, &job.AIDescription,
		&job.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan video job: %w", err)
	}
	return job, nil
}

func (db *DB) CreateVideoJob(ctx context.Context, job *models.VideoJob) error {
	query := `
		INSERT INTO video_jobs (
			address, street_address, city, state, zip_code, price, description,
			contact_name, contact_phone, contact_email,
			music_track, slide_duration, transition_type, show_price, voice_id,
			status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, status, created_at
	`

	return db.QueryRowContext(
		ctx, query,
		job.Address, job.StreetAddress, job.City, job.State, job.ZipCode,
		job.Price, job.Description,
		job.ContactName, job.ContactPhone, job.ContactEmail,
		job.MusicTrack, job.SlideDuration, job.TransitionType, job.ShowPrice,
		job.VoiceID, models.StatusPending,
	).Scan(&job.ID, &job.Status, &job.CreatedAt)
}

func (db *DB) GetVideoJob(ctx context.Context, id int64) (*models.VideoJob, error) {
	query := `SELECT ` + videoJobColumns + ` FROM video_jobs WHERE id = $1`
	return scanVideoJob(db.QueryRowContext(ctx, query, id))
}

func (db *DB) UpdateVideoJob(ctx context.Context, id int64, upd models.VideoJobUpdate) (*models.VideoJob, error) {
	sets := []string{}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Address != nil {
		add("address", *upd.Address)
	}
	if upd.StreetAddress != nil {
		add("street_address", *upd.StreetAddress)
	}
	if upd.City != nil {
		add("city", *upd.City)
	}
	if upd.State != nil {
		add("state", *upd.State)
	}
	if upd.ZipCode != nil {
		add("zip_code", *upd.ZipCode)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.ContactName != nil {
		add("contact_name", *upd.ContactName)
	}
	if upd.ContactPhone != nil {
		add("contact_phone", *upd.ContactPhone)
	}
	if upd.ContactEmail != nil {
		add("contact_email", *upd.ContactEmail)
	}
	if upd.MusicTrack != nil {
		add("music_track", *upd.MusicTrack)
	}
	if upd.SlideDuration != nil {
		add("slide_duration", *upd.SlideDuration)
	}
	if upd.TransitionType != nil {
		add("transition_type", *upd.TransitionType)
	}
	if upd.ShowPrice != nil {
		add("show_price", *upd.ShowPrice)
	}
	if upd.VoiceID != nil {
		add("voice_id", *upd.VoiceID)
	}

	if len(sets) == 0 {
		return db.GetVideoJob(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE video_jobs SET %s WHERE id = $%d RETURNING `+videoJobColumns,
		strings.Join(sets, ", "), len(args),
	)

	return scanVideoJob(db.QueryRowContext(ctx, query, args...))
}

func (db *DB) UpdateVideoJobStatus(ctx context.Context, id int64, status models.JobStatus) error {
	result, err := db.ExecContext(ctx, `UPDATE video_jobs SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return requireRow(result)
}

func (db *DB) UpdateVideoJobNarration(ctx context.Context, id int64, description, narrationURL string) error {
	query := `UPDATE video_jobs SET ai_description = $1, narration_url = $2 WHERE id = $3`
	result, err := db.ExecContext(ctx, query, description, narrationURL, id)
	if err != nil {
		return fmt.Errorf("failed to update job narration: %w", err)
	}
	return requireRow(result)
}

func (db *DB) UpdateVideoJobURL(ctx context.Context, id int64, videoURL string) error {
	query := `UPDATE video_jobs SET video_url = $1, status = $2 WHERE id = $3`
	result, err := db.ExecContext(ctx, query, videoURL, models.StatusCompleted, id)
	if err != nil {
		return fmt.Errorf("failed to update job video URL: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
