package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hwade/propreel/internal/models"
)

func (db *DB) CreatePhoto(ctx context.Context, photo *models.PhotoRecord) error {
	// A transaction keeps the single-cover invariant when the new photo is
	// uploaded as the cover.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if photo.IsCover {
		if _, err := tx.ExecContext(ctx,
			`UPDATE property_photos SET is_cover = FALSE WHERE video_id = $1 AND is_cover`,
			photo.VideoID,
		); err != nil {
			return fmt.Errorf("failed to clear previous cover: %w", err)
		}
	}

	query := `
		INSERT INTO property_photos (video_id, original_name, stored_name, display_order, is_cover)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if err := tx.QueryRowContext(
		ctx, query,
		photo.VideoID, photo.OriginalName, photo.StoredName, photo.DisplayOrder, photo.IsCover,
	).Scan(&photo.ID); err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}

	return tx.Commit()
}

func (db *DB) GetPhoto(ctx context.Context, id int64) (*models.PhotoRecord, error) {
	query := `
		SELECT id, video_id, original_name, stored_name, display_order, is_cover
		FROM property_photos
		WHERE id = $1
	`

	photo := &models.PhotoRecord{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&photo.ID, &photo.VideoID, &photo.OriginalName, &photo.StoredName,
		&photo.DisplayOrder, &photo.IsCover,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}

func (db *DB) ListPhotosByVideo(ctx context.Context, videoID int64) ([]models.PhotoRecord, error) {
	query := `
		SELECT id, video_id, original_name, stored_name, display_order, is_cover
		FROM property_photos
		WHERE video_id = $1
		ORDER BY display_order, id
	`

	rows, err := db.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	var photos []models.PhotoRecord
	for rows.Next() {
		var photo models.PhotoRecord
		if err := rows.Scan(
			&photo.ID, &photo.VideoID, &photo.OriginalName, &photo.StoredName,
			&photo.DisplayOrder, &photo.IsCover,
		); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}

func (db *DB) UpdatePhotoOrder(ctx context.Context, id int64, order int) (*models.PhotoRecord, error) {
	query := `
		UPDATE property_photos SET display_order = $1 WHERE id = $2
		RETURNING id, video_id, original_name, stored_name, display_order, is_cover
	`

	photo := &models.PhotoRecord{}
	err := db.QueryRowContext(ctx, query, order, id).Scan(
		&photo.ID, &photo.VideoID, &photo.OriginalName, &photo.StoredName,
		&photo.DisplayOrder, &photo.IsCover,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update photo order: %w", err)
	}
	return photo, nil
}

func (db *DB) UpdatePhotoCover(ctx context.Context, id int64, isCover bool) (*models.PhotoRecord, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if isCover {
		// Clear the current cover within the same job before setting the new
		// one, so at most one cover exists at any commit point.
		if _, err := tx.ExecContext(ctx, `
			UPDATE property_photos SET is_cover = FALSE
			WHERE is_cover AND video_id = (SELECT video_id FROM property_photos WHERE id = $1)
		`, id); err != nil {
			return nil, fmt.Errorf("failed to clear previous cover: %w", err)
		}
	}

	photo := &models.PhotoRecord{}
	err = tx.QueryRowContext(ctx, `
		UPDATE property_photos SET is_cover = $1 WHERE id = $2
		RETURNING id, video_id, original_name, stored_name, display_order, is_cover
	`, isCover, id).Scan(
		&photo.ID, &photo.VideoID, &photo.OriginalName, &photo.StoredName,
		&photo.DisplayOrder, &photo.IsCover,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update photo cover: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return photo, nil
}

func (db *DB) DeletePhoto(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM property_photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return requireRow(result)
}
