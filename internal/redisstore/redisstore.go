// Package redisstore implements the repository.Store interface on Redis.
// Each record is a hash keyed by id, ids come from INCR sequences, and a
// per-job set indexes photo membership. Status changes are single HSET calls,
// so pollers always observe a whole transition.
package redisstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hwade/propreel/internal/models"
	"github.com/hwade/propreel/internal/repository"
)

const (
	videoSeqKey = "seq:video_jobs"
	photoSeqKey = "seq:property_photos"
)

type Store struct {
	client *redis.Client
}

var _ repository.Store = (*Store)(nil)

func New(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func videoKey(id int64) string       { return fmt.Sprintf("video_job:%d", id) }
func photoKey(id int64) string       { return fmt.Sprintf("property_photo:%d", id) }
func videoPhotosKey(id int64) string { return fmt.Sprintf("video_job:%d:photos", id) }

// --- video jobs ---

func videoFields(job *models.VideoJob) map[string]interface{} {
	return map[string]interface{}{
		"address":         job.Address,
		"street_address":  job.StreetAddress,
		"city":            job.City,
		"state":           job.State,
		"zip_code":        job.ZipCode,
		"price":           job.Price,
		"description":     job.Description,
		"contact_name":    job.ContactName,
		"contact_phone":   job.ContactPhone,
		"contact_email":   job.ContactEmail,
		"music_track":     job.MusicTrack,
		"slide_duration":  job.SlideDuration,
		"transition_type": job.TransitionType,
		"show_price":      strconv.FormatBool(job.ShowPrice),
		"voice_id":        job.VoiceID,
		"status":          string(job.Status),
		"created_at":      job.CreatedAt.Unix(),
	}
}

func parseVideo(id int64, fields map[string]string) *models.VideoJob {
	job := &models.VideoJob{
		ID:             id,
		Address:        fields["address"],
		StreetAddress:  fields["street_address"],
		City:           fields["city"],
		State:          fields["state"],
		ZipCode:        fields["zip_code"],
		Price:          fields["price"],
		Description:    fields["description"],
		ContactName:    fields["contact_name"],
		ContactPhone:   fields["contact_phone"],
		ContactEmail:   fields["contact_email"],
		MusicTrack:     fields["music_track"],
		TransitionType: fields["transition_type"],
		VoiceID:        fields["voice_id"],
		Status:         models.JobStatus(fields["status"]),
	}
	job.SlideDuration, _ = strconv.Atoi(fields["slide_duration"])
	job.ShowPrice, _ = strconv.ParseBool(fields["show_price"])
	if sec, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		job.CreatedAt = time.Unix(sec, 0)
	}
	// Output fields are absent until the corresponding stage succeeds.
	if v, ok := fields["video_url"]; ok && v != "" {
		job.VideoURL = &v
	}
	if v, ok := fields["narration_url"]; ok && v != "" {
		job.NarrationURL = &v
	}
	if v, ok := fields["ai_description"]; ok && v != "" {
		job.AIDescription = &v
	}
	return job
}

func (s *Store) CreateVideoJob(ctx context.Context, job *models.VideoJob) error {
	id, err := s.client.Incr(ctx, videoSeqKey).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate job id: %w", err)
	}

	job.ID = id
	job.Status = models.StatusPending
	job.VideoURL = nil
	job.NarrationURL = nil
	job.AIDescription = nil
	job.CreatedAt = time.Now()

	if err := s.client.HSet(ctx, videoKey(id), videoFields(job)).Err(); err != nil {
		return fmt.Errorf("failed to store job: %w", err)
	}
	return nil
}

func (s *Store) getVideo(ctx context.Context, id int64) (*models.VideoJob, error) {
	fields, err := s.client.HGetAll(ctx, videoKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job: %w", err)
	}
	if len(fields) == 0 {
		return nil, models.ErrNotFound
	}
	return parseVideo(id, fields), nil
}

func (s *Store) GetVideoJob(ctx context.Context, id int64) (*models.VideoJob, error) {
	return s.getVideo(ctx, id)
}

func (s *Store) UpdateVideoJob(ctx context.Context, id int64, upd models.VideoJobUpdate) (*models.VideoJob, error) {
	job, err := s.getVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	upd.Apply(job)
	if err := s.client.HSet(ctx, videoKey(id), videoFields(job)).Err(); err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	return job, nil
}

func (s *Store) UpdateVideoJobStatus(ctx context.Context, id int64, status models.JobStatus) error {
	exists, err := s.client.Exists(ctx, videoKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check job: %w", err)
	}
	if exists == 0 {
		return models.ErrNotFound
	}
	return s.client.HSet(ctx, videoKey(id), "status", string(status)).Err()
}

func (s *Store) UpdateVideoJobNarration(ctx context.Context, id int64, description, narrationURL string) error {
	exists, err := s.client.Exists(ctx, videoKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check job: %w", err)
	}
	if exists == 0 {
		return models.ErrNotFound
	}
	return s.client.HSet(ctx, videoKey(id),
		"ai_description", description,
		"narration_url", narrationURL,
	).Err()
}

func (s *Store) UpdateVideoJobURL(ctx context.Context, id int64, videoURL string) error {
	exists, err := s.client.Exists(ctx, videoKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check job: %w", err)
	}
	if exists == 0 {
		return models.ErrNotFound
	}
	return s.client.HSet(ctx, videoKey(id),
		"video_url", videoURL,
		"status", string(models.StatusCompleted),
	).Err()
}

// --- photos ---

func photoFields(photo *models.PhotoRecord) map[string]interface{} {
	return map[string]interface{}{
		"video_id":      photo.VideoID,
		"original_name": photo.OriginalName,
		"stored_name":   photo.StoredName,
		"display_order": photo.DisplayOrder,
		"is_cover":      strconv.FormatBool(photo.IsCover),
	}
}

func parsePhoto(id int64, fields map[string]string) *models.PhotoRecord {
	photo := &models.PhotoRecord{
		ID:           id,
		OriginalName: fields["original_name"],
		StoredName:   fields["stored_name"],
	}
	photo.VideoID, _ = strconv.ParseInt(fields["video_id"], 10, 64)
	photo.DisplayOrder, _ = strconv.Atoi(fields["display_order"])
	photo.IsCover, _ = strconv.ParseBool(fields["is_cover"])
	return photo
}

func (s *Store) CreatePhoto(ctx context.Context, photo *models.PhotoRecord) error {
	id, err := s.client.Incr(ctx, photoSeqKey).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate photo id: %w", err)
	}
	photo.ID = id

	if photo.IsCover {
		if err := s.clearCover(ctx, photo.VideoID); err != nil {
			return err
		}
	}

	if err := s.client.HSet(ctx, photoKey(id), photoFields(photo)).Err(); err != nil {
		return fmt.Errorf("failed to store photo: %w", err)
	}
	return s.client.SAdd(ctx, videoPhotosKey(photo.VideoID), id).Err()
}

func (s *Store) getPhoto(ctx context.Context, id int64) (*models.PhotoRecord, error) {
	fields, err := s.client.HGetAll(ctx, photoKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if len(fields) == 0 {
		return nil, models.ErrNotFound
	}
	return parsePhoto(id, fields), nil
}

func (s *Store) GetPhoto(ctx context.Context, id int64) (*models.PhotoRecord, error) {
	return s.getPhoto(ctx, id)
}

func (s *Store) ListPhotosByVideo(ctx context.Context, videoID int64) ([]models.PhotoRecord, error) {
	ids, err := s.client.SMembers(ctx, videoPhotosKey(videoID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list photo ids: %w", err)
	}

	var photos []models.PhotoRecord
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		photo, err := s.getPhoto(ctx, id)
		if err == models.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		photos = append(photos, *photo)
	}

	sort.Slice(photos, func(i, j int) bool {
		if photos[i].DisplayOrder != photos[j].DisplayOrder {
			return photos[i].DisplayOrder < photos[j].DisplayOrder
		}
		return photos[i].ID < photos[j].ID
	})
	return photos, nil
}

func (s *Store) UpdatePhotoOrder(ctx context.Context, id int64, order int) (*models.PhotoRecord, error) {
	photo, err := s.getPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.client.HSet(ctx, photoKey(id), "display_order", order).Err(); err != nil {
		return nil, fmt.Errorf("failed to update photo order: %w", err)
	}
	photo.DisplayOrder = order
	return photo, nil
}

func (s *Store) UpdatePhotoCover(ctx context.Context, id int64, isCover bool) (*models.PhotoRecord, error) {
	photo, err := s.getPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	if isCover {
		if err := s.clearCover(ctx, photo.VideoID); err != nil {
			return nil, err
		}
	}
	if err := s.client.HSet(ctx, photoKey(id), "is_cover", strconv.FormatBool(isCover)).Err(); err != nil {
		return nil, fmt.Errorf("failed to update photo cover: %w", err)
	}
	photo.IsCover = isCover
	return photo, nil
}

func (s *Store) DeletePhoto(ctx context.Context, id int64) error {
	photo, err := s.getPhoto(ctx, id)
	if err != nil {
		return err
	}
	if err := s.client.SRem(ctx, videoPhotosKey(photo.VideoID), id).Err(); err != nil {
		return fmt.Errorf("failed to unindex photo: %w", err)
	}
	return s.client.Del(ctx, photoKey(id)).Err()
}

func (s *Store) clearCover(ctx context.Context, videoID int64) error {
	photos, err := s.ListPhotosByVideo(ctx, videoID)
	if err != nil {
		return err
	}
	for _, p := range photos {
		if p.IsCover {
			if err := s.client.HSet(ctx, photoKey(p.ID), "is_cover", "false").Err(); err != nil {
				return fmt.Errorf("failed to clear previous cover: %w", err)
			}
		}
	}
	return nil
}
