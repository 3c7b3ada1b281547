package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hwade/propreel/internal/models"
)

// MemoryStore keeps all records in process memory. It backs tests and the
// development mode of the server when no database or Redis is configured.
type MemoryStore struct {
	mu          sync.Mutex
	videos      map[int64]models.VideoJob
	photos      map[int64]models.PhotoRecord
	nextVideoID int64
	nextPhotoID int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos:      make(map[int64]models.VideoJob),
		photos:      make(map[int64]models.PhotoRecord),
		nextVideoID: 1,
		nextPhotoID: 1,
	}
}

func (s *MemoryStore) CreateVideoJob(ctx context.Context, job *models.VideoJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.ID = s.nextVideoID
	s.nextVideoID++
	job.Status = models.StatusPending
	job.VideoURL = nil
	job.NarrationURL = nil
	job.AIDescription = nil
	job.CreatedAt = time.Now()

	s.videos[job.ID] = *job
	return nil
}

func (s *MemoryStore) GetVideoJob(ctx context.Context, id int64) (*models.VideoJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.videos[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &job, nil
}

func (s *MemoryStore) UpdateVideoJob(ctx context.Context, id int64, upd models.VideoJobUpdate) (*models.VideoJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.videos[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	upd.Apply(&job)
	s.videos[id] = job
	return &job, nil
}

func (s *MemoryStore) UpdateVideoJobStatus(ctx context.Context, id int64, status models.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.videos[id]
	if !ok {
		return models.ErrNotFound
	}
	job.Status = status
	s.videos[id] = job
	return nil
}

func (s *MemoryStore) UpdateVideoJobNarration(ctx context.Context, id int64, description, narrationURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.videos[id]
	if !ok {
		return models.ErrNotFound
	}
	job.AIDescription = &description
	job.NarrationURL = &narrationURL
	s.videos[id] = job
	return nil
}

func (s *MemoryStore) UpdateVideoJobURL(ctx context.Context, id int64, videoURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.videos[id]
	if !ok {
		return models.ErrNotFound
	}
	job.VideoURL = &videoURL
	job.Status = models.StatusCompleted
	s.videos[id] = job
	return nil
}

func (s *MemoryStore) CreatePhoto(ctx context.Context, photo *models.PhotoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	photo.ID = s.nextPhotoID
	s.nextPhotoID++

	if photo.IsCover {
		s.clearCoverLocked(photo.VideoID)
	}
	s.photos[photo.ID] = *photo
	return nil
}

func (s *MemoryStore) GetPhoto(ctx context.Context, id int64) (*models.PhotoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	photo, ok := s.photos[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &photo, nil
}

func (s *MemoryStore) ListPhotosByVideo(ctx context.Context, videoID int64) ([]models.PhotoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var photos []models.PhotoRecord
	for _, p := range s.photos {
		if p.VideoID == videoID {
			photos = append(photos, p)
		}
	}
	sort.Slice(photos, func(i, j int) bool {
		if photos[i].DisplayOrder != photos[j].DisplayOrder {
			return photos[i].DisplayOrder < photos[j].DisplayOrder
		}
		return photos[i].ID < photos[j].ID
	})
	return photos, nil
}

func (s *MemoryStore) UpdatePhotoOrder(ctx context.Context, id int64, order int) (*models.PhotoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	photo, ok := s.photos[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	photo.DisplayOrder = order
	s.photos[id] = photo
	return &photo, nil
}

func (s *MemoryStore) UpdatePhotoCover(ctx context.Context, id int64, isCover bool) (*models.PhotoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	photo, ok := s.photos[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if isCover {
		s.clearCoverLocked(photo.VideoID)
	}
	photo.IsCover = isCover
	s.photos[id] = photo
	return &photo, nil
}

func (s *MemoryStore) DeletePhoto(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.photos[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.photos, id)
	return nil
}

// clearCoverLocked unsets the cover flag for every photo of the job. Callers
// hold s.mu.
func (s *MemoryStore) clearCoverLocked(videoID int64) {
	for pid, p := range s.photos {
		if p.VideoID == videoID && p.IsCover {
			p.IsCover = false
			s.photos[pid] = p
		}
	}
}
