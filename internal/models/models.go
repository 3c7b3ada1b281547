package models

import "time"

// JobStatus is the lifecycle state of a video job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
	StatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether a job in this status has finished its current
// generation attempt. A completed job may still be regenerated, which restarts
// the lifecycle from processing.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving from one status to another is allowed.
// Regeneration re-enters processing from any terminal state.
func CanTransition(from, to JobStatus) bool {
	switch {
	case from == StatusPending:
		return to == StatusProcessing
	case from == StatusProcessing:
		return to.Terminal()
	case from.Terminal():
		return to == StatusProcessing
	default:
		return false
	}
}

// VideoJob is one property-video generation request and its evolving state.
type VideoJob struct {
	ID int64 `json:"id"`

	// Property details. Address is the legacy single-line form kept for
	// records created before the structured fields existed.
	Address       string `json:"address"`
	StreetAddress string `json:"streetAddress,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	ZipCode       string `json:"zipCode,omitempty"`
	Price         string `json:"price"`
	Description   string `json:"description,omitempty"`

	// Contact details shown on the closing slide.
	ContactName  string `json:"contactName"`
	ContactPhone string `json:"contactPhone,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`

	// Generation parameters.
	MusicTrack     string `json:"musicTrack"`
	SlideDuration  int    `json:"slideDuration"` // seconds per slide, >= 1
	TransitionType string `json:"transitionType"`
	ShowPrice      bool   `json:"showPrice"`
	VoiceID        string `json:"voiceId"`

	// Outputs. Nil until the corresponding stage succeeds; a later successful
	// regeneration overwrites them.
	Status        JobStatus `json:"status"`
	VideoURL      *string   `json:"videoUrl"`
	NarrationURL  *string   `json:"narrationUrl"`
	AIDescription *string   `json:"aiDescription"`

	CreatedAt time.Time `json:"createdAt"`
}

// PhotoRecord is one uploaded property photo belonging to a VideoJob.
type PhotoRecord struct {
	ID           int64  `json:"id"`
	VideoID      int64  `json:"videoId"`
	OriginalName string `json:"originalName"`
	StoredName   string `json:"storedName"`
	DisplayOrder int    `json:"order"`
	IsCover      bool   `json:"isCover"`
}

// VideoJobUpdate carries partial updates for a VideoJob. Nil fields are left
// untouched. Output and status fields are deliberately absent; they move only
// through the dedicated store operations.
type VideoJobUpdate struct {
	Address        *string `json:"address,omitempty"`
	StreetAddress  *string `json:"streetAddress,omitempty"`
	City           *string `json:"city,omitempty"`
	State          *string `json:"state,omitempty"`
	ZipCode        *string `json:"zipCode,omitempty"`
	Price          *string `json:"price,omitempty"`
	Description    *string `json:"description,omitempty"`
	ContactName    *string `json:"contactName,omitempty"`
	ContactPhone   *string `json:"contactPhone,omitempty"`
	ContactEmail   *string `json:"contactEmail,omitempty"`
	MusicTrack     *string `json:"musicTrack,omitempty"`
	SlideDuration  *int    `json:"slideDuration,omitempty"`
	TransitionType *string `json:"transitionType,omitempty"`
	ShowPrice      *bool   `json:"showPrice,omitempty"`
	VoiceID        *string `json:"voiceId,omitempty"`
}

// Apply merges the non-nil fields of the update into the job.
func (u VideoJobUpdate) Apply(job *VideoJob) {
	if u.Address != nil {
		job.Address = *u.Address
	}
	if u.StreetAddress != nil {
		job.StreetAddress = *u.StreetAddress
	}
	if u.City != nil {
		job.City = *u.City
	}
	if u.State != nil {
		job.State = *u.State
	}
	if u.ZipCode != nil {
		job.ZipCode = *u.ZipCode
	}
	if u.Price != nil {
		job.Price = *u.Price
	}
	if u.Description != nil {
		job.Description = *u.Description
	}
	if u.ContactName != nil {
		job.ContactName = *u.ContactName
	}
	if u.ContactPhone != nil {
		job.ContactPhone = *u.ContactPhone
	}
	if u.ContactEmail != nil {
		job.ContactEmail = *u.ContactEmail
	}
	if u.MusicTrack != nil {
		job.MusicTrack = *u.MusicTrack
	}
	if u.SlideDuration != nil {
		job.SlideDuration = *u.SlideDuration
	}
	if u.TransitionType != nil {
		job.TransitionType = *u.TransitionType
	}
	if u.ShowPrice != nil {
		job.ShowPrice = *u.ShowPrice
	}
	if u.VoiceID != nil {
		job.VoiceID = *u.VoiceID
	}
}

// CreateVideoJobRequest is the POST /api/videos payload.
type CreateVideoJobRequest struct {
	Address        string `json:"address"`
	StreetAddress  string `json:"streetAddress"`
	City           string `json:"city"`
	State          string `json:"state"`
	ZipCode        string `json:"zipCode"`
	Price          string `json:"price"`
	Description    string `json:"description"`
	ContactName    string `json:"contactName"`
	ContactPhone   string `json:"contactPhone"`
	ContactEmail   string `json:"contactEmail"`
	MusicTrack     string `json:"musicTrack"`
	SlideDuration  int    `json:"slideDuration"`
	TransitionType string `json:"transitionType"`
	ShowPrice      *bool  `json:"showPrice"`
	VoiceID        string `json:"voiceId"`
}

// JobStatusResponse is the polling surface for GET /api/videos/{id}/status.
// Clients poll until Status leaves processing.
type JobStatusResponse struct {
	ID       int64     `json:"id"`
	Status   JobStatus `json:"status"`
	VideoURL *string   `json:"videoUrl"`
	Error    string    `json:"error,omitempty"`
}
