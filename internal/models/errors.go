package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a job or photo id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoPhotos is returned when generation is requested for a job with no
	// uploaded photos. The job's status is left unchanged.
	ErrNoPhotos = errors.New("no photos available for video creation")

	// ErrGenerationInProgress is returned when generation is requested for a
	// job that is already processing. The running task keeps its claim.
	ErrGenerationInProgress = errors.New("video generation already in progress")

	// ErrNarrationUnavailable indicates no narration provider credentials are
	// configured. The orchestrator downgrades this to a render without
	// narration; it is never fatal to the job.
	ErrNarrationUnavailable = errors.New("narration provider not configured")
)

// RenderError identifies which rendering stage failed. Any stage failure
// aborts the whole render and moves the job to the error status.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed at %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
