// Package store remembers which survey session a respondent is working on, so
// a respondent coming back to a survey resumes it.
package store

import (
	"context"
	"time"
)

// SessionPointer links a respondent and a survey to the session in progress.
type SessionPointer struct {
	RespondentID string
	URLSlug      string
	SessionUUID  string
	UpdatedAt    time.Time
}

// Key returns the per-survey key under which a pointer is kept.
func Key(urlSlug string) string {
	return "survey_session_id:" + urlSlug
}

// Store defines the interface for session pointer persistence.
type Store interface {
	// GetPointer returns the pointer for a respondent and survey, or nil.
	GetPointer(ctx context.Context, respondentID, urlSlug string) (*SessionPointer, error)
	// PutPointer creates or replaces a pointer.
	PutPointer(ctx context.Context, p *SessionPointer) error
	// DeletePointer forgets a pointer. Deleting a missing pointer is not an error.
	DeletePointer(ctx context.Context, respondentID, urlSlug string) error

	// Lifecycle
	Close() error
}
