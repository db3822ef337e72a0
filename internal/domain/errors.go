package domain

import "errors"

var (
	// ErrSurveyNotFound is returned when a survey is missing or has no config.
	ErrSurveyNotFound = errors.New("survey not found")
	// ErrQuestionNotFound is returned when a question uuid is not part of a survey.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrSessionNotFound is returned when a session uuid is not part of a survey.
	ErrSessionNotFound = errors.New("session not found")
)
