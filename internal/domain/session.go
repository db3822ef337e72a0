package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// SessionsPageSize is the number of sessions shown per response page.
const SessionsPageSize = 50

// Session is one respondent's run through a survey.
type Session struct {
	UUID            string           `json:"uuid"`
	Status          SessionStatus    `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	CompletedAt     *time.Time       `json:"completed_at"`
	SurveyUUID      string           `json:"survey_uuid,omitempty"`
	QuestionAnswers []QuestionAnswer `json:"question_answers"`
	WebhookData     WebhookData      `json:"webhookData"`
}

// QuestionAnswer is a session's recorded value for one question.
type QuestionAnswer struct {
	QuestionID   string `json:"question_id"`
	QuestionUUID string `json:"question_uuid"`
	Answer       Answer `json:"answer"`
}

// WebhookData is the outcome of the completion webhook of a session.
type WebhookData struct {
	StatusCode int    `json:"statusCode"`
	Response   string `json:"response"`
}

// AnswerFor returns the recorded answer for a question uuid.
func (s *Session) AnswerFor(questionUUID string) (AnswerValue, bool) {
	if s == nil {
		return AnswerValue{}, false
	}
	for _, a := range s.QuestionAnswers {
		if a.QuestionUUID == questionUUID {
			return a.Answer.Value, true
		}
	}
	return AnswerValue{}, false
}

// IsCompleted reports whether the API marked the session completed.
func (s *Session) IsCompleted() bool {
	return s != nil && s.Status == SessionStatusCompleted
}

var supportedSortBy = map[string]bool{
	"uuid":         true,
	"created_at":   true,
	"completed_at": true,
	"status":       true,
}

// SessionsFilter selects one page of a survey's sessions.
type SessionsFilter struct {
	Limit  int
	Offset int
	SortBy string
	Order  SortOrder
}

// PageFilter returns the filter of a 1-based page of SessionsPageSize rows.
func PageFilter(page int, sortBy string, order SortOrder) SessionsFilter {
	if page < 1 {
		page = 1
	}
	return SessionsFilter{
		Limit:  SessionsPageSize,
		Offset: (page - 1) * SessionsPageSize,
		SortBy: sortBy,
		Order:  order,
	}
}

// Validate fills defaults and rejects unknown sort keys and orders.
func (f *SessionsFilter) Validate() error {
	if f.Limit <= 0 {
		f.Limit = SessionsPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.SortBy == "" {
		f.SortBy = "created_at"
	}
	if !supportedSortBy[f.SortBy] {
		return fmt.Errorf("sort_by is invalid: %s", f.SortBy)
	}
	if f.Order == "" {
		f.Order = OrderDesc
	}
	if f.Order != OrderAsc && f.Order != OrderDesc {
		return fmt.Errorf("order is invalid: %s", f.Order)
	}
	return nil
}

// Query encodes the filter as the API query string, keeping the
// limit, offset, sort_by, order ordering the API logs.
func (f SessionsFilter) Query() string {
	return "limit=" + strconv.Itoa(f.Limit) +
		"&offset=" + strconv.Itoa(f.Offset) +
		"&sort_by=" + url.QueryEscape(f.SortBy) +
		"&order=" + url.QueryEscape(string(f.Order))
}

// SessionsPage is one page of sessions as returned by the API.
type SessionsPage struct {
	Survey     Survey    `json:"survey"`
	Sessions   []Session `json:"sessions"`
	PagesCount int       `json:"pages_count"`
}
