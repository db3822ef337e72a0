package responses

import (
	"time"

	"github.com/xiaot623/formdesk/internal/domain"
)

// TimeLayout is the display layout of session timestamps.
const TimeLayout = "Jan 2, 2006 3:04 pm"

// StatusLabel returns the display label of a session status.
func StatusLabel(status domain.SessionStatus) string {
	switch status {
	case domain.SessionStatusCompleted:
		return "Completed"
	case domain.SessionStatusInProgress:
		return "In Progress"
	}
	return string(status)
}

// FormatTime formats a timestamp for the table; nil or zero is blank.
func FormatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

// Row is one formatted line of the response table.
type Row struct {
	UUID          string `json:"uuid"`
	Status        string `json:"status"`
	StartedAt     string `json:"started_at"`
	CompletedAt   string `json:"completed_at"`
	WebhookStatus int    `json:"webhook_status"`
}

// TableRows formats the sessions of the current page.
func (e *Explorer) TableRows() []Row {
	rows := make([]Row, 0, len(e.rows))
	for _, s := range e.rows {
		created := s.CreatedAt
		rows = append(rows, Row{
			UUID:          s.UUID,
			Status:        StatusLabel(s.Status),
			StartedAt:     FormatTime(&created),
			CompletedAt:   FormatTime(s.CompletedAt),
			WebhookStatus: s.WebhookData.StatusCode,
		})
	}
	return rows
}
