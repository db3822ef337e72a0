// Package responses implements the response explorer of the console: one
// survey's sessions, paginated and sorted by the survey API.
package responses

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xiaot623/formdesk/internal/domain"
)

// User-facing messages, one per failing action.
const (
	MsgLoadFailed   = "Unable to load survey sessions"
	MsgDeleteFailed = "Unable to delete survey session"
	MsgExportFailed = "Unable to export survey sessions"
	MsgFileFailed   = "Unable to download file"
)

// exportLimit is large enough to fetch every session of a survey at once.
const exportLimit = 1000000

// SessionsAPI is the part of the survey API the explorer needs.
type SessionsAPI interface {
	ListSessions(ctx context.Context, surveyUUID string, filter domain.SessionsFilter) (*domain.SessionsPage, error)
	DeleteSession(ctx context.Context, surveyUUID, sessionUUID string) error
	Download(ctx context.Context, surveyUUID, fileName string, w io.Writer) (int64, error)
}

// Column is a sortable column of the response table.
type Column struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

// Columns are the sortable columns, in display order.
var Columns = []Column{
	{Label: "Session ID", Key: "uuid"},
	{Label: "Status", Key: "status"},
	{Label: "Started at", Key: "created_at"},
	{Label: "Completed at", Key: "completed_at"},
}

// Explorer is the view model of a survey's response table. It is owned by a
// single caller and is not safe for concurrent use.
type Explorer struct {
	api        SessionsAPI
	logger     *zap.Logger
	surveyUUID string

	survey     *domain.Survey
	page       int
	sortBy     string
	order      domain.SortOrder
	rows       []domain.Session
	pagesCount int
	errMsg     string
}

// NewExplorer creates an explorer on page 1, newest sessions first.
func NewExplorer(api SessionsAPI, surveyUUID string, logger *zap.Logger) *Explorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Explorer{
		api:        api,
		logger:     logger.With(zap.String("survey_uuid", surveyUUID)),
		surveyUUID: surveyUUID,
		page:       1,
		sortBy:     "created_at",
		order:      domain.OrderDesc,
	}
}

// Page returns the current 1-based page.
func (e *Explorer) Page() int { return e.page }

// SortBy returns the current sort key.
func (e *Explorer) SortBy() string { return e.sortBy }

// Order returns the current sort order.
func (e *Explorer) Order() domain.SortOrder { return e.order }

// Rows returns the sessions of the current page.
func (e *Explorer) Rows() []domain.Session { return e.rows }

// PagesCount returns the number of pages reported by the API.
func (e *Explorer) PagesCount() int { return e.pagesCount }

// ShowPagination reports whether there is more than one page.
func (e *Explorer) ShowPagination() bool { return e.pagesCount > 1 }

// ErrorMessage returns the message of the last failed action, or "".
func (e *Explorer) ErrorMessage() string { return e.errMsg }

// Survey returns the survey as last reported by the API, or nil before the
// first successful fetch.
func (e *Explorer) Survey() *domain.Survey { return e.survey }

// FetchPage loads one page from the API. On success it replaces the rows, the
// page and the sort state. On failure all of them are left as they were and
// the error message is set.
func (e *Explorer) FetchPage(ctx context.Context, page int, sortBy string, order domain.SortOrder) error {
	e.errMsg = ""

	filter := domain.PageFilter(page, sortBy, order)
	if err := filter.Validate(); err != nil {
		e.errMsg = MsgLoadFailed
		return err
	}

	result, err := e.api.ListSessions(ctx, e.surveyUUID, filter)
	if err != nil {
		e.logger.Warn("failed to load survey sessions", zap.Int("page", page), zap.Error(err))
		e.errMsg = MsgLoadFailed
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	e.page = page
	if e.page < 1 {
		e.page = 1
	}
	e.sortBy = filter.SortBy
	e.order = filter.Order
	e.rows = result.Sessions
	e.pagesCount = result.PagesCount
	if result.Survey.UUID != "" {
		survey := result.Survey
		e.survey = &survey
	}
	return nil
}

// Load fetches the first page with the current sort.
func (e *Explorer) Load(ctx context.Context) error {
	return e.FetchPage(ctx, 1, e.sortBy, e.order)
}

// GoToPage fetches another page keeping the current sort.
func (e *Explorer) GoToPage(ctx context.Context, page int) error {
	return e.FetchPage(ctx, page, e.sortBy, e.order)
}

// ToggleSort sorts by the given column: a second click on the current sort
// column flips the order, any other column starts ascending. The table goes
// back to page 1.
func (e *Explorer) ToggleSort(ctx context.Context, column string) error {
	order := domain.OrderAsc
	if column == e.sortBy {
		order = e.order.Flip()
	}
	return e.FetchPage(ctx, 1, column, order)
}

// Delete removes a session and reloads page 1.
func (e *Explorer) Delete(ctx context.Context, sessionUUID string) error {
	e.errMsg = ""

	if err := e.api.DeleteSession(ctx, e.surveyUUID, sessionUUID); err != nil {
		e.logger.Warn("failed to delete survey session", zap.String("session_uuid", sessionUUID), zap.Error(err))
		e.errMsg = MsgDeleteFailed
		return fmt.Errorf("failed to delete session: %w", err)
	}

	e.logger.Info("survey session deleted", zap.String("session_uuid", sessionUUID))
	return e.FetchPage(ctx, 1, e.sortBy, e.order)
}

// Export writes every session of the survey to w as a JSON array.
func (e *Explorer) Export(ctx context.Context, w io.Writer) error {
	e.errMsg = ""

	result, err := e.api.ListSessions(ctx, e.surveyUUID, e.exportFilter())
	if err != nil {
		e.logger.Warn("failed to export survey sessions", zap.Error(err))
		e.errMsg = MsgExportFailed
		return fmt.Errorf("failed to list sessions for export: %w", err)
	}

	sessions := result.Sessions
	if sessions == nil {
		sessions = []domain.Session{}
	}
	if err := json.NewEncoder(w).Encode(sessions); err != nil {
		e.errMsg = MsgExportFailed
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// Find returns one session of the survey with the survey it belongs to.
func (e *Explorer) Find(ctx context.Context, sessionUUID string) (*domain.Survey, *domain.Session, error) {
	e.errMsg = ""

	result, err := e.api.ListSessions(ctx, e.surveyUUID, e.exportFilter())
	if err != nil {
		e.logger.Warn("failed to load survey session", zap.String("session_uuid", sessionUUID), zap.Error(err))
		e.errMsg = MsgLoadFailed
		return nil, nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	survey := result.Survey
	for i := range result.Sessions {
		if result.Sessions[i].UUID == sessionUUID {
			return &survey, &result.Sessions[i], nil
		}
	}
	return &survey, nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionUUID)
}

func (e *Explorer) exportFilter() domain.SessionsFilter {
	return domain.SessionsFilter{
		Limit:  exportLimit,
		Offset: 0,
		SortBy: "created_at",
		Order:  domain.OrderDesc,
	}
}

// Download copies the uploaded file referenced by a file answer into w. Only
// the last segment of the stored path names the file.
func (e *Explorer) Download(ctx context.Context, filePath string, w io.Writer) error {
	e.errMsg = ""

	name := FileName(filePath)
	if _, err := e.api.Download(ctx, e.surveyUUID, name, w); err != nil {
		e.logger.Warn("failed to download file", zap.String("file", name), zap.Error(err))
		e.errMsg = MsgFileFailed
		return fmt.Errorf("failed to download %s: %w", name, err)
	}
	return nil
}

// FileName returns the file name part of a stored answer file path.
func FileName(filePath string) string {
	return path.Base(strings.ReplaceAll(filePath, "\\", "/"))
}

// AnswerRow is one line of the response detail view.
type AnswerRow struct {
	QuestionID    string `json:"question_id"`
	QuestionLabel string `json:"question_label"`
	Response      string `json:"response"`
	IsFile        bool   `json:"is_file"`
}

// View returns the detail rows of a session, one per recorded answer, in the
// order the answers were recorded.
func View(survey *domain.Survey, session domain.Session) []AnswerRow {
	rows := make([]AnswerRow, 0, len(session.QuestionAnswers))
	for _, a := range session.QuestionAnswers {
		row := AnswerRow{QuestionID: a.QuestionID}

		question, err := survey.FindQuestion(a.QuestionUUID)
		if err == nil {
			row.QuestionLabel = question.Label
			row.Response, row.IsFile = FormatAnswer(question.Type, a.Answer.Value)
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatAnswer renders an answer value for display. The second result marks
// file answers, whose text is the stored file path.
func FormatAnswer(qt domain.QuestionType, v domain.AnswerValue) (string, bool) {
	switch qt {
	case domain.QuestionTypeSingleChoice, domain.QuestionTypeShortText, domain.QuestionTypeLongText,
		domain.QuestionTypeDate, domain.QuestionTypeEmail:
		s, _ := v.Text()
		return s, false
	case domain.QuestionTypeMultipleChoice, domain.QuestionTypeRanking:
		items, _ := v.List()
		return strings.Join(items, ", "), false
	case domain.QuestionTypeRating:
		if n, ok := v.Number(); ok {
			return strconv.FormatInt(int64(n), 10), false
		}
		return "", false
	case domain.QuestionTypeYesNo:
		if b, _ := v.Bool(); b {
			return "Yes", false
		}
		return "No", false
	case domain.QuestionTypeFile:
		s, _ := v.Text()
		return s, true
	}
	return "", false
}
