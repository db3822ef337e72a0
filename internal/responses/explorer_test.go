package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/formdesk/internal/domain"
)

type fakeAPI struct {
	filters   []domain.SessionsFilter
	page      *domain.SessionsPage
	listErr   error
	deleteErr error
	deleted   []string
	files     map[string]string
}

func (f *fakeAPI) ListSessions(ctx context.Context, surveyUUID string, filter domain.SessionsFilter) (*domain.SessionsPage, error) {
	f.filters = append(f.filters, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.page, nil
}

func (f *fakeAPI) DeleteSession(ctx context.Context, surveyUUID, sessionUUID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, sessionUUID)
	return nil
}

func (f *fakeAPI) Download(ctx context.Context, surveyUUID, fileName string, w io.Writer) (int64, error) {
	content, ok := f.files[fileName]
	if !ok {
		return 0, errors.New("not found")
	}
	n, err := io.WriteString(w, content)
	return int64(n), err
}

func pageOf(uuids ...string) *domain.SessionsPage {
	p := &domain.SessionsPage{Survey: domain.Survey{UUID: "s-1"}, PagesCount: 4}
	for _, u := range uuids {
		p.Sessions = append(p.Sessions, domain.Session{UUID: u, Status: domain.SessionStatusCompleted})
	}
	return p
}

func TestFetchPageReplacesRows(t *testing.T) {
	api := &fakeAPI{page: pageOf("a", "b")}
	e := NewExplorer(api, "s-1", nil)

	require.NoError(t, e.FetchPage(context.Background(), 3, "status", domain.OrderAsc))

	require.Len(t, api.filters, 1)
	assert.Equal(t, "limit=50&offset=100&sort_by=status&order=asc", api.filters[0].Query())
	assert.Equal(t, 3, e.Page())
	assert.Len(t, e.Rows(), 2)
	assert.Equal(t, 4, e.PagesCount())
	assert.True(t, e.ShowPagination())
	assert.Empty(t, e.ErrorMessage())
	require.NotNil(t, e.Survey())
	assert.Equal(t, "s-1", e.Survey().UUID)
}

func TestFetchPageFailureKeepsRows(t *testing.T) {
	api := &fakeAPI{page: pageOf("a")}
	e := NewExplorer(api, "s-1", nil)
	require.NoError(t, e.Load(context.Background()))

	api.listErr = errors.New("boom")
	err := e.GoToPage(context.Background(), 2)
	require.Error(t, err)

	assert.Equal(t, MsgLoadFailed, e.ErrorMessage())
	require.Len(t, e.Rows(), 1)
	assert.Equal(t, "a", e.Rows()[0].UUID)
	assert.Equal(t, 1, e.Page(), "page stays with the rows shown")

	require.Error(t, e.ToggleSort(context.Background(), "status"))
	assert.Equal(t, "created_at", e.SortBy())
	assert.Equal(t, domain.OrderDesc, e.Order())

	api.listErr = nil
	require.NoError(t, e.GoToPage(context.Background(), 2))
	assert.Empty(t, e.ErrorMessage())
}

func TestFetchPageRejectsUnknownSort(t *testing.T) {
	api := &fakeAPI{page: pageOf()}
	e := NewExplorer(api, "s-1", nil)

	err := e.FetchPage(context.Background(), 1, "ip_addr", domain.OrderAsc)
	require.Error(t, err)
	assert.Empty(t, api.filters)
	assert.Equal(t, "created_at", e.SortBy())
}

func TestToggleSort(t *testing.T) {
	api := &fakeAPI{page: pageOf("a")}
	e := NewExplorer(api, "s-1", nil)
	require.NoError(t, e.GoToPage(context.Background(), 2))

	// Same column as the current sort flips the order.
	require.NoError(t, e.ToggleSort(context.Background(), "created_at"))
	assert.Equal(t, domain.OrderAsc, e.Order())
	assert.Equal(t, 1, e.Page())

	require.NoError(t, e.ToggleSort(context.Background(), "created_at"))
	assert.Equal(t, domain.OrderDesc, e.Order())

	// A new column starts ascending.
	require.NoError(t, e.ToggleSort(context.Background(), "status"))
	assert.Equal(t, "status", e.SortBy())
	assert.Equal(t, domain.OrderAsc, e.Order())

	last := api.filters[len(api.filters)-1]
	assert.Equal(t, 0, last.Offset)
}

func TestDeleteReloadsFirstPage(t *testing.T) {
	api := &fakeAPI{page: pageOf("a")}
	e := NewExplorer(api, "s-1", nil)
	require.NoError(t, e.FetchPage(context.Background(), 2, "status", domain.OrderAsc))

	require.NoError(t, e.Delete(context.Background(), "a"))
	assert.Equal(t, []string{"a"}, api.deleted)
	assert.Equal(t, 1, e.Page())
	assert.Equal(t, "status", e.SortBy())

	api.deleteErr = errors.New("nope")
	require.Error(t, e.Delete(context.Background(), "b"))
	assert.Equal(t, MsgDeleteFailed, e.ErrorMessage())
}

func TestExport(t *testing.T) {
	api := &fakeAPI{page: pageOf("a", "b", "c")}
	e := NewExplorer(api, "s-1", nil)

	var buf bytes.Buffer
	require.NoError(t, e.Export(context.Background(), &buf))

	require.Len(t, api.filters, 1)
	assert.Equal(t, "limit=1000000&offset=0&sort_by=created_at&order=desc", api.filters[0].Query())

	var sessions []domain.Session
	require.NoError(t, json.Unmarshal(buf.Bytes(), &sessions))
	assert.Len(t, sessions, 3)

	api.listErr = errors.New("down")
	require.Error(t, e.Export(context.Background(), &buf))
	assert.Equal(t, MsgExportFailed, e.ErrorMessage())
}

func TestFind(t *testing.T) {
	api := &fakeAPI{page: pageOf("a", "b")}
	e := NewExplorer(api, "s-1", nil)

	survey, session, err := e.Find(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "s-1", survey.UUID)
	assert.Equal(t, "b", session.UUID)
	assert.Equal(t, exportLimit, api.filters[0].Limit)

	_, _, err = e.Find(context.Background(), "zzz")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDownloadUsesLastPathSegment(t *testing.T) {
	api := &fakeAPI{files: map[string]string{"cv.pdf": "data"}}
	e := NewExplorer(api, "s-1", nil)

	var buf bytes.Buffer
	require.NoError(t, e.Download(context.Background(), "uploads/s-1/cv.pdf", &buf))
	assert.Equal(t, "data", buf.String())

	require.Error(t, e.Download(context.Background(), "uploads/missing.pdf", &buf))
	assert.Equal(t, MsgFileFailed, e.ErrorMessage())
}

func TestView(t *testing.T) {
	lo, hi := 1, 5
	survey := &domain.Survey{Config: &domain.SurveyConfig{Questions: &domain.Questions{Questions: []domain.Question{
		{ID: "color", UUID: "q1", Type: domain.QuestionTypeSingleChoice, Label: "Color?"},
		{ID: "langs", UUID: "q2", Type: domain.QuestionTypeMultipleChoice, Label: "Languages?"},
		{ID: "score", UUID: "q3", Type: domain.QuestionTypeRating, Label: "Score?", Min: &lo, Max: &hi},
		{ID: "ok", UUID: "q4", Type: domain.QuestionTypeYesNo, Label: "OK?"},
		{ID: "cv", UUID: "q5", Type: domain.QuestionTypeFile, Label: "CV"},
	}}}}
	session := domain.Session{QuestionAnswers: []domain.QuestionAnswer{
		{QuestionID: "langs", QuestionUUID: "q2", Answer: domain.Answer{Value: domain.ListValue([]string{"Go", "Rust"})}},
		{QuestionID: "color", QuestionUUID: "q1", Answer: domain.Answer{Value: domain.StringValue("red")}},
		{QuestionID: "score", QuestionUUID: "q3", Answer: domain.Answer{Value: domain.NumberValue(4)}},
		{QuestionID: "ok", QuestionUUID: "q4", Answer: domain.Answer{Value: domain.BoolValue(false)}},
		{QuestionID: "cv", QuestionUUID: "q5", Answer: domain.Answer{Value: domain.StringValue("files/cv.pdf")}},
		{QuestionID: "gone", QuestionUUID: "q-removed", Answer: domain.Answer{Value: domain.StringValue("x")}},
	}}

	rows := View(survey, session)
	require.Len(t, rows, 6)
	assert.Equal(t, AnswerRow{QuestionID: "langs", QuestionLabel: "Languages?", Response: "Go, Rust"}, rows[0])
	assert.Equal(t, "red", rows[1].Response)
	assert.Equal(t, "4", rows[2].Response)
	assert.Equal(t, "No", rows[3].Response)
	assert.True(t, rows[4].IsFile)
	assert.Equal(t, "files/cv.pdf", rows[4].Response)
	assert.Equal(t, AnswerRow{QuestionID: "gone"}, rows[5])
}

func TestTableRows(t *testing.T) {
	created := time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)
	api := &fakeAPI{page: &domain.SessionsPage{Sessions: []domain.Session{
		{UUID: "a", Status: domain.SessionStatusInProgress, CreatedAt: created},
		{UUID: "b", Status: domain.SessionStatusCompleted, CreatedAt: created, CompletedAt: &created, WebhookData: domain.WebhookData{StatusCode: 200}},
	}}}
	e := NewExplorer(api, "s-1", nil)
	require.NoError(t, e.Load(context.Background()))

	rows := e.TableRows()
	require.Len(t, rows, 2)
	assert.Equal(t, Row{UUID: "a", Status: "In Progress", StartedAt: "Mar 5, 2024 2:07 pm"}, rows[0])
	assert.Equal(t, "Completed", rows[1].Status)
	assert.Equal(t, "Mar 5, 2024 2:07 pm", rows[1].CompletedAt)
	assert.Equal(t, 200, rows[1].WebhookStatus)
	assert.False(t, e.ShowPagination())
}
