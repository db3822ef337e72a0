package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/formdesk/internal/config"
	"github.com/xiaot623/formdesk/internal/domain"
	"github.com/xiaot623/formdesk/internal/hub"
	"github.com/xiaot623/formdesk/internal/protocol"
	"github.com/xiaot623/formdesk/internal/store"
)

type fakeAPI struct {
	mu       sync.Mutex
	survey   *domain.Survey
	sessions map[string]*domain.Session
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		survey: &domain.Survey{
			URLSlug: "feedback",
			Config: &domain.SurveyConfig{
				Title: "Feedback",
				Questions: &domain.Questions{Questions: []domain.Question{
					{UUID: "q1", Type: domain.QuestionTypeShortText, Label: "Name?"},
					{UUID: "q2", Type: domain.QuestionTypeYesNo, Label: "Happy?"},
				}},
			},
		},
		sessions: map[string]*domain.Session{},
	}
}

func (f *fakeAPI) GetSurvey(ctx context.Context, urlSlug string) (*domain.Survey, error) {
	if urlSlug != f.survey.URLSlug {
		return nil, domain.ErrSurveyNotFound
	}
	return f.survey, nil
}

func (f *fakeAPI) CreateSession(ctx context.Context, urlSlug string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &domain.Session{UUID: fmt.Sprintf("sess-%d", len(f.sessions)+1), Status: domain.SessionStatusInProgress}
	f.sessions[s.UUID] = s
	c := *s
	return &c, nil
}

func (f *fakeAPI) GetSession(ctx context.Context, urlSlug, sessionUUID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionUUID]
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionUUID)
	}
	c := *s
	c.QuestionAnswers = append([]domain.QuestionAnswer{}, s.QuestionAnswers...)
	return &c, nil
}

func (f *fakeAPI) SubmitAnswer(ctx context.Context, urlSlug, sessionUUID, questionUUID string, value domain.AnswerValue) (*domain.Session, error) {
	f.mu.Lock()
	s := f.sessions[sessionUUID]
	replaced := false
	for i := range s.QuestionAnswers {
		if s.QuestionAnswers[i].QuestionUUID == questionUUID {
			s.QuestionAnswers[i].Answer.Value = value
			replaced = true
		}
	}
	if !replaced {
		s.QuestionAnswers = append(s.QuestionAnswers, domain.QuestionAnswer{QuestionUUID: questionUUID, Answer: domain.Answer{Value: value}})
	}
	if len(s.QuestionAnswers) == len(f.survey.QuestionList()) {
		s.Status = domain.SessionStatusCompleted
	}
	f.mu.Unlock()
	return f.GetSession(ctx, urlSlug, sessionUUID)
}

func (f *fakeAPI) SubmitFile(ctx context.Context, urlSlug, sessionUUID, questionUUID, fileName string, content io.Reader) (*domain.Session, error) {
	return f.SubmitAnswer(ctx, urlSlug, sessionUUID, questionUUID, domain.StringValue(fileName))
}

func startServer(t *testing.T) string {
	t.Helper()
	url, _ := startServerWithAPI(t)
	return url
}

func startServerWithAPI(t *testing.T) (string, *fakeAPI) {
	t.Helper()

	pointers, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h := hub.NewHub(nil)
	go h.Run(ctx)

	cfg := config.Default()
	api := newFakeAPI()
	e := echo.New()
	NewServer(cfg, h, api, pointers, nil).Register(e)
	srv := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		<-h.Done()
		srv.Close()
		_ = pointers.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", api
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

type reply struct {
	Type         string          `json:"type"`
	RequestID    string          `json:"request_id"`
	SessionID    string          `json:"session_id"`
	RespondentID string          `json:"respondent_id"`
	Title        string          `json:"title"`
	Message      string          `json:"message"`
	Question     json.RawMessage `json:"question"`
	Code         string          `json:"code"`
}

func (r reply) questionUUID(t *testing.T) string {
	t.Helper()
	var q struct {
		UUID string `json:"uuid"`
	}
	require.NoError(t, json.Unmarshal(r.Question, &q))
	return q.UUID
}

func send(t *testing.T, c *websocket.Conn, v interface{}) reply {
	t.Helper()
	require.NoError(t, c.WriteJSON(v))
	return read(t, c)
}

func read(t *testing.T, c *websocket.Conn) reply {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var r reply
	require.NoError(t, c.ReadJSON(&r))
	return r
}

func TestFormFlow(t *testing.T) {
	c := dial(t, startServer(t))

	r := send(t, c, map[string]string{"type": "hello", "url_slug": "feedback", "request_id": "r1"})
	assert.Equal(t, protocol.TypeIntro, r.Type)
	assert.Equal(t, "r1", r.RequestID)
	assert.Equal(t, "Feedback", r.Title)
	assert.NotEmpty(t, r.RespondentID)

	r = send(t, c, map[string]string{"type": "start"})
	assert.Equal(t, protocol.TypeQuestion, r.Type)
	assert.Equal(t, "q1", r.questionUUID(t))
	assert.Equal(t, "sess-1", r.SessionID)

	r = send(t, c, map[string]interface{}{"type": "answer", "value": "Ada"})
	assert.Equal(t, protocol.TypeQuestion, r.Type)
	assert.Equal(t, "q2", r.questionUUID(t))

	r = send(t, c, map[string]string{"type": "back"})
	assert.Equal(t, "q1", r.questionUUID(t))

	r = send(t, c, map[string]string{"type": "back"})
	assert.Equal(t, protocol.TypeError, r.Type)
	assert.Equal(t, protocol.ErrorCodeNotAllowed, r.Code)

	r = send(t, c, map[string]string{"type": "forward"})
	assert.Equal(t, protocol.ErrorCodeNotAllowed, r.Code, "q2 has no answer yet")

	r = send(t, c, map[string]interface{}{"type": "answer", "value": "Grace"})
	assert.Equal(t, "q2", r.questionUUID(t))

	r = send(t, c, map[string]interface{}{"type": "answer", "value": true})
	assert.Equal(t, protocol.TypeCompleted, r.Type)
}

func TestHelloRequired(t *testing.T) {
	c := dial(t, startServer(t))

	r := send(t, c, map[string]string{"type": "start", "request_id": "r9"})
	assert.Equal(t, protocol.TypeError, r.Type)
	assert.Equal(t, protocol.ErrorCodeHelloRequired, r.Code)
	assert.Equal(t, "r9", r.RequestID)
}

func TestInvalidMessages(t *testing.T) {
	c := dial(t, startServer(t))

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("{")))
	r := read(t, c)
	assert.Equal(t, protocol.ErrorCodeInvalidMessage, r.Code)

	r = send(t, c, map[string]string{"type": "hello", "url_slug": "missing"})
	assert.Equal(t, protocol.ErrorCodeSurveyNotFound, r.Code)

	send(t, c, map[string]string{"type": "hello", "url_slug": "feedback"})
	r = send(t, c, map[string]string{"type": "dance"})
	assert.Equal(t, protocol.ErrorCodeInvalidMessage, r.Code)

	send(t, c, map[string]string{"type": "start"})
	r = send(t, c, map[string]interface{}{"type": "answer", "value": ""})
	assert.Equal(t, protocol.ErrorCodeInvalidAnswer, r.Code)
}

func TestSecondTabResumesAndFollows(t *testing.T) {
	url, api := startServerWithAPI(t)
	first, second := dial(t, url), dial(t, url)

	hello := send(t, first, map[string]string{"type": "hello", "url_slug": "feedback"})
	send(t, first, map[string]string{"type": "start"})

	r := send(t, second, map[string]string{"type": "hello", "url_slug": "feedback", "respondent_id": hello.RespondentID})
	assert.Equal(t, protocol.TypeQuestion, r.Type)
	assert.Equal(t, "sess-1", r.SessionID)

	send(t, first, map[string]interface{}{"type": "answer", "value": "Ada"})

	r = read(t, second)
	assert.Equal(t, protocol.TypeQuestion, r.Type)
	assert.Equal(t, "q2", r.questionUUID(t))

	// The second tab answers the question it was shown.
	r = send(t, second, map[string]interface{}{"type": "answer", "value": true})
	assert.Equal(t, protocol.TypeCompleted, r.Type)

	r = read(t, first)
	assert.Equal(t, protocol.TypeCompleted, r.Type)

	session, err := api.GetSession(context.Background(), "feedback", "sess-1")
	require.NoError(t, err)
	name, ok := session.AnswerFor("q1")
	require.True(t, ok)
	assert.True(t, domain.StringValue("Ada").Equal(name), "q1 keeps the first tab's answer")
	happy, ok := session.AnswerFor("q2")
	require.True(t, ok)
	assert.True(t, domain.BoolValue(true).Equal(happy))
}

func TestAnswerTargetsQuestionOnScreen(t *testing.T) {
	url, api := startServerWithAPI(t)
	first, second := dial(t, url), dial(t, url)

	hello := send(t, first, map[string]string{"type": "hello", "url_slug": "feedback"})
	send(t, first, map[string]string{"type": "start"})
	send(t, second, map[string]string{"type": "hello", "url_slug": "feedback", "respondent_id": hello.RespondentID})

	send(t, first, map[string]interface{}{"type": "answer", "value": "Ada"})
	r := send(t, first, map[string]string{"type": "back"})
	assert.Equal(t, "q1", r.questionUUID(t))
	read(t, second)
	read(t, second)

	// The second tab acts on q2, the question it showed before the first tab
	// went back.
	r = send(t, second, map[string]interface{}{
		"type": "back", "session_id": "sess-1", "question_uuid": "q2",
	})
	assert.Equal(t, protocol.TypeQuestion, r.Type)
	assert.Equal(t, "q1", r.questionUUID(t))

	r = send(t, first, map[string]interface{}{
		"type": "answer", "session_id": "sess-1", "question_uuid": "q1", "value": "Grace",
	})
	assert.Equal(t, "q2", r.questionUUID(t))

	session, err := api.GetSession(context.Background(), "feedback", "sess-1")
	require.NoError(t, err)
	name, _ := session.AnswerFor("q1")
	assert.True(t, domain.StringValue("Grace").Equal(name))
	_, ok := session.AnswerFor("q2")
	assert.False(t, ok)
}
