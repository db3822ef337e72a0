// Package form drives one respondent through one survey: starting or resuming
// a session, submitting answers and moving between questions.
package form

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/xiaot623/formdesk/internal/domain"
	"github.com/xiaot623/formdesk/internal/navigator"
	"github.com/xiaot623/formdesk/internal/store"
	"github.com/xiaot623/formdesk/internal/surveyapi"
)

var (
	// ErrNotAnswering is returned for question actions outside the question view.
	ErrNotAnswering = errors.New("no question is being answered")
	// ErrCannotNavigate is returned when back or forward is disabled.
	ErrCannotNavigate = errors.New("navigation is not available")
)

// SurveyAPI is the part of the survey API the form uses.
type SurveyAPI interface {
	GetSurvey(ctx context.Context, urlSlug string) (*domain.Survey, error)
	CreateSession(ctx context.Context, urlSlug string) (*domain.Session, error)
	GetSession(ctx context.Context, urlSlug, sessionUUID string) (*domain.Session, error)
	SubmitAnswer(ctx context.Context, urlSlug, sessionUUID, questionUUID string, value domain.AnswerValue) (*domain.Session, error)
	SubmitFile(ctx context.Context, urlSlug, sessionUUID, questionUUID, fileName string, content io.Reader) (*domain.Session, error)
}

// Runner is the form state of one respondent. It is not safe for concurrent use.
type Runner struct {
	api          SurveyAPI
	pointers     store.Store
	logger       *zap.Logger
	respondentID string

	survey  *domain.Survey
	session *domain.Session
	current *navigator.Step
	view    View
}

// Open loads the survey behind urlSlug and returns a runner showing its intro.
func Open(ctx context.Context, api SurveyAPI, pointers store.Store, urlSlug, respondentID string, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	survey, err := api.GetSurvey(ctx, urlSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to load survey %s: %w", urlSlug, err)
	}
	r := &Runner{
		api:          api,
		pointers:     pointers,
		logger:       logger.With(zap.String("url_slug", urlSlug), zap.String("respondent_id", respondentID)),
		respondentID: respondentID,
		survey:       survey,
	}
	r.showIntro("")
	return r, nil
}

// Survey returns the survey being taken.
func (r *Runner) Survey() *domain.Survey { return r.survey }

// Session returns the current session, or nil before Start.
func (r *Runner) Session() *domain.Session { return r.session }

// View returns the current view.
func (r *Runner) View() View { return r.view }

// SessionID returns the uuid of the current session, if any.
func (r *Runner) SessionID() string {
	if r.session == nil {
		return ""
	}
	return r.session.UUID
}

// CurrentQuestion returns the uuid of the question on screen, if any.
func (r *Runner) CurrentQuestion() string {
	if r.current == nil {
		return ""
	}
	return r.current.UUID()
}

func (r *Runner) slug() string { return r.survey.URLSlug }

func (r *Runner) total() int { return len(r.survey.QuestionList()) }

func (r *Runner) showIntro(errMsg string) {
	r.current = nil
	cfg := r.survey.Config
	r.view = View{Kind: ViewIntro, Error: errMsg}
	if cfg != nil {
		r.view.Title = cfg.Title
		r.view.Intro = cfg.Intro
	}
}

// show renders the session at step, or the completed and exhausted screens.
func (r *Runner) show(step *navigator.Step) {
	r.current = step
	sid := r.SessionID()
	switch {
	case r.session.IsCompleted():
		msg := MsgSubmitted
		if cfg := r.survey.Config; cfg != nil && cfg.Outro != "" {
			msg = cfg.Outro
		}
		r.current = nil
		r.view = View{Kind: ViewCompleted, Message: msg, SessionID: sid}
	case step == nil:
		r.view = View{Kind: ViewExhausted, Message: MsgNoQuestions, SessionID: sid}
	default:
		canBack := navigator.PrevAnswered(r.survey, r.session, step.UUID()) != nil
		canForward := navigator.NextAnswered(r.survey, r.session, step.UUID()) != nil
		r.view = View{
			Kind:      ViewQuestion,
			Question:  questionView(step, r.total(), canBack, canForward),
			SessionID: sid,
		}
	}
}

// Start creates a new session and shows its first question.
func (r *Runner) Start(ctx context.Context) (View, error) {
	session, err := r.api.CreateSession(ctx, r.slug())
	if err != nil {
		r.logger.Error("failed to create session", zap.Error(err))
		r.view.Error = surveyapi.UserMessage(err)
		return r.view, fmt.Errorf("failed to create session: %w", err)
	}
	if r.pointers != nil {
		p := &store.SessionPointer{RespondentID: r.respondentID, URLSlug: r.slug(), SessionUUID: session.UUID}
		if err := r.pointers.PutPointer(ctx, p); err != nil {
			r.logger.Warn("failed to remember session", zap.String("session_uuid", session.UUID), zap.Error(err))
		}
	}
	r.session = session
	r.show(navigator.Initial(r.survey, session))
	return r.view, nil
}

// Resume continues the remembered session of the respondent. Without one, or
// when it can no longer be fetched, the pointer is dropped and the intro shown.
func (r *Runner) Resume(ctx context.Context) (View, error) {
	if r.pointers == nil {
		return r.view, nil
	}
	p, err := r.pointers.GetPointer(ctx, r.respondentID, r.slug())
	if err != nil {
		return r.view, fmt.Errorf("failed to read session pointer: %w", err)
	}
	if p == nil {
		r.session = nil
		r.showIntro("")
		return r.view, nil
	}
	session, err := r.api.GetSession(ctx, r.slug(), p.SessionUUID)
	if err != nil {
		r.logger.Info("remembered session is gone", zap.String("session_uuid", p.SessionUUID), zap.Error(err))
		if derr := r.pointers.DeletePointer(ctx, r.respondentID, r.slug()); derr != nil {
			r.logger.Warn("failed to forget session", zap.Error(derr))
		}
		r.session = nil
		r.showIntro("")
		return r.view, nil
	}
	r.session = session
	r.show(navigator.Initial(r.survey, session))
	return r.view, nil
}

// Refresh reloads the respondent's session, which other tabs may have moved
// on, and shows questionUUID. An empty or unknown questionUUID shows the first
// unanswered question.
func (r *Runner) Refresh(ctx context.Context, questionUUID string) (View, error) {
	if r.pointers != nil {
		if _, err := r.Resume(ctx); err != nil {
			return r.view, err
		}
	} else if r.session != nil {
		session, err := r.api.GetSession(ctx, r.slug(), r.session.UUID)
		if err != nil {
			r.logger.Error("failed to reload session", zap.String("session_uuid", r.session.UUID), zap.Error(err))
			r.view.Error = surveyapi.UserMessage(err)
			return r.view, fmt.Errorf("failed to reload session: %w", err)
		}
		r.session = session
		r.show(navigator.Initial(r.survey, session))
	}

	if r.session == nil || questionUUID == "" || r.session.IsCompleted() {
		return r.view, nil
	}
	if step := navigator.At(r.survey, r.session, questionUUID); step != nil {
		r.show(step)
	}
	return r.view, nil
}

// Submit answers the current question and moves to the next one. On failure
// the current question stays on screen with the error message.
func (r *Runner) Submit(ctx context.Context, in Input) (View, error) {
	if r.view.Kind != ViewQuestion || r.current == nil {
		return r.view, ErrNotAnswering
	}
	q := r.current.Question
	value, err := Encode(q.Type, in)
	if err != nil {
		return r.view, err
	}

	var session *domain.Session
	if q.Type == domain.QuestionTypeFile {
		session, err = r.api.SubmitFile(ctx, r.slug(), r.session.UUID, q.UUID, in.FileName, bytes.NewReader(in.File))
	} else {
		session, err = r.api.SubmitAnswer(ctx, r.slug(), r.session.UUID, q.UUID, value)
	}
	if err != nil {
		r.logger.Error("failed to submit answer", zap.String("question_uuid", q.UUID), zap.Error(err))
		r.view.Error = surveyapi.UserMessage(err)
		return r.view, fmt.Errorf("failed to submit answer: %w", err)
	}

	r.session = session
	r.show(navigator.Next(r.survey, session, q.UUID))
	return r.view, nil
}

// Back moves to the previous answered question.
func (r *Runner) Back() (View, error) {
	return r.move(navigator.PrevAnswered)
}

// Forward moves to the next answered question.
func (r *Runner) Forward() (View, error) {
	return r.move(navigator.NextAnswered)
}

func (r *Runner) move(step func(*domain.Survey, *domain.Session, string) *navigator.Step) (View, error) {
	if r.view.Kind != ViewQuestion || r.current == nil {
		return r.view, ErrNotAnswering
	}
	target := step(r.survey, r.session, r.current.UUID())
	if target == nil {
		return r.view, ErrCannotNavigate
	}
	r.show(target)
	return r.view, nil
}

// Restart forgets the session and returns to the intro.
func (r *Runner) Restart(ctx context.Context) (View, error) {
	if r.pointers != nil {
		if err := r.pointers.DeletePointer(ctx, r.respondentID, r.slug()); err != nil {
			return r.view, fmt.Errorf("failed to forget session: %w", err)
		}
	}
	r.session = nil
	r.showIntro("")
	return r.view, nil
}
