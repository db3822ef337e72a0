package form

import "github.com/xiaot623/formdesk/internal/navigator"

// ViewKind names the screen a respondent is looking at.
type ViewKind string

const (
	ViewIntro     ViewKind = "intro"
	ViewQuestion  ViewKind = "question"
	ViewCompleted ViewKind = "completed"
	ViewExhausted ViewKind = "exhausted"
)

// Messages shown to respondents.
const (
	MsgSubmitted   = "Response submitted. Thank you!"
	MsgNoQuestions = "No more questions found in the survey."
)

// View is the state of the form to render.
type View struct {
	Kind      ViewKind      `json:"kind"`
	Title     string        `json:"title,omitempty"`
	Intro     string        `json:"intro,omitempty"`
	Message   string        `json:"message,omitempty"`
	Question  *QuestionView `json:"question,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// QuestionView is a question with its position and pre-filled input.
type QuestionView struct {
	UUID         string   `json:"uuid"`
	Type         string   `json:"type"`
	Label        string   `json:"label"`
	Description  string   `json:"description,omitempty"`
	Options      []string `json:"options,omitempty"`
	Scale        []int    `json:"scale,omitempty"`
	Position     int      `json:"position"`
	Total        int      `json:"total"`
	CanGoBack    bool     `json:"can_go_back"`
	CanGoForward bool     `json:"can_go_forward"`
	Prefill      Input    `json:"prefill"`
}

func questionView(step *navigator.Step, total int, canBack, canForward bool) *QuestionView {
	q := step.Question
	return &QuestionView{
		UUID:         q.UUID,
		Type:         string(q.Type),
		Label:        q.Label,
		Description:  q.Description,
		Options:      q.Options,
		Scale:        q.RatingScale(),
		Position:     step.Position(),
		Total:        total,
		CanGoBack:    canBack,
		CanGoForward: canForward,
		Prefill:      Prefill(q, step.Answer),
	}
}
