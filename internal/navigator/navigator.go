// Package navigator walks a survey's ordered question list against the answers
// recorded in a session.
//
// The question list order is authoritative; answers only pre-fill. All
// functions are pure: they never mutate the survey or the session and report
// absence with a nil Step.
package navigator

import "github.com/xiaot623/formdesk/internal/domain"

// Step is a question annotated with its position in the survey and, when the
// session already answered it, the recorded value.
type Step struct {
	Question domain.Question
	Index    int
	Answer   domain.AnswerValue
	Answered bool
}

// Position returns the 1-based position of the step.
func (s *Step) Position() int { return s.Index + 1 }

// UUID returns the identifier of the step's question.
func (s *Step) UUID() string { return s.Question.UUID }

func stepAt(qs []domain.Question, i int, session *domain.Session) *Step {
	st := &Step{Question: qs[i], Index: i}
	st.Answer, st.Answered = session.AnswerFor(qs[i].UUID)
	return st
}

func indexOf(qs []domain.Question, questionUUID string) int {
	for i, q := range qs {
		if q.UUID == questionUUID {
			return i
		}
	}
	return -1
}

// Initial returns the first question in list order without a recorded answer,
// or nil when every question is answered.
func Initial(survey *domain.Survey, session *domain.Session) *Step {
	qs := survey.QuestionList()
	for i, q := range qs {
		if _, ok := session.AnswerFor(q.UUID); !ok {
			return &Step{Question: q, Index: i}
		}
	}
	return nil
}

// At returns the step of the question with the given uuid.
func At(survey *domain.Survey, session *domain.Session, questionUUID string) *Step {
	qs := survey.QuestionList()
	i := indexOf(qs, questionUUID)
	if i < 0 {
		return nil
	}
	return stepAt(qs, i, session)
}

// Next returns the question after current, pre-filled when answered. It is
// nil after the last question or when current is not in the survey.
func Next(survey *domain.Survey, session *domain.Session, current string) *Step {
	qs := survey.QuestionList()
	i := indexOf(qs, current)
	if i < 0 || i == len(qs)-1 {
		return nil
	}
	return stepAt(qs, i+1, session)
}

// Prev returns the question before current, pre-filled when answered. It is
// nil at the first question or when current is not in the survey.
func Prev(survey *domain.Survey, session *domain.Session, current string) *Step {
	qs := survey.QuestionList()
	i := indexOf(qs, current)
	if i <= 0 {
		return nil
	}
	return stepAt(qs, i-1, session)
}

// NextAnswered is Next restricted to an already answered question.
func NextAnswered(survey *domain.Survey, session *domain.Session, current string) *Step {
	st := Next(survey, session, current)
	if st == nil || !st.Answered {
		return nil
	}
	return st
}

// PrevAnswered is Prev restricted to an already answered question.
func PrevAnswered(survey *domain.Survey, session *domain.Session, current string) *Step {
	st := Prev(survey, session, current)
	if st == nil || !st.Answered {
		return nil
	}
	return st
}
