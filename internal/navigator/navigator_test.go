package navigator

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/formdesk/internal/domain"
)

var answerCmp = cmp.Comparer(func(a, b domain.AnswerValue) bool { return a.Equal(b) })

func testSurvey(n int) *domain.Survey {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:    fmt.Sprintf("q%d", i),
			UUID:  fmt.Sprintf("uuid-%d", i),
			Type:  domain.QuestionTypeShortText,
			Label: fmt.Sprintf("Question %d", i),
		}
	}
	return &domain.Survey{
		UUID:    "survey-1",
		URLSlug: "demo",
		Config: &domain.SurveyConfig{
			Title:     "Demo",
			Questions: &domain.Questions{Questions: qs},
		},
	}
}

func answered(uuids ...string) *domain.Session {
	s := &domain.Session{UUID: "sess-1", Status: domain.SessionStatusInProgress}
	for _, u := range uuids {
		s.QuestionAnswers = append(s.QuestionAnswers, domain.QuestionAnswer{
			QuestionUUID: u,
			Answer:       domain.Answer{Value: domain.StringValue("answer to " + u)},
		})
	}
	return s
}

func TestInitialReturnsFirstUnanswered(t *testing.T) {
	survey := testSurvey(5)

	for k := 0; k < 5; k++ {
		var uuids []string
		for i := 0; i < k; i++ {
			uuids = append(uuids, fmt.Sprintf("uuid-%d", i))
		}

		st := Initial(survey, answered(uuids...))
		require.NotNil(t, st, "k=%d", k)
		assert.Equal(t, k, st.Index)
		assert.Equal(t, fmt.Sprintf("uuid-%d", k), st.UUID())
		assert.False(t, st.Answered)
	}
}

func TestInitialUsesListPositionNotAnswerOrder(t *testing.T) {
	survey := testSurvey(4)
	// Answers recorded out of order, with a gap at uuid-1.
	session := answered("uuid-3", "uuid-0", "uuid-2")

	st := Initial(survey, session)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.Index)
}

func TestInitialAllAnswered(t *testing.T) {
	survey := testSurvey(2)
	assert.Nil(t, Initial(survey, answered("uuid-1", "uuid-0")))
}

func TestInitialNilSessionAndEmptySurvey(t *testing.T) {
	st := Initial(testSurvey(3), nil)
	require.NotNil(t, st)
	assert.Equal(t, 0, st.Index)

	assert.Nil(t, Initial(&domain.Survey{}, nil))
	assert.Nil(t, Next(&domain.Survey{}, nil, "uuid-0"))
}

func TestBoundaries(t *testing.T) {
	survey := testSurvey(3)
	session := answered()

	assert.Nil(t, Prev(survey, session, "uuid-0"))
	assert.Nil(t, Next(survey, session, "uuid-2"))
	assert.Nil(t, Next(survey, session, "missing"))
	assert.Nil(t, Prev(survey, session, "missing"))
}

func TestNextPrevInverse(t *testing.T) {
	survey := testSurvey(6)
	session := answered("uuid-0", "uuid-2", "uuid-3")

	for i := 0; i < 5; i++ {
		current := fmt.Sprintf("uuid-%d", i)
		next := Next(survey, session, current)
		require.NotNil(t, next)
		assert.Equal(t, i+1, next.Index)

		back := Prev(survey, session, next.UUID())
		require.NotNil(t, back)
		assert.Equal(t, current, back.UUID())
		assert.Equal(t, i, back.Index)
	}
}

func TestNextPrefillsAnswer(t *testing.T) {
	survey := testSurvey(3)
	session := answered("uuid-1")

	st := Next(survey, session, "uuid-0")
	require.NotNil(t, st)
	assert.True(t, st.Answered)
	text, ok := st.Answer.Text()
	assert.True(t, ok)
	assert.Equal(t, "answer to uuid-1", text)

	st = Next(survey, session, "uuid-1")
	require.NotNil(t, st)
	assert.False(t, st.Answered)
	assert.True(t, st.Answer.IsZero())
}

func TestRederivationIsStable(t *testing.T) {
	survey := testSurvey(4)
	session := answered("uuid-0", "uuid-1", "uuid-2")

	first := Next(survey, session, "uuid-0")
	viaPrev := Prev(survey, session, "uuid-2")
	again := Next(survey, session, "uuid-0")

	if diff := cmp.Diff(first, viaPrev, answerCmp); diff != "" {
		t.Fatalf("step via prev differs (-next +prev):\n%s", diff)
	}
	if diff := cmp.Diff(first, again, answerCmp); diff != "" {
		t.Fatalf("repeated step differs (-first +again):\n%s", diff)
	}
}

func TestAnsweredVariants(t *testing.T) {
	survey := testSurvey(4)
	session := answered("uuid-0", "uuid-1")

	assert.Nil(t, PrevAnswered(survey, session, "uuid-0"))

	prev := PrevAnswered(survey, session, "uuid-2")
	require.NotNil(t, prev)
	assert.Equal(t, "uuid-1", prev.UUID())

	next := NextAnswered(survey, session, "uuid-0")
	require.NotNil(t, next)
	assert.Equal(t, "uuid-1", next.UUID())

	assert.Nil(t, NextAnswered(survey, session, "uuid-1"), "uuid-2 has no answer")
	assert.Nil(t, NextAnswered(survey, session, "uuid-3"))
}

func TestNavigationDoesNotMutate(t *testing.T) {
	survey := testSurvey(3)
	session := answered("uuid-1")

	st := Next(survey, session, "uuid-0")
	require.NotNil(t, st)
	st.Question.Label = "changed"
	st.Index = 99

	assert.Equal(t, "Question 1", survey.QuestionList()[1].Label)
	assert.Len(t, session.QuestionAnswers, 1)
}

func TestAt(t *testing.T) {
	survey := testSurvey(3)
	st := At(survey, answered("uuid-2"), "uuid-2")
	require.NotNil(t, st)
	assert.Equal(t, 3, st.Position())
	assert.True(t, st.Answered)
	assert.Nil(t, At(survey, nil, "nope"))
}
