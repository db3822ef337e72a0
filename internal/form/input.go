package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xiaot623/formdesk/internal/domain"
)

var (
	// ErrEmptyInput is returned when nothing was selected or typed.
	ErrEmptyInput = errors.New("no answer given")
	// ErrInvalidRating is returned when a rating selection is not a number.
	ErrInvalidRating = errors.New("rating must be a number")
	// ErrUnsupportedQuestion is returned for question types the form cannot encode.
	ErrUnsupportedQuestion = errors.New("unsupported question type")
)

// Input is what a respondent entered for one question. Text carries single
// selections and typed answers; List carries multiple selections and rankings.
type Input struct {
	Text     string   `json:"text,omitempty"`
	List     []string `json:"list,omitempty"`
	FileName string   `json:"file_name,omitempty"`
	File     []byte   `json:"-"`
}

// IsEmpty reports whether the input holds nothing to submit.
func (in Input) IsEmpty() bool {
	return in.Text == "" && len(in.List) == 0 && in.FileName == "" && len(in.File) == 0
}

// Encode converts an input into the value submitted for a question of the
// given type. File questions are uploaded as multipart and have no value.
func Encode(qt domain.QuestionType, in Input) (domain.AnswerValue, error) {
	switch qt {
	case domain.QuestionTypeSingleChoice, domain.QuestionTypeShortText, domain.QuestionTypeLongText,
		domain.QuestionTypeEmail, domain.QuestionTypeDate:
		if in.Text == "" {
			return domain.AnswerValue{}, ErrEmptyInput
		}
		return domain.StringValue(in.Text), nil
	case domain.QuestionTypeMultipleChoice, domain.QuestionTypeRanking:
		if len(in.List) == 0 {
			return domain.AnswerValue{}, ErrEmptyInput
		}
		return domain.ListValue(in.List), nil
	case domain.QuestionTypeRating:
		if in.Text == "" {
			return domain.AnswerValue{}, ErrEmptyInput
		}
		n, err := strconv.Atoi(strings.TrimSpace(in.Text))
		if err != nil {
			return domain.AnswerValue{}, fmt.Errorf("%w: %q", ErrInvalidRating, in.Text)
		}
		return domain.NumberValue(float64(n)), nil
	case domain.QuestionTypeYesNo:
		if in.Text == "" {
			return domain.AnswerValue{}, ErrEmptyInput
		}
		return domain.BoolValue(in.Text == "yes"), nil
	case domain.QuestionTypeFile:
		if in.FileName == "" {
			return domain.AnswerValue{}, ErrEmptyInput
		}
		return domain.AnswerValue{}, nil
	}
	return domain.AnswerValue{}, fmt.Errorf("%w: %s", ErrUnsupportedQuestion, qt)
}

// Prefill turns a recorded answer back into the input shown for a question.
// Ranking questions without an answer start from the option order. File
// questions are never pre-filled.
func Prefill(q domain.Question, v domain.AnswerValue) Input {
	switch q.Type {
	case domain.QuestionTypeSingleChoice, domain.QuestionTypeShortText, domain.QuestionTypeLongText,
		domain.QuestionTypeEmail, domain.QuestionTypeDate:
		s, _ := v.Text()
		return Input{Text: s}
	case domain.QuestionTypeMultipleChoice:
		l, _ := v.List()
		return Input{List: l}
	case domain.QuestionTypeRanking:
		if l, ok := v.List(); ok {
			return Input{List: l}
		}
		return Input{List: append([]string{}, q.Options...)}
	case domain.QuestionTypeRating:
		if n, ok := v.Number(); ok {
			return Input{Text: strconv.Itoa(int(n))}
		}
	case domain.QuestionTypeYesNo:
		if b, ok := v.Bool(); ok {
			if b {
				return Input{Text: "yes"}
			}
			return Input{Text: "no"}
		}
	}
	return Input{}
}
