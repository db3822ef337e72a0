// Package domain defines the survey, session and answer models shared by the
// console and the survey-taking form.
package domain

// ParseStatus is the result of the API parsing a survey definition.
type ParseStatus string

const (
	ParseStatusSuccess ParseStatus = "success"
	ParseStatusError   ParseStatus = "error"
	ParseStatusDeleted ParseStatus = "deleted"
)

// DeliveryStatus tells whether a survey accepts respondents.
type DeliveryStatus string

const (
	DeliveryStatusLaunched DeliveryStatus = "launched"
	DeliveryStatusStopped  DeliveryStatus = "stopped"
)

// SessionStatus represents the status of a survey session.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
)

// QuestionType is the type tag of a question.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "single-choice"
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeShortText      QuestionType = "short-text"
	QuestionTypeLongText       QuestionType = "long-text"
	QuestionTypeDate           QuestionType = "date"
	QuestionTypeRating         QuestionType = "rating"
	QuestionTypeRanking        QuestionType = "ranking"
	QuestionTypeYesNo          QuestionType = "yes-no"
	QuestionTypeEmail          QuestionType = "email"
	QuestionTypeFile           QuestionType = "file"
)

// Themes supported by the survey API.
const (
	ThemeDefault = "default"
	ThemeCustom  = "custom"
)

// SortOrder is the direction of a sessions listing.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Flip returns the opposite order.
func (o SortOrder) Flip() SortOrder {
	if o == OrderAsc {
		return OrderDesc
	}
	return OrderAsc
}
