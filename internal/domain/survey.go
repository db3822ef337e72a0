package domain

import "time"

// Survey is a survey as returned by the survey API.
type Survey struct {
	UUID           string         `json:"uuid"`
	CreatedAt      time.Time      `json:"created_at"`
	Name           string         `json:"name"`
	ParseStatus    ParseStatus    `json:"parse_status"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	ErrorLog       string         `json:"error_log"`
	URL            string         `json:"url"`
	URLSlug        string         `json:"url_slug"`
	Config         *SurveyConfig  `json:"config"`
	Stats          SurveyStats    `json:"stats"`
	Sessions       []Session      `json:"sessions,omitempty"`
	PagesCount     int            `json:"pages_count,omitempty"`
}

// SurveyStats are the response counters of a survey.
type SurveyStats struct {
	SessionsCountInProgress int `json:"sessions_count_in_progress"`
	SessionsCountCompleted  int `json:"sessions_count_completed"`
	CompletionRate          int `json:"completion_rate"`
}

// SurveyConfig is the parsed definition of a survey.
type SurveyConfig struct {
	Title     string     `json:"title"`
	Intro     string     `json:"intro"`
	Outro     string     `json:"outro"`
	Theme     string     `json:"theme"`
	Questions *Questions `json:"questions"`
}

// Questions wraps the ordered question list.
type Questions struct {
	Questions []Question `json:"questions"`
}

// Question is one question of a survey. UUID is its stable identifier.
type Question struct {
	ID          string       `json:"id"`
	UUID        string       `json:"uuid"`
	Type        QuestionType `json:"type"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
	Options     []string     `json:"options,omitempty"`
	Min         *int         `json:"min,omitempty"`
	Max         *int         `json:"max,omitempty"`
}

// QuestionList returns the ordered questions of the survey, or nil when the
// survey has no parsed config.
func (s *Survey) QuestionList() []Question {
	if s == nil || s.Config == nil || s.Config.Questions == nil {
		return nil
	}
	return s.Config.Questions.Questions
}

// FindQuestion returns the question with the given uuid.
func (s *Survey) FindQuestion(questionUUID string) (*Question, error) {
	for _, q := range s.QuestionList() {
		if q.UUID == questionUUID {
			question := q
			return &question, nil
		}
	}
	return nil, ErrQuestionNotFound
}

// IsLaunched reports whether the survey accepts respondents.
func (s *Survey) IsLaunched() bool {
	return s.DeliveryStatus == DeliveryStatusLaunched
}

// MaxRatingScale is the largest number of choices a rating question offers.
const MaxRatingScale = 100

// RatingScale returns the selectable numbers of a rating question, from Min to
// Max inclusive. It is empty unless both bounds are set and span at most
// MaxRatingScale numbers.
func (q Question) RatingScale() []int {
	if q.Min == nil || q.Max == nil || *q.Max < *q.Min {
		return nil
	}
	// Max >= Min, so the unsigned difference is exact.
	span := uint64(*q.Max) - uint64(*q.Min)
	if span >= MaxRatingScale {
		return nil
	}
	numbers := make([]int, 0, span+1)
	for i := uint64(0); i <= span; i++ {
		numbers = append(numbers, *q.Min+int(i))
	}
	return numbers
}
