// Package console implements the survey list of the admin console.
package console

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xiaot623/formdesk/internal/domain"
	"github.com/xiaot623/formdesk/internal/policy"
	"github.com/xiaot623/formdesk/internal/surveyapi"
)

// MsgLoadSurveysFailed is shown when the survey list cannot be fetched.
const MsgLoadSurveysFailed = "Unable to load surveys"

// SurveysAPI is the part of the survey API the survey list needs.
type SurveysAPI interface {
	ListSurveys(ctx context.Context) ([]domain.Survey, error)
	UpdateDelivery(ctx context.Context, surveyUUID string, status domain.DeliveryStatus) (*domain.Survey, error)
}

// PolicyEvaluator decides the delivery actions of a survey.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, survey *domain.Survey) (policy.Decision, error)
}

var parseStatusColors = map[domain.ParseStatus]string{
	domain.ParseStatusSuccess: "success",
	domain.ParseStatusError:   "failure",
	domain.ParseStatusDeleted: "warning",
}

// SurveyRow is one line of the survey list.
type SurveyRow struct {
	UUID               string                `json:"uuid"`
	Name               string                `json:"name"`
	Title              string                `json:"title,omitempty"`
	CreatedOn          string                `json:"created_on"`
	ParseStatus        domain.ParseStatus    `json:"parse_status"`
	BadgeColor         string                `json:"badge_color"`
	ErrorLog           string                `json:"error_log,omitempty"`
	DeliveryStatus     domain.DeliveryStatus `json:"delivery_status"`
	Action             policy.Action         `json:"action"`
	PublicURL          string                `json:"public_url,omitempty"`
	ResponsesURL       string                `json:"responses_url"`
	CompletedResponses int                   `json:"completed_responses"`
	CompletionRate     string                `json:"completion_rate"`
}

// Surveys builds the survey list.
type Surveys struct {
	api    SurveysAPI
	policy PolicyEvaluator
	logger *zap.Logger
}

// NewSurveys creates the survey list view.
func NewSurveys(api SurveysAPI, pe PolicyEvaluator, logger *zap.Logger) *Surveys {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Surveys{api: api, policy: pe, logger: logger}
}

// Rows fetches every survey and returns one row per survey.
func (s *Surveys) Rows(ctx context.Context) ([]SurveyRow, error) {
	surveys, err := s.api.ListSurveys(ctx)
	if err != nil {
		s.logger.Warn("failed to list surveys", zap.Error(err))
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}

	rows := make([]SurveyRow, 0, len(surveys))
	for i := range surveys {
		row, err := s.row(ctx, &surveys[i])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Surveys) row(ctx context.Context, survey *domain.Survey) (SurveyRow, error) {
	decision, err := s.policy.Evaluate(ctx, survey)
	if err != nil {
		return SurveyRow{}, fmt.Errorf("failed to evaluate delivery policy for %s: %w", survey.UUID, err)
	}

	row := SurveyRow{
		UUID:               survey.UUID,
		Name:               survey.Name,
		CreatedOn:          survey.CreatedAt.Format("Jan 2, 2006"),
		ParseStatus:        survey.ParseStatus,
		BadgeColor:         parseStatusColors[survey.ParseStatus],
		DeliveryStatus:     survey.DeliveryStatus,
		Action:             decision.Action,
		ResponsesURL:       fmt.Sprintf("/app/surveys/%s/responses", survey.UUID),
		CompletedResponses: survey.Stats.SessionsCountCompleted,
		CompletionRate:     fmt.Sprintf("%d %%", survey.Stats.CompletionRate),
	}
	if survey.Config != nil {
		row.Title = survey.Config.Title
	}
	if survey.ParseStatus == domain.ParseStatusError {
		row.ErrorLog = survey.ErrorLog
	}
	if decision.ShareLink {
		row.PublicURL = survey.URL
	}
	return row, nil
}

// SetDelivery switches a survey's delivery status. The returned message is
// the API's error text, ready to show next to the row.
func (s *Surveys) SetDelivery(ctx context.Context, surveyUUID string, status domain.DeliveryStatus) (string, error) {
	if status != domain.DeliveryStatusLaunched && status != domain.DeliveryStatusStopped {
		return "invalid delivery status", fmt.Errorf("invalid delivery status: %s", status)
	}

	if _, err := s.api.UpdateDelivery(ctx, surveyUUID, status); err != nil {
		s.logger.Warn("failed to update survey delivery",
			zap.String("survey_uuid", surveyUUID),
			zap.String("delivery_status", string(status)),
			zap.Error(err))
		return surveyapi.UserMessage(err), fmt.Errorf("failed to update delivery: %w", err)
	}

	s.logger.Info("survey delivery updated",
		zap.String("survey_uuid", surveyUUID),
		zap.String("delivery_status", string(status)))
	return "", nil
}

// Apply runs a row action on a survey.
func (s *Surveys) Apply(ctx context.Context, surveyUUID string, action policy.Action) (string, error) {
	status, ok := action.Target()
	if !ok {
		return "no action available", fmt.Errorf("action %q changes nothing", action)
	}
	return s.SetDelivery(ctx, surveyUUID, status)
}
