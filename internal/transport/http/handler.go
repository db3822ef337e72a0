package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/formdesk/internal/console"
	"github.com/xiaot623/formdesk/internal/responses"
)

// SurveyAPI is the part of the survey API the console serves.
type SurveyAPI interface {
	console.SurveysAPI
	responses.SessionsAPI
	SurveyCSS(ctx context.Context, urlSlug string) ([]byte, error)
}

// Handler handles console HTTP requests.
type Handler struct {
	api     SurveyAPI
	surveys *console.Surveys
	logger  *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(api SurveyAPI, pe console.PolicyEvaluator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		api:     api,
		surveys: console.NewSurveys(api, pe, logger),
		logger:  logger,
	}
}

// RegisterRoutes registers console routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Surveys
	e.GET("/app/surveys", h.ListSurveys)
	e.PATCH("/app/surveys/:survey_uuid", h.UpdateDelivery)

	// Responses
	e.GET("/app/surveys/:survey_uuid/responses", h.ListResponses)
	e.GET("/app/surveys/:survey_uuid/responses/:session_uuid", h.GetResponse)
	e.DELETE("/app/surveys/:survey_uuid/responses/:session_uuid", h.DeleteResponse)
	e.GET("/app/surveys/:survey_uuid/export", h.ExportResponses)
	e.GET("/app/surveys/:survey_uuid/download/:file_name", h.DownloadFile)

	// Themes
	e.GET("/surveys/:url_slug/css", h.SurveyCSS)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}
