package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/formdesk/internal/console"
	"github.com/xiaot623/formdesk/internal/domain"
)

// ListSurveys returns the survey list.
// GET /app/surveys
func (h *Handler) ListSurveys(c echo.Context) error {
	rows, err := h.surveys.Rows(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusBadGateway, console.MsgLoadSurveysFailed)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"surveys": rows,
	})
}

// UpdateDeliveryRequest is the body of a delivery status change.
type UpdateDeliveryRequest struct {
	DeliveryStatus domain.DeliveryStatus `json:"delivery_status"`
}

// UpdateDelivery launches or stops a survey.
// PATCH /app/surveys/:survey_uuid
func (h *Handler) UpdateDelivery(c echo.Context) error {
	surveyUUID := c.Param("survey_uuid")
	var req UpdateDeliveryRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	switch req.DeliveryStatus {
	case domain.DeliveryStatusLaunched, domain.DeliveryStatusStopped:
	default:
		return errorJSON(c, http.StatusBadRequest, "delivery_status must be launched or stopped")
	}

	if msg, err := h.surveys.SetDelivery(c.Request().Context(), surveyUUID, req.DeliveryStatus); err != nil {
		return errorJSON(c, http.StatusBadGateway, msg)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"survey_uuid":     surveyUUID,
		"delivery_status": req.DeliveryStatus,
	})
}
