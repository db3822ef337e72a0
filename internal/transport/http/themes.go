package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/formdesk/internal/surveyapi"
)

// SurveyCSS passes through the stylesheet of a custom themed survey.
// GET /surveys/:url_slug/css
func (h *Handler) SurveyCSS(c echo.Context) error {
	slug := c.Param("url_slug")
	css, err := h.api.SurveyCSS(c.Request().Context(), slug)
	if err != nil {
		if surveyapi.IsNotFound(err) {
			return errorJSON(c, http.StatusNotFound, "stylesheet not found")
		}
		h.logger.Warn("failed to fetch survey css", zap.String("url_slug", slug), zap.Error(err))
		return errorJSON(c, http.StatusBadGateway, surveyapi.UserMessage(err))
	}
	return c.Blob(http.StatusOK, "text/css; charset=utf-8", css)
}
