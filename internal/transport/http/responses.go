package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/formdesk/internal/domain"
	"github.com/xiaot623/formdesk/internal/responses"
	"github.com/xiaot623/formdesk/internal/surveyapi"
)

// ExportFileName names the attachment of a responses export.
const ExportFileName = "survey_responses.json"

// ResponsesPage is one page of the responses table.
type ResponsesPage struct {
	SurveyUUID     string           `json:"survey_uuid"`
	SurveyName     string           `json:"survey_name,omitempty"`
	Page           int              `json:"page"`
	SortBy         string           `json:"sort_by"`
	Order          domain.SortOrder `json:"order"`
	PagesCount     int              `json:"pages_count"`
	ShowPagination bool             `json:"show_pagination"`
	Rows           []responses.Row  `json:"rows"`
}

func pageOf(surveyUUID string, e *responses.Explorer) ResponsesPage {
	p := ResponsesPage{
		SurveyUUID:     surveyUUID,
		Page:           e.Page(),
		SortBy:         e.SortBy(),
		Order:          e.Order(),
		PagesCount:     e.PagesCount(),
		ShowPagination: e.ShowPagination(),
		Rows:           e.TableRows(),
	}
	if s := e.Survey(); s != nil {
		p.SurveyName = s.Name
	}
	return p
}

// ListResponses returns one page of a survey's sessions.
// GET /app/surveys/:survey_uuid/responses?page=&sort_by=&order=
func (h *Handler) ListResponses(c echo.Context) error {
	surveyUUID := c.Param("survey_uuid")

	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return errorJSON(c, http.StatusBadRequest, "page must be a positive integer")
		}
		page = n
	}
	sortBy := c.QueryParam("sort_by")
	order := domain.SortOrder(c.QueryParam("order"))

	filter := domain.PageFilter(page, sortBy, order)
	if err := filter.Validate(); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	e := responses.NewExplorer(h.api, surveyUUID, h.logger)
	if err := e.FetchPage(c.Request().Context(), page, filter.SortBy, filter.Order); err != nil {
		return errorJSON(c, http.StatusBadGateway, e.ErrorMessage())
	}
	return c.JSON(http.StatusOK, pageOf(surveyUUID, e))
}

// ResponseDetail is the detail view of one session.
type ResponseDetail struct {
	SessionUUID string                `json:"session_uuid"`
	Status      string                `json:"status"`
	StartedAt   string                `json:"started_at"`
	CompletedAt string                `json:"completed_at"`
	Answers     []responses.AnswerRow `json:"answers"`
}

// GetResponse returns the answers of one session.
// GET /app/surveys/:survey_uuid/responses/:session_uuid
func (h *Handler) GetResponse(c echo.Context) error {
	surveyUUID := c.Param("survey_uuid")
	sessionUUID := c.Param("session_uuid")

	e := responses.NewExplorer(h.api, surveyUUID, h.logger)
	survey, session, err := e.Find(c.Request().Context(), sessionUUID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return errorJSON(c, http.StatusNotFound, "response not found")
	}
	if err != nil {
		return errorJSON(c, http.StatusBadGateway, e.ErrorMessage())
	}

	return c.JSON(http.StatusOK, ResponseDetail{
		SessionUUID: session.UUID,
		Status:      responses.StatusLabel(session.Status),
		StartedAt:   responses.FormatTime(&session.CreatedAt),
		CompletedAt: responses.FormatTime(session.CompletedAt),
		Answers:     responses.View(survey, *session),
	})
}

// DeleteResponse deletes a session and returns the first page again.
// DELETE /app/surveys/:survey_uuid/responses/:session_uuid
func (h *Handler) DeleteResponse(c echo.Context) error {
	surveyUUID := c.Param("survey_uuid")
	sessionUUID := c.Param("session_uuid")

	e := responses.NewExplorer(h.api, surveyUUID, h.logger)
	if err := e.Delete(c.Request().Context(), sessionUUID); err != nil {
		return errorJSON(c, http.StatusBadGateway, e.ErrorMessage())
	}
	return c.JSON(http.StatusOK, pageOf(surveyUUID, e))
}

// ExportResponses returns every session of a survey as a JSON attachment.
// GET /app/surveys/:survey_uuid/export
func (h *Handler) ExportResponses(c echo.Context) error {
	surveyUUID := c.Param("survey_uuid")

	e := responses.NewExplorer(h.api, surveyUUID, h.logger)
	var buf bytes.Buffer
	if err := e.Export(c.Request().Context(), &buf); err != nil {
		return errorJSON(c, http.StatusBadGateway, e.ErrorMessage())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+ExportFileName+`"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, buf.Bytes())
}

// DownloadFile streams a file uploaded as an answer.
// GET /app/surveys/:survey_uuid/download/:file_name
func (h *Handler) DownloadFile(c echo.Context) error {
	surveyUUID := c.Param("survey_uuid")
	name := responses.FileName(c.Param("file_name"))

	res := c.Response()
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	res.Header().Set(echo.HeaderContentType, echo.MIMEOctetStream)

	e := responses.NewExplorer(h.api, surveyUUID, h.logger)
	if err := e.Download(c.Request().Context(), name, res); err != nil {
		if res.Committed {
			// Headers are gone; the client sees a truncated body.
			return nil
		}
		res.Header().Del(echo.HeaderContentDisposition)
		res.Header().Del(echo.HeaderContentType)
		status := http.StatusBadGateway
		if surveyapi.IsNotFound(err) {
			status = http.StatusNotFound
		}
		return errorJSON(c, status, e.ErrorMessage())
	}
	if !res.Committed {
		res.WriteHeader(http.StatusOK)
	}
	return nil
}
