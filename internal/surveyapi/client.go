// Package surveyapi provides an HTTP client for the remote survey API.
package surveyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xiaot623/formdesk/internal/domain"
)

// DefaultErrorMessage is reported when the API gives no message of its own.
const DefaultErrorMessage = "unable to call the api"

// Client is an HTTP client for the survey API.
type Client struct {
	baseURL    string
	referer    string
	httpClient *http.Client
}

// NewClient creates a new survey API client. referer is sent on the public
// survey endpoints so the API can resolve the survey host.
func NewClient(baseURL, referer string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		referer: referer,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// envelope is the response body shape of every API endpoint.
type envelope struct {
	Code         int             `json:"code"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data"`
	ErrorDetails string          `json:"error_details"`
}

// Error is a non-200 answer of the survey API.
type Error struct {
	Status  int
	Message string
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("survey api error (%d): %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("survey api error (%d): %s", e.Status, e.Message)
}

// UserMessage returns the text a respondent should see: the error details when
// the API gave some, otherwise its message.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Details != "" {
			return apiErr.Details
		}
		return apiErr.Message
	}
	return DefaultErrorMessage
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, public bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if public && c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}
	return req, nil
}

// do sends req and decodes the envelope's data into out, when out is not nil.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call survey api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read survey api response: %w", err)
	}

	var env envelope
	if jsonErr := json.Unmarshal(respBody, &env); jsonErr != nil {
		if resp.StatusCode != http.StatusOK {
			return &Error{Status: resp.StatusCode, Message: DefaultErrorMessage}
		}
		return fmt.Errorf("invalid response: %w", jsonErr)
	}

	if resp.StatusCode != http.StatusOK {
		msg := env.Message
		if msg == "" {
			msg = DefaultErrorMessage
		}
		return &Error{Status: resp.StatusCode, Message: msg, Details: env.ErrorDetails}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode survey api data: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload interface{}, public bool, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body, public)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// ListSurveys calls GET /app/surveys.
func (c *Client) ListSurveys(ctx context.Context) ([]domain.Survey, error) {
	var surveys []domain.Survey
	if err := c.doJSON(ctx, http.MethodGet, "/app/surveys", nil, false, &surveys); err != nil {
		return nil, err
	}
	return surveys, nil
}

// UpdateDeliveryRequest is the body of a survey update.
type UpdateDeliveryRequest struct {
	DeliveryStatus domain.DeliveryStatus `json:"delivery_status"`
}

// UpdateDelivery calls PATCH /app/surveys/:survey_uuid.
func (c *Client) UpdateDelivery(ctx context.Context, surveyUUID string, status domain.DeliveryStatus) (*domain.Survey, error) {
	var survey domain.Survey
	path := "/app/surveys/" + url.PathEscape(surveyUUID)
	if err := c.doJSON(ctx, http.MethodPatch, path, UpdateDeliveryRequest{DeliveryStatus: status}, false, &survey); err != nil {
		return nil, err
	}
	return &survey, nil
}

// ListSessions calls GET /app/surveys/:survey_uuid/sessions with the filter
// encoded as the query string.
func (c *Client) ListSessions(ctx context.Context, surveyUUID string, filter domain.SessionsFilter) (*domain.SessionsPage, error) {
	var page domain.SessionsPage
	path := fmt.Sprintf("/app/surveys/%s/sessions?%s", url.PathEscape(surveyUUID), filter.Query())
	if err := c.doJSON(ctx, http.MethodGet, path, nil, false, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DeleteSession calls DELETE /app/surveys/:survey_uuid/sessions/:session_uuid.
func (c *Client) DeleteSession(ctx context.Context, surveyUUID, sessionUUID string) error {
	path := fmt.Sprintf("/app/surveys/%s/sessions/%s", url.PathEscape(surveyUUID), url.PathEscape(sessionUUID))
	return c.doJSON(ctx, http.MethodDelete, path, nil, false, nil)
}

// Download calls GET /app/surveys/:survey_uuid/download/:file_name and copies
// the file into w. It returns the number of bytes written.
func (c *Client) Download(ctx context.Context, surveyUUID, fileName string, w io.Writer) (int64, error) {
	path := fmt.Sprintf("/app/surveys/%s/download/%s", url.PathEscape(surveyUUID), url.PathEscape(fileName))
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		var env envelope
		if json.Unmarshal(respBody, &env) == nil && env.Message != "" {
			return 0, &Error{Status: resp.StatusCode, Message: env.Message, Details: env.ErrorDetails}
		}
		return 0, &Error{Status: resp.StatusCode, Message: DefaultErrorMessage}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to copy file: %w", err)
	}
	return n, nil
}

// GetSurvey calls GET /surveys/:url_slug. A survey without a parsed config is
// reported as domain.ErrSurveyNotFound.
func (c *Client) GetSurvey(ctx context.Context, urlSlug string) (*domain.Survey, error) {
	var survey domain.Survey
	if err := c.doJSON(ctx, http.MethodGet, "/surveys/"+url.PathEscape(urlSlug), nil, true, &survey); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSurveyNotFound, urlSlug)
		}
		return nil, err
	}
	if survey.Config == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSurveyNotFound, urlSlug)
	}
	return &survey, nil
}

// SurveyCSS calls GET /surveys/:url_slug/css and returns the stylesheet of a
// survey using the custom theme.
func (c *Client) SurveyCSS(ctx context.Context, urlSlug string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/surveys/"+url.PathEscape(urlSlug)+"/css", nil, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch survey css: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read survey css: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Status: resp.StatusCode, Message: DefaultErrorMessage}
	}
	return body, nil
}

// CreateSession calls PUT /surveys/:url_slug/sessions.
func (c *Client) CreateSession(ctx context.Context, urlSlug string) (*domain.Session, error) {
	var session domain.Session
	path := "/surveys/" + url.PathEscape(urlSlug) + "/sessions"
	if err := c.doJSON(ctx, http.MethodPut, path, struct{}{}, true, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession calls GET /surveys/:url_slug/sessions/:session_uuid.
func (c *Client) GetSession(ctx context.Context, urlSlug, sessionUUID string) (*domain.Session, error) {
	var session domain.Session
	path := fmt.Sprintf("/surveys/%s/sessions/%s", url.PathEscape(urlSlug), url.PathEscape(sessionUUID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func answerPath(urlSlug, sessionUUID, questionUUID string) string {
	return fmt.Sprintf("/surveys/%s/sessions/%s/questions/%s/answers",
		url.PathEscape(urlSlug), url.PathEscape(sessionUUID), url.PathEscape(questionUUID))
}

// SubmitAnswer posts a JSON answer and returns the updated session.
func (c *Client) SubmitAnswer(ctx context.Context, urlSlug, sessionUUID, questionUUID string, value domain.AnswerValue) (*domain.Session, error) {
	var session domain.Session
	payload := domain.Answer{Value: value}
	if err := c.doJSON(ctx, http.MethodPost, answerPath(urlSlug, sessionUUID, questionUUID), payload, true, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SubmitFile posts a file answer as multipart form data under the "file"
// field and returns the updated session.
func (c *Client) SubmitFile(ctx context.Context, urlSlug, sessionUUID, questionUUID, fileName string, content io.Reader) (*domain.Session, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, answerPath(urlSlug, sessionUUID, questionUUID), &buf, true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var session domain.Session
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
