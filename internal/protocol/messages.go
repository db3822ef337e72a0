// Package protocol defines the WebSocket message protocol between survey
// respondents and the form server.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// Message types from client to server
const (
	TypeHello   = "hello"
	TypeStart   = "start"
	TypeAnswer  = "answer"
	TypeFile    = "file"
	TypeBack    = "back"
	TypeForward = "forward"
	TypeRestart = "restart"
)

// Message types from server to client
const (
	TypeIntro     = "intro"
	TypeQuestion  = "question"
	TypeCompleted = "completed"
	TypeExhausted = "exhausted"
	TypeError     = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// NewBase returns a BaseMessage stamped with the current time.
func NewBase(msgType, requestID, sessionID string) BaseMessage {
	return BaseMessage{
		Type:      msgType,
		Ts:        time.Now().UnixMilli(),
		RequestID: requestID,
		SessionID: sessionID,
	}
}

// HelloMessage is sent by the client to open a survey.
type HelloMessage struct {
	BaseMessage
	URLSlug      string `json:"url_slug"`
	RespondentID string `json:"respondent_id,omitempty"`
}

// TargetMessage is a back, forward, answer or file message. QuestionUUID names
// the question the client has on screen, and SessionID the session it shows.
type TargetMessage struct {
	BaseMessage
	QuestionUUID string `json:"question_uuid,omitempty"`
}

// AnswerMessage submits the answer to the current question. Value is a string,
// a number, a boolean or a list of strings.
type AnswerMessage struct {
	TargetMessage
	Value json.RawMessage `json:"value"`
}

// FileMessage uploads a file as the answer to the current question.
// Content is base64 encoded by encoding/json.
type FileMessage struct {
	TargetMessage
	FileName string `json:"file_name"`
	Content  []byte `json:"content"`
}

// ViewMessage is sent by the server whenever the form changes screen. Its
// type is one of intro, question, completed or exhausted.
// RespondentID is only set in the reply to hello.
type ViewMessage struct {
	BaseMessage
	RespondentID string          `json:"respondent_id,omitempty"`
	Title        string          `json:"title,omitempty"`
	Intro        string          `json:"intro,omitempty"`
	Message      string          `json:"message,omitempty"`
	Question     json.RawMessage `json:"question,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// ErrorMessage is sent by the server when a message cannot be handled.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeHelloRequired  = "hello_required"
	ErrorCodeSurveyNotFound = "survey_not_found"
	ErrorCodeInvalidAnswer  = "invalid_answer"
	ErrorCodeNotAllowed     = "not_allowed"
	ErrorCodeAPIFail        = "api_fail"
	ErrorCodeInternalError  = "internal_error"
)

// ErrInvalidValue is returned when an answer value has an unsupported shape.
var ErrInvalidValue = errors.New("answer value must be a string, number, boolean or list of strings")

// DecodeValue splits an answer value into a single text or a list. Numbers
// keep their literal form and booleans become "yes" or "no".
func DecodeValue(raw json.RawMessage) (text string, list []string, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil, nil
	}
	switch raw[0] {
	case '"':
		err = json.Unmarshal(raw, &text)
	case '[':
		err = json.Unmarshal(raw, &list)
	case 't', 'f':
		var b bool
		if err = json.Unmarshal(raw, &b); err == nil {
			text = "no"
			if b {
				text = "yes"
			}
		}
	default:
		var n json.Number
		if err = json.Unmarshal(raw, &n); err == nil {
			if _, perr := strconv.ParseFloat(n.String(), 64); perr != nil {
				err = perr
			}
			text = n.String()
		}
	}
	if err != nil {
		return "", nil, ErrInvalidValue
	}
	return text, list, nil
}
