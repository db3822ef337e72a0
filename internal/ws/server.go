// Package ws serves the survey form over WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/formdesk/internal/config"
	"github.com/xiaot623/formdesk/internal/domain"
	"github.com/xiaot623/formdesk/internal/form"
	"github.com/xiaot623/formdesk/internal/hub"
	"github.com/xiaot623/formdesk/internal/protocol"
	"github.com/xiaot623/formdesk/internal/store"
	"github.com/xiaot623/formdesk/internal/surveyapi"
)

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	api      form.SurveyAPI
	pointers store.Store
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// client is the per-connection state owned by its read loop.
type client struct {
	conn   *hub.Connection
	runner *form.Runner
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, api form.SurveyAPI, pointers store.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		hub:      h,
		api:      api,
		pointers: pointers,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Survey forms are embedded on any site.
				return true
			},
		},
	}
}

// Register mounts the form routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/ws", s.HandleWebSocket)
	e.GET("/health", s.HandleHealth)
}

// HandleHealth reports the number of open connections and sessions.
func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"connections": s.hub.GetConnectionCount(),
		"sessions":    s.hub.GetSessionCount(),
	})
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(&client{conn: conn})

	return nil
}

// readPump reads messages from the WebSocket connection and handles them in
// order.
func (s *Server) readPump(cl *client) {
	conn := cl.conn
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket error", zap.String("conn_id", conn.ID), zap.Error(err))
			}
			break
		}

		s.handleMessage(cl, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write message", zap.String("conn_id", conn.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.hub.Done():
			return
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(cl *client, data []byte) {
	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(cl, "", protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	if base.Type == protocol.TypeHello {
		s.handleHello(cl, base.RequestID, data)
		return
	}
	if cl.runner == nil {
		s.sendError(cl, base.RequestID, protocol.ErrorCodeHelloRequired, "must send hello first")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.APITimeout)
	defer cancel()

	behind := cl.conn.Behind()
	switch base.Type {
	case protocol.TypeAnswer, protocol.TypeFile, protocol.TypeBack, protocol.TypeForward:
		var target protocol.TargetMessage
		if err := json.Unmarshal(data, &target); err != nil {
			s.sendError(cl, base.RequestID, protocol.ErrorCodeInvalidMessage, "invalid "+base.Type+" message")
			return
		}
		if behind || s.stale(cl, target) {
			if !s.refresh(ctx, cl, base.RequestID, target.QuestionUUID) {
				return
			}
		}
	}

	var (
		view form.View
		err  error
	)
	prevSession := cl.runner.SessionID()

	switch base.Type {
	case protocol.TypeStart:
		view, err = cl.runner.Start(ctx)
	case protocol.TypeAnswer:
		var msg protocol.AnswerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(cl, base.RequestID, protocol.ErrorCodeInvalidMessage, "invalid answer message")
			return
		}
		text, list, derr := protocol.DecodeValue(msg.Value)
		if derr != nil {
			s.sendError(cl, base.RequestID, protocol.ErrorCodeInvalidAnswer, derr.Error())
			return
		}
		view, err = cl.runner.Submit(ctx, form.Input{Text: text, List: list})
	case protocol.TypeFile:
		var msg protocol.FileMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(cl, base.RequestID, protocol.ErrorCodeInvalidMessage, "invalid file message")
			return
		}
		view, err = cl.runner.Submit(ctx, form.Input{FileName: msg.FileName, File: msg.Content})
	case protocol.TypeBack:
		view, err = cl.runner.Back()
	case protocol.TypeForward:
		view, err = cl.runner.Forward()
	case protocol.TypeRestart:
		view, err = cl.runner.Restart(ctx)
	default:
		s.sendError(cl, base.RequestID, protocol.ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
		return
	}

	if err != nil && view.Error == "" {
		s.logger.Debug("form action rejected", zap.String("type", base.Type), zap.Error(err))
		s.sendError(cl, base.RequestID, errorCode(err), err.Error())
		return
	}

	msg := viewMessage(view, base.RequestID)
	s.hub.SendJSONToConnection(cl.conn, msg)
	if err != nil {
		return
	}

	// Other tabs of the session follow along.
	if prevSession != "" {
		s.hub.BroadcastJSON(prevSession, cl.conn.ID, viewMessage(view, ""))
	}
	s.hub.BindSession(cl.conn, cl.runner.SessionID())
}

// stale reports whether the client shows another session or question than
// its runner holds.
func (s *Server) stale(cl *client, target protocol.TargetMessage) bool {
	if target.SessionID != "" && target.SessionID != cl.runner.SessionID() {
		return true
	}
	return target.QuestionUUID != "" && target.QuestionUUID != cl.runner.CurrentQuestion()
}

// refresh catches the runner up with the session after other tabs acted. It
// reports whether the message can still be handled.
func (s *Server) refresh(ctx context.Context, cl *client, requestID, questionUUID string) bool {
	view, err := cl.runner.Refresh(ctx, questionUUID)
	if err != nil {
		s.logger.Warn("failed to refresh session", zap.String("conn_id", cl.conn.ID), zap.Error(err))
		if view.Error != "" {
			s.hub.SendJSONToConnection(cl.conn, viewMessage(view, requestID))
		} else {
			s.sendError(cl, requestID, errorCode(err), err.Error())
		}
		return false
	}
	s.hub.BindSession(cl.conn, cl.runner.SessionID())
	return true
}

// handleHello opens the survey and resumes the respondent's session if any.
func (s *Server) handleHello(cl *client, requestID string, data []byte) {
	var msg protocol.HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.URLSlug == "" {
		s.sendError(cl, requestID, protocol.ErrorCodeInvalidMessage, "invalid hello message")
		return
	}

	respondentID := msg.RespondentID
	if respondentID == "" {
		respondentID = uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.APITimeout)
	defer cancel()

	runner, err := form.Open(ctx, s.api, s.pointers, msg.URLSlug, respondentID, s.logger)
	if err != nil {
		s.logger.Info("survey not available", zap.String("url_slug", msg.URLSlug), zap.Error(err))
		s.sendError(cl, requestID, protocol.ErrorCodeSurveyNotFound, "survey not found")
		return
	}

	view, err := runner.Resume(ctx)
	if err != nil {
		s.logger.Error("failed to resume session", zap.String("url_slug", msg.URLSlug), zap.Error(err))
		s.sendError(cl, requestID, protocol.ErrorCodeInternalError, "unable to resume survey")
		return
	}

	cl.runner = runner
	s.hub.BindSession(cl.conn, runner.SessionID())

	reply := viewMessage(view, requestID)
	reply.RespondentID = respondentID
	s.hub.SendJSONToConnection(cl.conn, reply)

	s.logger.Info("survey opened",
		zap.String("url_slug", msg.URLSlug),
		zap.String("respondent_id", respondentID),
		zap.String("session_id", runner.SessionID()))
}

func errorCode(err error) string {
	var apiErr *surveyapi.Error
	switch {
	case errors.Is(err, form.ErrEmptyInput), errors.Is(err, form.ErrInvalidRating),
		errors.Is(err, form.ErrUnsupportedQuestion):
		return protocol.ErrorCodeInvalidAnswer
	case errors.Is(err, form.ErrNotAnswering), errors.Is(err, form.ErrCannotNavigate):
		return protocol.ErrorCodeNotAllowed
	case errors.Is(err, domain.ErrSurveyNotFound):
		return protocol.ErrorCodeSurveyNotFound
	case errors.As(err, &apiErr):
		return protocol.ErrorCodeAPIFail
	}
	return protocol.ErrorCodeInternalError
}

func viewMessage(v form.View, requestID string) protocol.ViewMessage {
	msg := protocol.ViewMessage{
		BaseMessage: protocol.NewBase(string(v.Kind), requestID, v.SessionID),
		Title:       v.Title,
		Intro:       v.Intro,
		Message:     v.Message,
		Error:       v.Error,
	}
	if v.Question != nil {
		// QuestionView only holds plain fields and cannot fail to marshal.
		msg.Question, _ = json.Marshal(v.Question)
	}
	return msg
}

// sendError sends an error message to a connection.
func (s *Server) sendError(cl *client, requestID, code, message string) {
	sessionID := ""
	if cl.runner != nil {
		sessionID = cl.runner.SessionID()
	}
	errMsg := protocol.ErrorMessage{
		BaseMessage: protocol.NewBase(protocol.TypeError, requestID, sessionID),
		Code:        code,
		Message:     message,
	}
	s.hub.SendJSONToConnection(cl.conn, errMsg)
}
