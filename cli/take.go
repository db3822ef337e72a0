package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xiaot623/formdesk/internal/form"
	"github.com/xiaot623/formdesk/internal/protocol"
)

var (
	formAddr     string
	respondentID string
)

var takeCmd = &cobra.Command{
	Use:   "take <url_slug>",
	Short: "Answer a survey interactively",
	Long: `Connects to the form server and walks through a survey.

Type an answer and press Enter. Separate multiple choices and rankings with
commas; answer yes/no questions with yes or no. Commands:
  /file <path>  upload a file answer
  /back         previous answered question
  /forward      next answered question
  /restart      forget the session and start over
  /quit         exit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := NewClient(formAddr)
		if err != nil {
			return err
		}
		defer client.Close()

		go func() {
			<-cmd.Context().Done()
			client.Close()
		}()

		view, err := client.Hello(args[0], respondentID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Respondent: %s (pass --respondent to resume later)\n", client.respondentID)
		return client.Loop(cmd.InOrStdin(), cmd.OutOrStdout(), view)
	},
}

// Client is a form WebSocket client.
type Client struct {
	conn         *websocket.Conn
	sessionID    string
	respondentID string
}

// NewClient creates a new client and connects to the server.
func NewClient(addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// reply is any server message.
type reply struct {
	protocol.ViewMessage
	Code string `json:"code"`
}

// request sends v and returns the reply carrying its request id. Views
// pushed by other tabs of the session meanwhile are skipped, since the reply
// shows the latest state.
func (c *Client) request(v interface{}) (*reply, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var sent protocol.BaseMessage
	if err := json.Unmarshal(data, &sent); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	for {
		r, err := c.read()
		if err != nil {
			return nil, err
		}
		if sent.RequestID != "" && r.RequestID != sent.RequestID {
			logger.Debug("skipped", zap.String("type", r.Type), zap.String("request_id", r.RequestID))
			continue
		}
		if r.SessionID != "" {
			c.sessionID = r.SessionID
		}
		return r, nil
	}
}

func (c *Client) read() (*reply, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	var r reply
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	logger.Debug("received", zap.String("type", r.Type), zap.String("session_id", r.SessionID))
	return &r, nil
}

func (c *Client) base(msgType string) protocol.BaseMessage {
	return protocol.NewBase(msgType, uuid.New().String(), c.sessionID)
}

// target addresses a message to the question on screen.
func (c *Client) target(msgType string, q *form.QuestionView) protocol.TargetMessage {
	msg := protocol.TargetMessage{BaseMessage: c.base(msgType)}
	if q != nil {
		msg.QuestionUUID = q.UUID
	}
	return msg
}

// Hello opens a survey and returns the first view.
func (c *Client) Hello(urlSlug, respondent string) (*reply, error) {
	r, err := c.request(protocol.HelloMessage{
		BaseMessage:  c.base(protocol.TypeHello),
		URLSlug:      urlSlug,
		RespondentID: respondent,
	})
	if err != nil {
		return nil, err
	}
	if r.Type == protocol.TypeError {
		return nil, fmt.Errorf("hello failed: %s - %s", r.Code, r.Message)
	}
	c.respondentID = r.RespondentID
	return r, nil
}

// Loop renders views and sends what the respondent types until the survey
// ends or input runs out.
func (c *Client) Loop(in io.Reader, out io.Writer, view *reply) error {
	scanner := bufio.NewScanner(in)
	var (
		current *form.QuestionView
		kind    string
	)

	for {
		if view.Type == protocol.TypeError {
			fmt.Fprintf(out, "! %s\n", view.Message)
		} else {
			kind = view.Type
			current = render(out, view, current)
		}
		switch kind {
		case protocol.TypeCompleted:
			return nil
		case protocol.TypeIntro:
			fmt.Fprint(out, "Press Enter to start (/quit to exit) ")
		case protocol.TypeExhausted:
			fmt.Fprint(out, "/restart to try again (/quit to exit) ")
		default:
			fmt.Fprint(out, "> ")
		}

		if !scanner.Scan() {
			return scanner.Err()
		}
		msg, quit, err := c.command(strings.TrimSpace(scanner.Text()), kind, current)
		if quit {
			fmt.Fprintln(out, "Bye!")
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		if view, err = c.request(msg); err != nil {
			return err
		}
	}
}

// command turns a typed line into the message to send.
func (c *Client) command(line, viewType string, q *form.QuestionView) (interface{}, bool, error) {
	switch {
	case line == "/quit":
		return nil, true, nil
	case line == "/back":
		return c.target(protocol.TypeBack, q), false, nil
	case line == "/forward":
		return c.target(protocol.TypeForward, q), false, nil
	case line == "/restart":
		return c.base(protocol.TypeRestart), false, nil
	case strings.HasPrefix(line, "/file "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/file "))
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, false, err
		}
		return protocol.FileMessage{
			TargetMessage: c.target(protocol.TypeFile, q),
			FileName:      filepath.Base(path),
			Content:       content,
		}, false, nil
	case viewType == protocol.TypeIntro:
		return c.base(protocol.TypeStart), false, nil
	}

	value, err := answerValue(line, q)
	if err != nil {
		return nil, false, err
	}
	return protocol.AnswerMessage{TargetMessage: c.target(protocol.TypeAnswer, q), Value: value}, false, nil
}

// answerValue encodes a typed line for the current question. An empty line
// keeps the pre-filled answer.
func answerValue(line string, q *form.QuestionView) (json.RawMessage, error) {
	if q == nil {
		return nil, fmt.Errorf("no question to answer")
	}
	if line == "" {
		if q.Prefill.IsEmpty() {
			return nil, fmt.Errorf("type an answer")
		}
		if len(q.Prefill.List) > 0 {
			return json.Marshal(q.Prefill.List)
		}
		line = q.Prefill.Text
	}

	switch q.Type {
	case "multiple-choice", "ranking":
		var items []string
		for _, item := range strings.Split(line, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return json.Marshal(items)
	}
	return json.Marshal(line)
}

// render prints a view and returns the question it shows, if any.
func render(out io.Writer, view *reply, current *form.QuestionView) *form.QuestionView {
	switch view.Type {
	case protocol.TypeIntro:
		fmt.Fprintf(out, "\n%s\n\n%s\n\n", view.Title, view.Intro)
		if view.Error != "" {
			fmt.Fprintf(out, "! %s\n", view.Error)
		}
		return nil
	case protocol.TypeCompleted, protocol.TypeExhausted:
		fmt.Fprintf(out, "\n%s\n", view.Message)
		return nil
	}

	var q form.QuestionView
	if err := json.Unmarshal(view.Question, &q); err != nil {
		fmt.Fprintf(out, "! unreadable question: %v\n", err)
		return current
	}
	fmt.Fprintf(out, "\n[%d of %d] %s\n", q.Position, q.Total, q.Label)
	if q.Description != "" {
		fmt.Fprintln(out, q.Description)
	}
	for i, opt := range q.Options {
		fmt.Fprintf(out, "  %d. %s\n", i+1, opt)
	}
	if len(q.Scale) > 0 {
		fmt.Fprintf(out, "  rate %d to %d\n", q.Scale[0], q.Scale[len(q.Scale)-1])
	}
	if !q.Prefill.IsEmpty() {
		prefill := q.Prefill.Text
		if len(q.Prefill.List) > 0 {
			prefill = strings.Join(q.Prefill.List, ", ")
		}
		fmt.Fprintf(out, "  current: %s (Enter to keep)\n", prefill)
	}
	if view.Error != "" {
		fmt.Fprintf(out, "! %s\n", view.Error)
	}
	return &q
}
