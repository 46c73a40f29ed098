package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"traceforge/errors"
	"traceforge/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	FrameLogin    = "login"
	FrameRegister = "register"
	FrameSend     = "send"
	FrameHistory  = "history"
	FrameSearch   = "search"
	FrameAuth     = "auth"
	FrameMessage  = "message"
	FrameError    = "error"

	writeWait = 10 * time.Second
)

// Frame is both the client request and the server push on /ws.
type Frame struct {
	Type     string            `json:"type"`
	Username string            `json:"username,omitempty"`
	Password string            `json:"password,omitempty"`
	Body     string            `json:"body,omitempty"`
	Query    string            `json:"query,omitempty"`
	Token    string            `json:"token,omitempty"`
	Message  *MessageResponse  `json:"message,omitempty"`
	Messages []MessageResponse `json:"messages,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// newUpgrader accepts the configured origins. Requests without an Origin
// header come from non-browser clients and are accepted.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowedMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedMap[origin] = true
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowedMap["*"] || allowedMap[origin]
		},
	}
}

// HandleWebSocket serves GET /ws. One connection is one session: it starts
// anonymous, is bound to a user by a login or register frame, and is closed
// with the connection.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	connectionID := uuid.NewString()
	sess := session.New(connectionID, s.deps.AuthService, s.deps.ChatService, s.log)
	sink := newConnectionSink(sess, s.opts.ConnectionBufferSize)
	s.deps.Registry.Subscribe(connectionID, sink)

	ctx, cancel := context.WithCancel(r.Context())
	out := make(chan Frame, s.opts.ConnectionBufferSize)
	writerDone := make(chan struct{})

	defer func() {
		s.deps.Registry.Unsubscribe(connectionID)
		sess.Close()
		cancel()
		<-writerDone
		_ = conn.Close()
		s.log.Debug("WebSocket disconnected", "session_id", connectionID)
	}()

	go s.writeLoop(ctx, conn, sink, out, writerDone)

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("WebSocket read failed", "session_id", connectionID, "error", err)
			}
			return
		}
		for _, reply := range s.handleFrame(ctx, sess, frame) {
			select {
			case out <- reply:
			case <-ctx.Done():
				return
			}
		}
	}
}

// writeLoop is the only goroutine writing to conn.
func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, sink *connectionSink, out <-chan Frame, done chan<- struct{}) {
	defer close(done)
	write := func(frame Frame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			s.log.Debug("WebSocket write failed", "error", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case frame := <-out:
			if !write(frame) {
				_ = conn.Close()
				return
			}
		case m := <-sink.events:
			message := toMessageResponse(m)
			if !write(Frame{Type: FrameMessage, Message: &message}) {
				_ = conn.Close()
				return
			}
		}
	}
}

// handleFrame never returns an error: failures are reported to the client
// and the connection stays open.
func (s *Server) handleFrame(ctx context.Context, sess *session.Session, frame Frame) []Frame {
	switch frame.Type {
	case FrameLogin:
		if err := sess.Login(frame.Username, frame.Password); err != nil {
			if stderrors.Is(err, errors.ErrInvalidCredentials) {
				s.loginFailed()
			}
			return []Frame{errorFrame(err)}
		}
		return []Frame{authFrame(sess), s.historyFrame(sess)}
	case FrameRegister:
		if err := sess.Register(frame.Username, frame.Password); err != nil {
			return []Frame{errorFrame(err)}
		}
		return []Frame{authFrame(sess), s.historyFrame(sess)}
	case FrameSend:
		_, sent, err := sess.Send(ctx, frame.Body)
		if err != nil {
			return []Frame{errorFrame(err)}
		}
		if sent {
			s.messageSent()
		}
		return []Frame{s.historyFrame(sess)}
	case FrameHistory:
		return []Frame{s.historyFrame(sess)}
	case FrameSearch:
		messages, err := sess.Search(ctx, frame.Query)
		if err != nil {
			return []Frame{errorFrame(err)}
		}
		return []Frame{{Type: FrameSearch, Messages: toMessagesResponse(messages)}}
	default:
		return []Frame{{Type: FrameError, Error: "unknown frame type " + frame.Type}}
	}
}

func (s *Server) historyFrame(sess *session.Session) Frame {
	messages, err := sess.History()
	if err != nil {
		return errorFrame(err)
	}
	return Frame{Type: FrameHistory, Messages: toMessagesResponse(messages)}
}

func authFrame(sess *session.Session) Frame {
	return Frame{Type: FrameAuth, Username: sess.Username(), Token: sess.Token()}
}

func errorFrame(err error) Frame {
	return Frame{Type: FrameError, Error: errors.Message(err)}
}
