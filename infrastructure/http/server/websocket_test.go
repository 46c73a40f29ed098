package server

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"traceforge/auth"
	"traceforge/moderation"
	"traceforge/repositories"
	"traceforge/runtime"
	"traceforge/runtime/workers"
	"traceforge/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// newLiveServer runs the real stack on temporary storage.
func newLiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	messages, err := repositories.NewMessageRepository(db, log)
	req.NoError(err)
	index, err := repositories.OpenSearchIndex(t.TempDir())
	req.NoError(err)
	moderator, err := moderation.NewModerator(moderation.DefaultCensoredWords, moderation.DefaultPlaceholder)
	req.NoError(err)

	issuer := auth.NewTokenIssuer(testSecret, time.Hour)
	hub := runtime.NewHub(64, log)
	registry := runtime.NewRegistry()
	authService := services.NewAuthService(repositories.NewUserRepository(db, log), issuer, log).
		WithHashParams(auth.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	chatService := services.NewChatService(messages, moderator, index, hub, services.DefaultHistoryWindow, log)

	ctx, cancel := context.WithCancel(context.Background())
	fanout := workers.NewFanoutWorker(log, registry, hub.Events(), time.Second)
	go func() { _ = fanout.Run(ctx) }()

	srv := NewServer(Dependencies{
		AuthService: authService,
		ChatService: chatService,
		Issuer:      issuer,
		Registry:    registry,
	}, Options{ConnectionBufferSize: 16}, log)
	httpServer := httptest.NewServer(srv.Router())

	t.Cleanup(func() {
		httpServer.Close()
		cancel()
		_ = index.Close()
		_ = messages.Close()
		_ = db.Close()
	})
	return httpServer
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame Frame) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(frame))
}

// readUntil skips frames until one of the wanted type arrives and returns
// the skipped frames too.
func readUntil(t *testing.T, conn *websocket.Conn, frameType string) (Frame, []Frame) {
	t.Helper()
	var skipped []Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var frame Frame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == frameType {
			return frame, skipped
		}
		skipped = append(skipped, frame)
	}
}

func register(t *testing.T, conn *websocket.Conn, username string) {
	t.Helper()
	send(t, conn, Frame{Type: FrameRegister, Username: username, Password: "pw-" + username})
	authed, _ := readUntil(t, conn, FrameAuth)
	require.Equal(t, username, authed.Username)
	require.NotEmpty(t, authed.Token)
	readUntil(t, conn, FrameHistory)
}

func bodies(messages []MessageResponse) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Body)
	}
	return out
}

func TestWebSocket_AnonymousConnectionStaysOpen(t *testing.T) {
	req := require.New(t)
	srv := newLiveServer(t)
	conn := dial(t, srv)

	send(t, conn, Frame{Type: FrameSend, Body: "hello"})
	errFrame, _ := readUntil(t, conn, FrameError)
	req.NotEmpty(errFrame.Error)

	send(t, conn, Frame{Type: "shout"})
	errFrame, _ = readUntil(t, conn, FrameError)
	req.Contains(errFrame.Error, "shout")

	// The same connection can still authenticate
	register(t, conn, "alice")
}

func TestWebSocket_PrivateMessagesReachOnlyAuthorAndRecipient(t *testing.T) {
	req := require.New(t)
	srv := newLiveServer(t)

	alice, bob, carol := dial(t, srv), dial(t, srv), dial(t, srv)
	register(t, alice, "alice")
	register(t, bob, "bob")
	register(t, carol, "carol")

	send(t, alice, Frame{Type: FrameSend, Body: "  hello everyone  "})
	readUntil(t, alice, FrameHistory)
	send(t, alice, Frame{Type: FrameSend, Body: "@bob this is shit"})
	history, _ := readUntil(t, alice, FrameHistory)
	req.Equal([]string{"hello everyone", "@bob this is ***"}, bodies(history.Messages))
	req.True(history.Messages[1].Private)

	// Bob gets both messages pushed live
	first, _ := readUntil(t, bob, FrameMessage)
	req.Equal("hello everyone", first.Message.Body)
	second, _ := readUntil(t, bob, FrameMessage)
	req.Equal("@bob this is ***", second.Message.Body)

	// Carol only sees the public one, live and in history
	send(t, carol, Frame{Type: FrameHistory})
	carolHistory, pushed := readUntil(t, carol, FrameHistory)
	req.Equal([]string{"hello everyone"}, bodies(carolHistory.Messages))
	for _, f := range pushed {
		if f.Message == nil {
			continue
		}
		req.NotEqual("@bob this is ***", f.Message.Body)
	}
}

func TestWebSocket_DuplicateRegistrationAndLogin(t *testing.T) {
	req := require.New(t)
	srv := newLiveServer(t)

	first := dial(t, srv)
	register(t, first, "dave")

	second := dial(t, srv)
	send(t, second, Frame{Type: FrameRegister, Username: "dave", Password: "other"})
	errFrame, _ := readUntil(t, second, FrameError)
	req.Contains(errFrame.Error, "exists")

	send(t, second, Frame{Type: FrameLogin, Username: "dave", Password: "wrong"})
	readUntil(t, second, FrameError)

	send(t, second, Frame{Type: FrameLogin, Username: "dave", Password: "pw-dave"})
	authed, _ := readUntil(t, second, FrameAuth)
	req.Equal("dave", authed.Username)
}
