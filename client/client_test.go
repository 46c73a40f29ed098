package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"traceforge/errors"
	"traceforge/infrastructure/http/server"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// script answers each received frame with the frames it returns.
type script func(frame server.Frame) []server.Frame

func newFakeServer(t *testing.T, handle script) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var frame server.Frame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			for _, reply := range handle(frame) {
				if err := conn.WriteJSON(reply); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func response(seq uint64, author, body string) server.MessageResponse {
	return server.MessageResponse{
		Seq:       seq,
		ID:        uuid.NewString(),
		Author:    author,
		Body:      body,
		Private:   strings.HasPrefix(body, "@"),
		CreatedAt: time.Now().UTC(),
	}
}

func dial(t *testing.T, url string) (*Client, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	c, err := Dial(ctx, url, logs.GetLoggerFromString("DEBUG"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, ctx
}

func TestClient_Login_MergesLiveAndHistory(t *testing.T) {
	req := require.New(t)
	first, second := response(1, "alice", "hello"), response(2, "bob", "hi")
	url := newFakeServer(t, func(frame server.Frame) []server.Frame {
		if frame.Type != server.FrameLogin {
			return []server.Frame{{Type: server.FrameError, Error: "unexpected"}}
		}
		return []server.Frame{
			{Type: server.FrameMessage, Message: &second},
			{Type: server.FrameAuth, Username: frame.Username, Token: "token"},
			{Type: server.FrameHistory, Messages: []server.MessageResponse{first, second}},
		}
	})
	c, ctx := dial(t, url)

	req.NoError(c.Login(ctx, "bob", "secret"))

	req.Equal("bob", c.Username())
	req.Equal("token", c.Token())
	messages := c.Messages()
	req.Len(messages, 2)
	req.Equal(uint64(1), messages[0].Seq)
	req.Equal(uint64(2), messages[1].Seq)
}

func TestClient_Login_Rejected(t *testing.T) {
	req := require.New(t)
	url := newFakeServer(t, func(server.Frame) []server.Frame {
		return []server.Frame{{Type: server.FrameError, Error: "invalid credentials"}}
	})
	c, ctx := dial(t, url)

	err := c.Login(ctx, "bob", "wrong")

	req.ErrorIs(err, errors.ErrRejected)
	req.Contains(err.Error(), "invalid credentials")
	req.Empty(c.Username())
}

func TestClient_Next_SkipsKnownMessages(t *testing.T) {
	req := require.New(t)
	known, fresh := response(1, "alice", "hello"), response(2, "alice", "@bob psst")
	url := newFakeServer(t, func(frame server.Frame) []server.Frame {
		return []server.Frame{
			{Type: server.FrameAuth, Username: frame.Username},
			{Type: server.FrameHistory, Messages: []server.MessageResponse{known}},
			{Type: server.FrameMessage, Message: &known},
			{Type: server.FrameMessage, Message: &fresh},
		}
	})
	c, ctx := dial(t, url)
	req.NoError(c.Register(ctx, "bob", "secret"))

	message, err := c.Next(ctx)

	req.NoError(err)
	req.Equal(uint64(2), message.Seq)
	req.True(message.IsPrivate())
	req.Len(c.Messages(), 2)
}

func TestClient_Search_LeavesTimelineAlone(t *testing.T) {
	req := require.New(t)
	hit := response(7, "alice", "deploy done")
	url := newFakeServer(t, func(frame server.Frame) []server.Frame {
		if frame.Query != "deploy" {
			return []server.Frame{{Type: server.FrameError, Error: "unexpected query"}}
		}
		return []server.Frame{{Type: server.FrameSearch, Messages: []server.MessageResponse{hit}}}
	})
	c, ctx := dial(t, url)

	results, err := c.Search(ctx, "deploy")

	req.NoError(err)
	req.Len(results, 1)
	req.Equal("deploy done", results[0].Body)
	req.Empty(c.Messages())
}

func TestClient_Next_HonoursContext(t *testing.T) {
	req := require.New(t)
	url := newFakeServer(t, func(server.Frame) []server.Frame { return nil })
	c, _ := dial(t, url)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Next(ctx)

	req.ErrorIs(err, context.DeadlineExceeded)
}
