package server

import (
	"net/http"
	"testing"
	"time"

	"traceforge/domain"
	"traceforge/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMessages_RequireToken(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil)

	req.Equal(http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/messages", "", nil).Code)
	req.Equal(http.StatusUnauthorized, ts.do(t, http.MethodPost, "/api/messages", "garbage", PostMessageRequest{Body: "x"}).Code)
	req.Equal(http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/messages/search?q=x", "", nil).Code)
}

func TestGetMessages(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil)
	history := []domain.Message{
		{Seq: 1, ID: uuid.New(), Author: "alice", Body: "hello", CreatedAt: time.Now().UTC()},
		{Seq: 2, ID: uuid.New(), Author: "alice", Body: "@bob psst", CreatedAt: time.Now().UTC()},
	}
	ts.chatSvc.EXPECT().History("bob").Return(history, nil).Times(1)

	w := ts.do(t, http.MethodGet, "/api/messages", ts.token(t, "bob"), nil)

	req.Equal(http.StatusOK, w.Code)
	resp := decodeBody[MessagesResponse](t, w)
	req.Len(resp.Messages, 2)
	req.False(resp.Messages[0].Private)
	req.True(resp.Messages[1].Private)
	req.Equal(history[1].ID.String(), resp.Messages[1].ID)
}

func TestPostMessage(t *testing.T) {
	t.Run("should store and return the filtered message", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t, nil)
		stored := domain.Message{Seq: 3, ID: uuid.New(), Author: "alice", Body: "what the ***"}
		ts.chatSvc.EXPECT().Send(gomock.Any(), "alice", "what the fuck").Return(stored, true, nil).Times(1)

		w := ts.do(t, http.MethodPost, "/api/messages", ts.token(t, "alice"), PostMessageRequest{Body: "what the fuck"})

		req.Equal(http.StatusCreated, w.Code)
		req.Equal("what the ***", decodeBody[MessageResponse](t, w).Body)
		ts.monitoring.Refresh()
		req.Equal(uint64(1), ts.monitoring.GetLatest().MessagesSent)
	})

	t.Run("should answer 204 for a blank body", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t, nil)
		ts.chatSvc.EXPECT().Send(gomock.Any(), "alice", "   ").Return(domain.Message{}, false, nil).Times(1)

		w := ts.do(t, http.MethodPost, "/api/messages", ts.token(t, "alice"), PostMessageRequest{Body: "   "})

		req.Equal(http.StatusNoContent, w.Code)
		req.Empty(w.Body.Bytes())
	})
}

func TestSearchMessages(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t, nil)
	ts.chatSvc.EXPECT().Search(gomock.Any(), "bob", "").Return(nil, errors.ErrInvalidInput).Times(1)
	ts.chatSvc.EXPECT().Search(gomock.Any(), "bob", "deploy").
		Return([]domain.Message{{Seq: 4, Author: "carol", Body: "deploy done"}}, nil).Times(1)

	w := ts.do(t, http.MethodGet, "/api/messages/search", ts.token(t, "bob"), nil)
	req.Equal(http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/messages/search?q=deploy", ts.token(t, "bob"), nil)
	req.Equal(http.StatusOK, w.Code)
	req.Len(decodeBody[MessagesResponse](t, w).Messages, 1)
}
