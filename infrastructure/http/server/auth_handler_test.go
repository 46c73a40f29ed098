package server

import (
	"net/http"
	"testing"

	"traceforge/errors"

	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	t.Run("should create the account and return a token", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t, nil)
		ts.authSvc.EXPECT().Register(" alice ", "secret").Return("alice", nil).Times(1)
		ts.authSvc.EXPECT().IssueToken("alice").Return("signed", nil).Times(1)

		w := ts.do(t, http.MethodPost, "/api/register", "", CredentialsRequest{Username: " alice ", Password: "secret"})

		req.Equal(http.StatusCreated, w.Code)
		resp := decodeBody[AuthResponse](t, w)
		req.Equal("alice", resp.Username)
		req.Equal("signed", resp.Token)
	})

	t.Run("should map a taken username to 409", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t, nil)
		ts.authSvc.EXPECT().Register("alice", "secret").Return("", errors.ErrUserAlreadyExists).Times(1)

		w := ts.do(t, http.MethodPost, "/api/register", "", CredentialsRequest{Username: "alice", Password: "secret"})

		req.Equal(http.StatusConflict, w.Code)
		req.Equal(errors.ErrUserAlreadyExists.Error(), decodeBody[errorResponse](t, w).Error)
	})

	t.Run("should reject malformed JSON", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t, nil)

		w := ts.do(t, http.MethodPost, "/api/register", "", map[string]string{"email": "a@b.c"})

		req.Equal(http.StatusBadRequest, w.Code)
	})
}

func TestLogin(t *testing.T) {
	t.Run("should return a token on success", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t, nil)
		ts.authSvc.EXPECT().Verify("bob", "pw").Return(true, nil).Times(1)
		ts.authSvc.EXPECT().IssueToken("bob").Return("signed", nil).Times(1)

		w := ts.do(t, http.MethodPost, "/api/login", "", CredentialsRequest{Username: "bob", Password: "pw"})

		req.Equal(http.StatusOK, w.Code)
		req.Equal("signed", decodeBody[AuthResponse](t, w).Token)
	})

	t.Run("should answer 401 and count the failure", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t, nil)
		ts.authSvc.EXPECT().Verify("bob", "nope").Return(false, nil).Times(1)

		w := ts.do(t, http.MethodPost, "/api/login", "", CredentialsRequest{Username: "bob", Password: "nope"})

		req.Equal(http.StatusUnauthorized, w.Code)
		ts.monitoring.Refresh()
		req.Equal(uint64(1), ts.monitoring.GetLatest().LoginFailures)
	})

	t.Run("should hide storage details", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t, nil)
		ts.authSvc.EXPECT().Verify("bob", "pw").Return(false, errors.ErrStorage).Times(1)

		w := ts.do(t, http.MethodPost, "/api/login", "", CredentialsRequest{Username: "bob", Password: "pw"})

		req.Equal(http.StatusInternalServerError, w.Code)
		req.Equal(errors.ErrStorage.Error(), decodeBody[errorResponse](t, w).Error)
	})
}
