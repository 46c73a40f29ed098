package server

import (
	stderrors "errors"
	"net/http"

	"traceforge/errors"
	"traceforge/session"

	"github.com/google/uuid"
)

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Register creates the account and returns a bearer token for it.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	// One request is one short lived session.
	sess := s.newSession()
	defer sess.Close()
	if err := sess.Register(req.Username, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{Username: sess.Username(), Token: sess.Token()})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess := s.newSession()
	defer sess.Close()
	if err := sess.Login(req.Username, req.Password); err != nil {
		if stderrors.Is(err, errors.ErrInvalidCredentials) {
			s.loginFailed()
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Username: sess.Username(), Token: sess.Token()})
}

func (s *Server) newSession() *session.Session {
	return session.New(uuid.NewString(), s.deps.AuthService, s.deps.ChatService, s.log)
}
