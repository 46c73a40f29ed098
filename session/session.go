package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"traceforge/domain"
	"traceforge/errors"
	"traceforge/services"
)

type State int

const (
	Anonymous State = iota
	Authenticated
	Closed
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the per-connection auth state machine.
// Anonymous -> Authenticated on a successful Login or Register, any -> Closed.
// There is no logout: a Closed session stays closed.
type Session struct {
	ID    string
	auth  services.IAuthService
	chat  services.IChatService
	log   *slog.Logger
	mu    sync.Mutex
	state State
	user  string
	token string
}

func New(id string, auth services.IAuthService, chat services.IChatService, log *slog.Logger) *Session {
	return &Session{ID: id, auth: auth, chat: chat, log: log.With("session_id", id)}
}

// Login binds username to the session when the credentials verify.
func (s *Session) Login(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireState(Anonymous); err != nil {
		return err
	}

	ok, err := s.auth.Verify(username, password)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Info("Login refused", "username", username)
		return errors.ErrInvalidCredentials
	}
	return s.bind(strings.TrimSpace(username))
}

// Register creates the account and logs the session into it.
// The account is stored before the token is signed: when signing fails the
// account exists, the session stays Anonymous and a later Login binds it.
func (s *Session) Register(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireState(Anonymous); err != nil {
		return err
	}

	stored, err := s.auth.Register(username, password)
	if err != nil {
		return err
	}
	return s.bind(stored)
}

// Send reports sent=false for a whitespace-only body.
func (s *Session) Send(ctx context.Context, body string) (domain.Message, bool, error) {
	author, err := s.currentUser()
	if err != nil {
		return domain.Message{}, false, err
	}
	return s.chat.Send(ctx, author, body)
}

func (s *Session) History() ([]domain.Message, error) {
	viewer, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	return s.chat.History(viewer)
}

func (s *Session) Search(ctx context.Context, text string) ([]domain.Message, error) {
	viewer, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	return s.chat.Search(ctx, viewer, text)
}

// Username is empty unless the session is authenticated.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated {
		return ""
	}
	return s.user
}

// Token is the bearer token issued at login, empty otherwise.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Authenticated
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	s.log.Debug("Session closed", "username", s.user)
	s.state = Closed
	s.user, s.token = "", ""
}

// bind must be called with mu held.
func (s *Session) bind(username string) error {
	token, err := s.auth.IssueToken(username)
	if err != nil {
		return err
	}
	s.state = Authenticated
	s.user = username
	s.token = token
	s.log.Info("Session authenticated", "username", username)
	return nil
}

// requireState must be called with mu held.
func (s *Session) requireState(want State) error {
	if s.state == want {
		return nil
	}
	if s.state == Closed {
		return fmt.Errorf("%w: session is closed", errors.ErrNotAuthenticated)
	}
	return fmt.Errorf("%w: session is %s", errors.ErrInvalidInput, s.state)
}

func (s *Session) currentUser() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated {
		return "", errors.ErrNotAuthenticated
	}
	return s.user, nil
}
