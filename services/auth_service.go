//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"traceforge/auth"
	"traceforge/errors"
	"traceforge/repositories"
)

// IAuthService is the credential store seen by the session layer.
type IAuthService interface {
	// Register returns the stored (trimmed) username.
	Register(username, password string) (string, error)
	Verify(username, password string) (bool, error)
	IssueToken(username string) (string, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	issuer         auth.TokenIssuer
	hashParams     auth.HashParams
	log            *slog.Logger
}

func NewAuthService(repo repositories.IUserRepository, issuer auth.TokenIssuer, log *slog.Logger) *AuthService {
	return &AuthService{userRepository: repo, issuer: issuer, hashParams: auth.DefaultHashParams, log: log}
}

// WithHashParams overrides the Argon2id cost, mostly for tests.
func (s *AuthService) WithHashParams(params auth.HashParams) *AuthService {
	s.hashParams = params
	return s
}

func (s *AuthService) Register(username, password string) (string, error) {
	req := auth.NewRegisterRequest(username, password)

	// Validation happens before any expensive cryptographic operation.
	if err := auth.ValidateRegister(req); err != nil {
		return "", err
	}

	hashedPassword, err := s.hashParams.Hash(req.Password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateUser(req.Username, hashedPassword)
	if err != nil {
		return "", err
	}
	s.log.Info("User registered", "username", user.Username)
	return user.Username, nil
}

// Verify is true iff a record exists with this username and exactly this
// password. The username is trimmed the way Register stores it.
func (s *AuthService) Verify(username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	user, err := s.userRepository.GetUser(username)
	switch {
	case stderrors.Is(err, errors.ErrUserNotFound):
		return false, nil
	case err != nil:
		return false, err
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("%w: unreadable credential for %q: %v", errors.ErrStorage, username, err)
	}
	return match, nil
}

func (s *AuthService) IssueToken(username string) (string, error) {
	token, err := s.issuer.GenerateToken(username)
	if err != nil {
		s.log.Error("Token generation failed", "username", username, "error", err)
		return "", errors.ErrTokenGeneration
	}
	return token, nil
}
