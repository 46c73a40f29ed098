package auth

import (
	"strings"
	"testing"
	"time"

	"traceforge/errors"

	"github.com/stretchr/testify/require"
)

var fastParams = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MonMotDePasseTr0pSûr!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("MauvaisMDP", hash)
	req.NoError(err)
	req.False(match)
}

func TestCompare_ExactMatchOnly(t *testing.T) {
	req := require.New(t)
	hash, err := fastParams.Hash("p1")
	req.NoError(err)

	for _, candidate := range []string{"P1", "p1 ", " p1", "p", ""} {
		match, err := ComparePassword(candidate, hash)
		req.NoError(err)
		req.False(match, "candidate=%q", candidate)
	}
	match, err := ComparePassword("p1", hash)
	req.NoError(err)
	req.True(match)
}

func TestCompare_InvalidHash(t *testing.T) {
	req := require.New(t)
	for _, encoded := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$abc$def", "$argon2id$v=1$m=1,t=1,p=1$abc$def"} {
		_, err := ComparePassword("p", encoded)
		req.Error(err, "encoded=%q", encoded)
	}
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"Valid request", "alice", "secret", false},
		{"Username trimmed", "  alice  ", "secret", false},
		{"Single char password", "bob", "x", false},
		{"Empty username", "", "secret", true},
		{"Blank username", "   ", "secret", true},
		{"Username with inner space", "al ice", "secret", true},
		{"Empty password", "alice", "", true},
		{"Blank password", "alice", " \t ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(NewRegisterRequest(tt.username, tt.password))
			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrInvalidInput)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTokenIssuer(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.GenerateToken("alice")
	req.NoError(err)

	claims, err := issuer.ValidateToken(token)
	req.NoError(err)
	req.Equal("alice", claims.Username)

	// Signed with another key
	other := NewTokenIssuer("other-secret", time.Hour)
	_, err = other.ValidateToken(token)
	req.Error(err)

	// Expired
	expired := NewTokenIssuer("test-secret", -time.Minute)
	token, err = expired.GenerateToken("alice")
	req.NoError(err)
	_, err = issuer.ValidateToken(token)
	req.Error(err)
}

func TestTokenIssuer_EmptyKey(t *testing.T) {
	req := require.New(t)
	forged, err := NewTokenIssuer("", time.Hour).GenerateToken("bob")
	req.ErrorIs(err, ErrEmptySigningKey)
	req.Empty(forged)

	token, err := NewTokenIssuer("test-secret", time.Hour).GenerateToken("bob")
	req.NoError(err)
	_, err = NewTokenIssuer("", time.Hour).ValidateToken(token)
	req.ErrorIs(err, ErrEmptySigningKey)
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
