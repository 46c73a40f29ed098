package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "traceforge"

var ErrEmptySigningKey = fmt.Errorf("empty signing key")

// CustomClaims defines the data stored inside the JWT.
type CustomClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HS256 session tokens for stateless HTTP clients.
type TokenIssuer struct {
	key      []byte
	duration time.Duration
}

func NewTokenIssuer(secret string, duration time.Duration) TokenIssuer {
	return TokenIssuer{key: []byte(secret), duration: duration}
}

// GenerateToken creates a signed JWT bound to username.
func (i TokenIssuer) GenerateToken(username string) (string, error) {
	if len(i.key) == 0 {
		return "", ErrEmptySigningKey
	}
	now := time.Now()
	claims := &CustomClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
}

// ValidateToken checks signature, algorithm and expiration.
func (i TokenIssuer) ValidateToken(tokenString string) (*CustomClaims, error) {
	if len(i.key) == 0 {
		return nil, ErrEmptySigningKey
	}
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return i.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid && claims.Username != "" {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
