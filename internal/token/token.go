// Package token issues and verifies the signed, time-limited bearer
// tokens that guard every protected route.
package token

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/cbr-records/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
)

// ErrExpired is returned when a token's validity window has elapsed.
// Callers surface it with a distinct "session expired" message.
var ErrExpired = errors.New("token expired")

// ErrInvalid is returned for malformed tokens and bad signatures.
var ErrInvalid = errors.New("token invalid")

// Identity is the authenticated subject embedded in a token.
type Identity struct {
	UserID   int
	Username string
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service signs and verifies HS256 tokens with a process-wide secret.
// Verification is stateless given the secret.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func New(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured validity window.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue produces a signed token embedding the user's id and username,
// valid for the configured window.
func (s *Service) Issue(user types.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}

// Verify returns the identity embedded in tokenString, ErrExpired once the
// validity window has elapsed, or ErrInvalid for anything else wrong.
func (s *Service) Verify(tokenString string) (Identity, error) {
	parsed := claims{}
	token, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpired
		}
		return Identity{}, ErrInvalid
	}
	if !token.Valid {
		return Identity{}, ErrInvalid
	}

	userID, err := strconv.Atoi(strings.TrimSpace(parsed.Subject))
	if err != nil || userID < 1 {
		return Identity{}, ErrInvalid
	}

	return Identity{UserID: userID, Username: parsed.Username}, nil
}
