package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrExpired means the token parsed and verified but is past its expiry.
	// Handlers surface it with a distinguished code so clients can run the
	// refresh flow instead of forcing a re-login.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers signature and type-claim mismatches.
	ErrInvalid = errors.New("token invalid")
	// ErrMalformed means the string is not a parsable JWT at all.
	ErrMalformed = errors.New("token malformed")
)

type Claims struct {
	UserID string `json:"userId"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// Service issues and verifies access and refresh tokens. The two kinds are
// signed with distinct secrets so leaking one does not compromise the other;
// the type claim keeps a refresh token from being replayed as an access
// token even if the secrets were ever shared. No token is persisted here.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (s *Service) IssueAccessToken(userID string) (string, error) {
	return s.issue(userID, TypeAccess, s.accessSecret, s.accessTTL)
}

func (s *Service) IssueRefreshToken(userID string) (string, error) {
	return s.issue(userID, TypeRefresh, s.refreshSecret, s.refreshTTL)
}

func (s *Service) issue(userID, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "notu-server",
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("could not sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Verify parses tokenString against the secret for expectedType and returns
// the embedded user ID.
func (s *Service) Verify(tokenString, expectedType string) (string, error) {
	secret := s.accessSecret
	if expectedType == TypeRefresh {
		secret = s.refreshSecret
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrMalformed
		default:
			return "", ErrInvalid
		}
	}

	if claims.Type != expectedType {
		return "", ErrInvalid
	}
	if claims.UserID == "" {
		return "", ErrInvalid
	}
	return claims.UserID, nil
}
