// Package auth supplies bearer tokens issued by the external session subsystem.
package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"wallet_core/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
)

// BearerTokenSource holds the current session token. JWTs are checked for expiry locally
// so an expired session fails fast with Unauthorized instead of a backend round trip.
// Signatures are not verified here; the backend remains the authority.
type BearerTokenSource struct {
	mu     sync.RWMutex
	token  string
	now    func() time.Time
	parser *jwt.Parser
}

// NewBearerTokenSource creates a token source seeded with token.
func NewBearerTokenSource(token string) *BearerTokenSource {
	return &BearerTokenSource{
		token:  strings.TrimSpace(token),
		now:    time.Now,
		parser: jwt.NewParser(),
	}
}

// SetToken replaces the session token, e.g. after the auth subsystem refreshed it.
func (s *BearerTokenSource) SetToken(token string) {
	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.mu.Unlock()
}

// Token returns the current token or an Unauthorized error if it is missing or expired.
func (s *BearerTokenSource) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return "", entity.NewError(entity.KindUnauthorized, "auth.Token", "no session token", nil)
	}
	if strings.Count(token, ".") != 2 {
		return token, nil // opaque token
	}

	claims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(token, claims); err != nil {
		return "", entity.NewError(entity.KindUnauthorized, "auth.Token", "malformed session token", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return "", entity.NewError(entity.KindUnauthorized, "auth.Token", "malformed session token expiry", err)
	}
	if exp != nil && !s.now().Before(exp.Time) {
		return "", entity.NewError(entity.KindUnauthorized, "auth.Token", "session token expired", nil)
	}
	return token, nil
}
