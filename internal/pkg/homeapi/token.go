package homeapi

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/model"
)

// renewBefore is how long before expiry a token is replaced.
const renewBefore = time.Minute

type tokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }
func (s staticToken) Invalidate()                           {}

// loginSource logs in with credentials and reuses the bearer token until
// shortly before the JWT exp claim.
type loginSource struct {
	mu      sync.Mutex
	login   func(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)
	creds   model.Credentials
	token   string
	expires time.Time
	now     func() time.Time
	logger  *zap.Logger
}

func (s *loginSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && (s.expires.IsZero() || s.now().Add(renewBefore).Before(s.expires)) {
		return s.token, nil
	}
	res, err := s.login(ctx, s.creds)
	if err != nil {
		return "", err
	}
	s.token = res.Token
	s.expires = tokenExpiry(res.Token)
	s.logger.Info("logged in to home api", zap.String("user", res.User.Email), zap.Time("expires", s.expires))
	return s.token, nil
}

func (s *loginSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
}

// tokenExpiry reads the exp claim without verifying the signature; the
// API remains the authority on validity. Opaque tokens have no expiry.
func tokenExpiry(token string) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
