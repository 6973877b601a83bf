package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/homedash/pkg/hasher"
)

const (
	editTokenHeader   = "X-Edit-Token"
	defaultSessionTTL = 12 * time.Hour
	tokenLength       = 32
)

var (
	ErrWrongPassword = errors.New("wrong password")
	ErrEditLocked    = errors.New("edit mode is locked")
)

// sessions holds edit-mode tokens. Without a password hash edit mode is
// always unlocked.
type sessions struct {
	mu     sync.Mutex
	hash   string
	ttl    time.Duration
	tokens map[string]time.Time
	now    func() time.Time
}

func newSessions() *sessions {
	return &sessions{
		ttl:    defaultSessionTTL,
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (s *sessions) unlock(password string) (string, time.Time, error) {
	if s.hash != "" && !hasher.PasswordCorrect(password, s.hash) {
		return "", time.Time{}, ErrWrongPassword
	}
	token, err := hasher.GenerateToken(tokenLength)
	if err != nil {
		return "", time.Time{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expires := s.now().Add(s.ttl)
	s.tokens[token] = expires
	return token, expires, nil
}

func (s *sessions) lock(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *sessions) valid(token string) bool {
	if s.hash == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.tokens[token]
	if !ok {
		return false
	}
	if !s.now().Before(expires) {
		delete(s.tokens, token)
		return false
	}
	return true
}

func (s *server) editAllowed(r *http.Request) bool {
	return s.sessions.valid(r.Header.Get(editTokenHeader))
}

func (s *server) requireEdit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.editAllowed(r) {
			writeError(w, http.StatusUnauthorized, ErrEditLocked)
			return
		}
		next(w, r)
	}
}

type unlockRequest struct {
	Password string `json:"password"`
}

type unlockResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *server) Unlock(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[unlockRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, expires, err := s.sessions.unlock(req.Password)
	if errors.Is(err, ErrWrongPassword) {
		s.logger.Warn("edit unlock rejected", zap.String("remote", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unlockResponse{Token: token, ExpiresAt: expires})
}

func (s *server) Lock(w http.ResponseWriter, r *http.Request) {
	s.sessions.lock(r.Header.Get(editTokenHeader))
	w.WriteHeader(http.StatusNoContent)
}
