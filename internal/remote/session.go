package remote

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the credential pair for one authenticated user. The access
// token is a short-lived JWT; the refresh token trades for a new pair.
type Session struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// accessExpired reports whether the access token expires within the skew
// window. Tokens we cannot parse count as expired so the next request goes
// through a refresh instead of a guaranteed 401.
func (s *Session) accessExpired(now time.Time, skew time.Duration) bool {
	if s == nil || s.AccessToken == "" {
		return true
	}

	token, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return now.Add(skew).After(exp.Time)
}

// sessionBox guards the session pointer shared between the caller's
// goroutine and the sync agent's workers.
type sessionBox struct {
	mu sync.RWMutex
	s  *Session
}

func (b *sessionBox) get() *Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.s
}

func (b *sessionBox) set(s *Session) {
	b.mu.Lock()
	b.s = s
	b.mu.Unlock()
}
