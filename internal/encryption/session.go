package encryption

import (
	"context"
	"time"
)

// Session is the caller's authenticated session. Its access token is the
// input of the legacy key recipe, so that recipe only works for as long as
// the session that wrote the data is still alive.
type Session struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}

// Live reports whether the session still carries a usable access token.
func (s Session) Live(now time.Time) bool {
	if s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
