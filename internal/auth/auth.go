// Package auth validates session tokens against the persistence gateway.
package auth

import (
	"context"
	"errors"
	"time"

	"foxhollow.gg/internal/store"
)

// ErrInvalidToken covers unknown tokens and expired sessions alike; callers
// must not be able to tell the two apart.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// SessionSource is the slice of the store the gate needs.
type SessionSource interface {
	SessionByToken(ctx context.Context, token string) (store.Session, error)
	AccountByID(ctx context.Context, id int64) (store.Account, error)
	DeleteSession(ctx context.Context, token string) error
}

type Gate struct {
	src SessionSource
}

func NewGate(src SessionSource) *Gate {
	return &Gate{src: src}
}

// Verify resolves token to its account. A session is valid iff its expiry is
// strictly in the future at now; expired sessions are purged lazily on lookup.
func (g *Gate) Verify(ctx context.Context, token string, now time.Time) (store.Account, error) {
	if token == "" {
		return store.Account{}, ErrInvalidToken
	}
	sess, err := g.src.SessionByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return store.Account{}, ErrInvalidToken
	}
	if err != nil {
		return store.Account{}, err
	}
	if !sess.ExpiresAt.After(now) {
		_ = g.src.DeleteSession(ctx, token)
		return store.Account{}, ErrInvalidToken
	}
	acct, err := g.src.AccountByID(ctx, sess.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Account{}, ErrInvalidToken
	}
	return acct, err
}
