package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"foxhollow.gg/internal/store"
)

type fakeSource struct {
	sessions map[string]store.Session
	accounts map[int64]store.Account
	deleted  []string
}

func (f *fakeSource) SessionByToken(ctx context.Context, token string) (store.Session, error) {
	s, ok := f.sessions[token]
	if !ok {
		return store.Session{}, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeSource) AccountByID(ctx context.Context, id int64) (store.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return store.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeSource) DeleteSession(ctx context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	delete(f.sessions, token)
	return nil
}

func TestVerify(t *testing.T) {
	now := time.Unix(1700000000, 0)
	src := &fakeSource{
		sessions: map[string]store.Session{
			"tok-live":     {Token: "tok-live", AccountID: 1, ExpiresAt: now.Add(time.Hour)},
			"tok-expired":  {Token: "tok-expired", AccountID: 1, ExpiresAt: now.Add(-time.Hour)},
			"tok-boundary": {Token: "tok-boundary", AccountID: 1, ExpiresAt: now},
			"tok-orphan":   {Token: "tok-orphan", AccountID: 99, ExpiresAt: now.Add(time.Hour)},
		},
		accounts: map[int64]store.Account{
			1: {ID: 1, Username: "fox", Nickname: "Fox", Skin: "skin_fox"},
		},
	}
	g := NewGate(src)
	ctx := context.Background()

	acct, err := g.Verify(ctx, "tok-live", now)
	if err != nil {
		t.Fatalf("valid token: %v", err)
	}
	if acct.ID != 1 || acct.Nickname != "Fox" {
		t.Fatalf("account = %+v", acct)
	}

	for _, token := range []string{"", "tok-unknown", "tok-expired", "tok-boundary", "tok-orphan"} {
		if _, err := g.Verify(ctx, token, now); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: err = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestVerifyPurgesExpiredLazily(t *testing.T) {
	now := time.Unix(1700000000, 0)
	src := &fakeSource{
		sessions: map[string]store.Session{
			"tok-expired": {Token: "tok-expired", AccountID: 1, ExpiresAt: now.Add(-time.Minute)},
		},
		accounts: map[int64]store.Account{1: {ID: 1}},
	}
	g := NewGate(src)

	if _, err := g.Verify(context.Background(), "tok-expired", now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if len(src.deleted) != 1 || src.deleted[0] != "tok-expired" {
		t.Fatalf("deleted = %v, want the expired token purged", src.deleted)
	}
}

func TestVerifyAgainstRealStore(t *testing.T) {
	s, err := store.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	a, err := s.CreateAccount(ctx, "fox", "hash", "Fox", "skin_fox")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	now := time.Now()
	if err := s.CreateSession(ctx, "tok-1", a.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}

	g := NewGate(s)
	acct, err := g.Verify(ctx, "tok-1", now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if acct.ID != a.ID || acct.Nickname != "Fox" {
		t.Fatalf("account = %+v", acct)
	}

	// Past the expiry the token is rejected and removed from the store.
	if _, err := g.Verify(ctx, "tok-1", now.Add(2*time.Hour)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired verify err = %v, want ErrInvalidToken", err)
	}
	if _, err := s.SessionByToken(ctx, "tok-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expired session still present: %v", err)
	}
}
