package world

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"foxhollow.gg/internal/auth"
	"foxhollow.gg/internal/config"
	"foxhollow.gg/internal/store"
)

type fakeGateway struct {
	guestbook     []store.GuestbookEntry
	skins         map[int64]string
	failGuestbook bool
	failSkin      bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{skins: map[int64]string{}}
}

func (g *fakeGateway) UpdateAccountSkin(ctx context.Context, id int64, skin string) error {
	if g.failSkin {
		return errors.New("store down")
	}
	g.skins[id] = skin
	return nil
}

func (g *fakeGateway) InsertGuestbookPost(ctx context.Context, nickname, message string, at time.Time) error {
	if g.failGuestbook {
		return errors.New("store down")
	}
	g.guestbook = append(g.guestbook, store.GuestbookEntry{Nickname: nickname, Message: message, CreatedAt: at})
	return nil
}

func (g *fakeGateway) RecentGuestbook(ctx context.Context, n int) ([]store.GuestbookEntry, error) {
	if len(g.guestbook) > n {
		return g.guestbook[len(g.guestbook)-n:], nil
	}
	return g.guestbook, nil
}

func testAccount(id int64, nickname string) store.Account {
	return store.Account{ID: id, Username: strings.ToLower(nickname), Nickname: nickname, Skin: "skin_fox"}
}

func testPlacedObject(id int64, kind string, x, y float64, owner string) store.PlacedObject {
	return store.PlacedObject{ID: id, Kind: kind, X: x, Y: y, Owner: owner, CreatedAt: time.Unix(1700000000, 0)}
}

type fakeVerifier struct {
	accounts map[string]store.Account
}

func (v *fakeVerifier) Verify(ctx context.Context, token string, now time.Time) (store.Account, error) {
	if a, ok := v.accounts[token]; ok {
		return a, nil
	}
	return store.Account{}, auth.ErrInvalidToken
}

func newTestWorld(t *testing.T) (*World, *fakeGateway, *fakeVerifier) {
	t.Helper()
	gw := newFakeGateway()
	tv := &fakeVerifier{accounts: map[string]store.Account{}}
	cfg := ConfigFromTuning(config.Defaults(), 1)
	w := New(cfg, gw, tv, nil, nil, zap.NewNop().Sugar())
	return w, gw, tv
}

// connect registers a fresh connection directly against the world handlers,
// bypassing the network layer.
func connect(t *testing.T, w *World) (string, chan []byte) {
	t.Helper()
	out := make(chan []byte, 64)
	resp := make(chan ConnectResponse, 1)
	w.handleConnect(ConnectRequest{Out: out, Resp: resp})
	r := <-resp
	if r.ID == "" {
		t.Fatalf("connect returned empty id")
	}
	return r.ID, out
}

func deliver(w *World, connID, eventType string, payload any) {
	b, _ := json.Marshal(payload)
	w.dispatch(EventEnvelope{ConnID: connID, Type: eventType, Data: b})
}

// nextMsg pops the next queued outbound message, decoded generically.
func nextMsg(t *testing.T, out chan []byte) map[string]any {
	t.Helper()
	select {
	case b := <-out:
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("decode outbound message: %v", err)
		}
		return m
	default:
		t.Fatalf("no outbound message queued")
		return nil
	}
}

func drain(out chan []byte) {
	for {
		select {
		case <-out:
		default:
			return
		}
	}
}

// msgType pulls messages until one of the wanted type arrives or the queue is
// empty.
func msgOfType(t *testing.T, out chan []byte, want string) map[string]any {
	t.Helper()
	for {
		select {
		case b := <-out:
			var m map[string]any
			if err := json.Unmarshal(b, &m); err != nil {
				t.Fatalf("decode outbound message: %v", err)
			}
			if m["type"] == want {
				return m
			}
		default:
			t.Fatalf("no %q message queued", want)
			return nil
		}
	}
}

func hasMsgOfType(out chan []byte, want string) bool {
	for {
		select {
		case b := <-out:
			var m map[string]any
			if json.Unmarshal(b, &m) == nil && m["type"] == want {
				return true
			}
		default:
			return false
		}
	}
}
