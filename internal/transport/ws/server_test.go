package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"foxhollow.gg/internal/auth"
	"foxhollow.gg/internal/config"
	"foxhollow.gg/internal/protocol"
	"foxhollow.gg/internal/store"
	"foxhollow.gg/internal/world"
)

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zap.NewNop().Sugar()
	w := world.New(world.ConfigFromTuning(config.Defaults(), 1), st, auth.NewGate(st), nil, nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)

	srv := httptest.NewServer(NewServer(w, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode %q: %v", b, err)
	}
	return m
}

// readUntil skips intermediate broadcasts (npc ticks, clock updates) until a
// message of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		m := readMsg(t, conn)
		if m["type"] == want {
			return m
		}
	}
	t.Fatalf("no %q message before deadline", want)
	return nil
}

func TestConnectReceivesSnapshotFirst(t *testing.T) {
	srv := startTestServer(t)
	conn := dial(t, srv)

	first := readMsg(t, conn)
	if first["type"] != protocol.TypeWorldSnapshot {
		t.Fatalf("first message type = %v, want world_snapshot", first["type"])
	}
	if first["self_id"] == "" {
		t.Fatalf("snapshot missing self_id")
	}
}

func TestJoinOverWire(t *testing.T) {
	srv := startTestServer(t)
	conn := dial(t, srv)
	readUntil(t, conn, protocol.TypeWorldSnapshot)

	err := conn.WriteJSON(protocol.JoinMsg{Type: protocol.TypeJoin, Nickname: "Fox", Skin: "skin_fox"})
	if err != nil {
		t.Fatalf("write join: %v", err)
	}
	ack := readUntil(t, conn, protocol.TypeJoinAck)
	if ack["nickname"] != "Fox" {
		t.Fatalf("join_ack = %v", ack)
	}
}

func TestPeerSeesJoinAndLeave(t *testing.T) {
	srv := startTestServer(t)
	connA := dial(t, srv)
	snapA := readUntil(t, connA, protocol.TypeWorldSnapshot)
	selfA := snapA["self_id"].(string)
	// A's own arrival broadcast.
	readUntil(t, connA, protocol.TypePeerJoined)

	connB := dial(t, srv)
	snapB := readUntil(t, connB, protocol.TypeWorldSnapshot)
	selfB := snapB["self_id"].(string)

	joined := readUntil(t, connA, protocol.TypePeerJoined)
	if joined["id"] != selfB {
		t.Fatalf("peer_joined id = %v, want %v", joined["id"], selfB)
	}
	peers := snapB["peers"].(map[string]any)
	if _, ok := peers[selfA]; !ok {
		t.Fatalf("second snapshot missing first peer")
	}

	connB.Close()
	left := readUntil(t, connA, protocol.TypePeerLeft)
	if left["id"] != selfB {
		t.Fatalf("peer_left id = %v, want %v", left["id"], selfB)
	}
}

func TestMoveBroadcastOverWire(t *testing.T) {
	srv := startTestServer(t)
	connA := dial(t, srv)
	snapA := readUntil(t, connA, protocol.TypeWorldSnapshot)
	selfA := snapA["self_id"].(string)
	connB := dial(t, srv)
	readUntil(t, connB, protocol.TypeWorldSnapshot)

	err := connA.WriteJSON(protocol.MoveMsg{Type: protocol.TypeMove, X: 77, Y: -8})
	if err != nil {
		t.Fatalf("write move: %v", err)
	}
	moved := readUntil(t, connB, protocol.TypePeerMoved)
	if moved["id"] != selfA || moved["x"].(float64) != 77 || moved["y"].(float64) != -8 {
		t.Fatalf("peer_moved = %v", moved)
	}
}

func TestServerEventTypesFromClientIgnored(t *testing.T) {
	srv := startTestServer(t)
	conn := dial(t, srv)
	readUntil(t, conn, protocol.TypeWorldSnapshot)

	// Clients cannot inject server-side event types; the connection stays up.
	if err := conn.WriteJSON(map[string]any{"type": "peer_left", "id": "victim"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(protocol.MoveMsg{Type: protocol.TypeMove, X: 1, Y: 1}); err != nil {
		t.Fatalf("write move: %v", err)
	}
	moved := readUntil(t, conn, protocol.TypePeerMoved)
	if moved["x"].(float64) != 1 {
		t.Fatalf("peer_moved = %v", moved)
	}
}
