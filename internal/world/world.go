// Package world is the authoritative real-time world: connected players,
// NPCs, the day/night clock and the broadcast fan-out. All state is owned by
// a single goroutine; everything reaches it through channels.
package world

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"foxhollow.gg/internal/config"
	"foxhollow.gg/internal/journal"
	"foxhollow.gg/internal/protocol"
	"foxhollow.gg/internal/store"
)

type Vec2 struct {
	X float64
	Y float64
}

// Player is the per-connection state. It exists iff its connection is live;
// both are created and destroyed together on the world goroutine.
type Player struct {
	ID        string
	Pos       Vec2
	Nickname  string
	Skin      string
	Color     string
	HP        int
	MaxHP     int
	AccountID int64 // 0 for guests

	// named is set once a join event has been accepted. Fresh connections all
	// carry the placeholder nickname and do not count for uniqueness.
	named bool
}

// NPC is a server-simulated wanderer. The set is fixed after startup.
type NPC struct {
	ID        string
	Archetype string
	Pos       Vec2
	Target    Vec2
	Speed     float64 // units per second
	HP        int
}

type Config struct {
	Seed int64

	MapSize     float64
	SafeRadius  float64
	SpawnExtent float64

	NPCTick         time.Duration
	NPCRetargetDist float64
	NPCWanderRadius float64
	NPCBaseSpeed    float64
	NPCs            []config.NPCSpec

	ClockCycle time.Duration
	ClockEvery time.Duration

	GuestbookRecent   int
	GuestbookMaxChars int
	NicknameMaxChars  int

	DefaultSkin string
	MaxHP       int
}

// ConfigFromTuning maps the tuning file onto the world config.
func ConfigFromTuning(t config.Tuning, seed int64) Config {
	return Config{
		Seed:              seed,
		MapSize:           t.MapSize,
		SafeRadius:        t.SafeRadius,
		SpawnExtent:       t.SpawnExtent,
		NPCTick:           time.Duration(t.NPCTickMs) * time.Millisecond,
		NPCRetargetDist:   t.NPCRetargetDist,
		NPCWanderRadius:   t.NPCWanderRadius,
		NPCBaseSpeed:      t.NPCBaseSpeed,
		NPCs:              t.NPCs,
		ClockCycle:        time.Duration(t.ClockCycleSec) * time.Second,
		ClockEvery:        time.Duration(t.ClockBroadcastSec) * time.Second,
		GuestbookRecent:   t.GuestbookRecent,
		GuestbookMaxChars: t.GuestbookMaxChars,
		NicknameMaxChars:  t.NicknameMaxChars,
		DefaultSkin:       t.DefaultSkin,
		MaxHP:             t.MaxHP,
	}
}

// Gateway is the slice of the persistence store the world consumes. Calls are
// synchronous and expected to be fast; a failure never corrupts in-memory
// state, it only suppresses the dependent broadcast.
type Gateway interface {
	UpdateAccountSkin(ctx context.Context, id int64, skin string) error
	InsertGuestbookPost(ctx context.Context, nickname, message string, at time.Time) error
	RecentGuestbook(ctx context.Context, n int) ([]store.GuestbookEntry, error)
}

// TokenVerifier resolves a session token to its account.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, now time.Time) (store.Account, error)
}

// EventJournal receives world lifecycle events. May be nil.
type EventJournal interface {
	Record(journal.Entry)
}

// ConnectRequest registers a new live connection.
type ConnectRequest struct {
	Out  chan []byte
	Resp chan ConnectResponse
}

type ConnectResponse struct {
	ID string
}

// EventEnvelope is one raw client event routed to the world goroutine.
type EventEnvelope struct {
	ConnID string
	Type   string
	Data   []byte
}

type clientState struct {
	Out chan []byte
}

type World struct {
	cfg  Config
	log  *zap.SugaredLogger
	gw   Gateway
	gate TokenVerifier

	rng       *rand.Rand
	startedAt time.Time
	now       func() time.Time

	players map[string]*Player
	clients map[string]*clientState
	npcs    []*NPC
	trees   []protocol.TreeInfo
	objects []store.PlacedObject

	connect chan ConnectRequest
	leave   chan string
	inbox   chan EventEnvelope
	placed  chan store.PlacedObject
	stop    chan struct{}

	journal EventJournal
	newID   func() string
}

func New(cfg Config, gw Gateway, gate TokenVerifier, trees []store.Tree, objects []store.PlacedObject, logger *zap.SugaredLogger) *World {
	w := &World{
		cfg:       cfg,
		log:       logger,
		gw:        gw,
		gate:      gate,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		startedAt: time.Now(),
		now:       time.Now,
		players:   map[string]*Player{},
		clients:   map[string]*clientState{},
		objects:   objects,
		connect:   make(chan ConnectRequest, 64),
		leave:     make(chan string, 64),
		inbox:     make(chan EventEnvelope, 1024),
		placed:    make(chan store.PlacedObject, 64),
		stop:      make(chan struct{}),
		newID:     uuid.NewString,
	}
	for _, t := range trees {
		w.trees = append(w.trees, protocol.TreeInfo{X: t.X, Y: t.Y})
	}
	w.spawnNPCs()
	return w
}

func (w *World) SetJournal(j EventJournal) { w.journal = j }

func (w *World) Connect() chan<- ConnectRequest { return w.connect }
func (w *World) Leave() chan<- string           { return w.leave }
func (w *World) Inbox() chan<- EventEnvelope    { return w.inbox }

// NotifyObjectPlaced hands a freshly persisted object to the world goroutine
// for broadcast. Non-blocking; the object is already durable either way.
func (w *World) NotifyObjectPlaced(obj store.PlacedObject) {
	select {
	case w.placed <- obj:
	default:
		w.log.Warnw("object notice dropped", "id", obj.ID)
	}
}

func (w *World) record(e journal.Entry) {
	if w.journal != nil {
		w.journal.Record(e)
	}
}

func (w *World) randomColor() string {
	return fmt.Sprintf("#%06x", w.rng.Intn(0x1000000))
}
