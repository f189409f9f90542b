package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is the world tuning file. Every field has a sensible default so the
// server can start without a config directory.
type Tuning struct {
	// Half-extent of the square map; coordinates live in [-MapSize, MapSize].
	MapSize float64 `yaml:"map_size"`
	// Radius of the spawn-safe zone around the origin. Trees are never
	// generated inside it.
	SafeRadius float64 `yaml:"safe_radius"`
	// Half-extent of the random spawn square for new connections.
	SpawnExtent float64 `yaml:"spawn_extent"`
	TreeCount   int     `yaml:"tree_count"`

	NPCTickMs       int       `yaml:"npc_tick_ms"`
	NPCRetargetDist float64   `yaml:"npc_retarget_dist"`
	NPCWanderRadius float64   `yaml:"npc_wander_radius"`
	NPCBaseSpeed    float64   `yaml:"npc_base_speed"` // units per second
	NPCs            []NPCSpec `yaml:"npcs"`

	ClockCycleSec     int `yaml:"clock_cycle_sec"`
	ClockBroadcastSec int `yaml:"clock_broadcast_sec"`

	GuestbookRecent   int `yaml:"guestbook_recent"`
	GuestbookMaxChars int `yaml:"guestbook_max_chars"`
	NicknameMaxChars  int `yaml:"nickname_max_chars"`

	DefaultSkin    string `yaml:"default_skin"`
	MaxHP          int    `yaml:"max_hp"`
	SessionTTLDays int    `yaml:"session_ttl_days"`
	LeaderboardTop int    `yaml:"leaderboard_top"`

	// Inventory cost of placing each object kind. Kinds absent from the map
	// cannot be placed.
	ObjectCosts map[string]map[string]int `yaml:"object_costs"`
}

type NPCSpec struct {
	Archetype string  `yaml:"archetype"`
	Count     int     `yaml:"count"`
	SpeedMult float64 `yaml:"speed_mult"`
}

func Defaults() Tuning {
	return Tuning{
		MapSize:         900,
		SafeRadius:      150,
		SpawnExtent:     100,
		TreeCount:       60,
		NPCTickMs:       100,
		NPCRetargetDist: 5,
		NPCWanderRadius: 200,
		NPCBaseSpeed:    60,
		NPCs: []NPCSpec{
			{Archetype: "roach", Count: 3, SpeedMult: 0.5},
			{Archetype: "sheep", Count: 4, SpeedMult: 1.0},
			{Archetype: "panda", Count: 1, SpeedMult: 0.7},
		},
		ClockCycleSec:     600,
		ClockBroadcastSec: 5,
		GuestbookRecent:   50,
		GuestbookMaxChars: 500,
		NicknameMaxChars:  24,
		DefaultSkin:       "skin_fox",
		MaxHP:             100,
		SessionTTLDays:    30,
		LeaderboardTop:    10,
		ObjectCosts: map[string]map[string]int{
			"fence_wood": {"wood": 2},
			"wall_stone": {"stone": 3},
			"bonfire":    {"wood": 5, "stone": 2},
		},
	}
}

// Load reads tuning yaml from path, layered over Defaults. A missing file is
// an error so operators notice typos; callers that want optional config should
// stat first.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) validate() error {
	if t.MapSize <= 0 {
		return fmt.Errorf("map_size must be positive")
	}
	if t.SafeRadius < 0 || t.SafeRadius >= t.MapSize {
		return fmt.Errorf("safe_radius must be in [0, map_size)")
	}
	if t.NPCTickMs <= 0 {
		return fmt.Errorf("npc_tick_ms must be positive")
	}
	if t.ClockCycleSec <= 0 || t.ClockBroadcastSec <= 0 {
		return fmt.Errorf("clock periods must be positive")
	}
	for _, n := range t.NPCs {
		if n.Count < 0 || n.SpeedMult <= 0 {
			return fmt.Errorf("npc spec %q: bad count or speed_mult", n.Archetype)
		}
	}
	return nil
}
