package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write tuning file: %v", err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	d := Defaults()
	if err := d.validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if d.MapSize != 900 || d.SafeRadius != 150 || d.TreeCount != 60 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	total := 0
	for _, n := range d.NPCs {
		total += n.Count
	}
	if total != 8 {
		t.Fatalf("default roster has %d NPCs, want 8", total)
	}
	if _, ok := d.ObjectCosts["fence_wood"]; !ok {
		t.Fatalf("default object costs missing fence_wood")
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := writeTuning(t, "map_size: 500\ntree_count: 5\ndefault_skin: skin_owl\n")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.MapSize != 500 || got.TreeCount != 5 || got.DefaultSkin != "skin_owl" {
		t.Fatalf("overrides not applied: %+v", got)
	}
	// Untouched fields keep their defaults.
	if got.SafeRadius != 150 || got.NPCTickMs != 100 || got.GuestbookRecent != 50 {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoadReplacesNPCRoster(t *testing.T) {
	path := writeTuning(t, "npcs:\n  - archetype: crab\n    count: 2\n    speed_mult: 1.5\n")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.NPCs) != 1 || got.NPCs[0].Archetype != "crab" || got.NPCs[0].Count != 2 {
		t.Fatalf("roster = %+v", got.NPCs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []string{
		"map_size: -1\n",
		"safe_radius: 900\n", // must stay below map_size
		"npc_tick_ms: 0\n",
		"clock_cycle_sec: 0\n",
		"npcs:\n  - archetype: crab\n    count: 1\n    speed_mult: 0\n",
		"map_size: [not, a, number]\n",
	}
	for _, body := range cases {
		if _, err := Load(writeTuning(t, body)); err == nil {
			t.Fatalf("accepted bad tuning %q", body)
		}
	}
}

func TestParseEnv(t *testing.T) {
	t.Setenv("FH_ADDR", ":9100")
	t.Setenv("FH_DATA", "/tmp/fh-data")
	t.Setenv("FH_SEED", "42")

	e, err := ParseEnv()
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if e.Addr != ":9100" || e.DataDir != "/tmp/fh-data" || e.Seed != 42 {
		t.Fatalf("env = %+v", e)
	}
	// Unset vars fall back to defaults.
	if e.StaticDir != "./static" || e.LogFile != "foxhollow.log" {
		t.Fatalf("env defaults = %+v", e)
	}
}
