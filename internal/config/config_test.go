package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[combat]
attack_chance = 0.25
target_radius = 24.0

[scoring]
player_kill_points = 10

[events]
timezone = "UTC"
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Combat.AttackChance != 0.25 {
		t.Fatalf("attack chance = %v, want 0.25", cfg.Combat.AttackChance)
	}
	if cfg.Combat.SpecialChance != 0.05 {
		t.Fatalf("special chance default lost: %v", cfg.Combat.SpecialChance)
	}
	if cfg.Scoring.PlayerKillPoints != 10 || cfg.Scoring.MonsterKillPoints != 1 {
		t.Fatalf("unexpected scoring %+v", cfg.Scoring)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("location = %v, %v", loc, err)
	}
	if cfg.Server.StartTime == 0 {
		t.Fatalf("start time not stamped")
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"chance":   "[combat]\nattack_chance = 1.5\n",
		"interval": "[combat]\ntick_interval_ticks = 0\n",
		"timezone": "[events]\ntimezone = \"Mars/Olympus\"\n",
		"syntax":   "[combat\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(src)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.toml")
	if err := os.WriteFile(path, []byte("[server]\nname = \"test\"\n[network]\ntick_rate = \"100ms\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Name != "test" || cfg.Network.TickRate != 100*time.Millisecond {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
