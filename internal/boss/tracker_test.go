package boss

import (
	"testing"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/combatant"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
)

func at(x, z float64) world.Location { return world.Location{World: "overworld", X: x, Y: 64, Z: z} }

// direct feeds the world damage stream straight into the tracker.
type direct struct {
	tr    *Tracker
	table *combatant.Table
}

func (d direct) EntityDamaged(ev world.DamageEvent) { d.tr.RecordDamage(ev) }

func (d direct) EntityDied(ev world.DeathEvent) {
	killer := ev.Killer
	if ev.Source != 0 {
		killer = ev.Source
	}
	meta, ok := d.table.Get(ev.Victim)
	d.tr.RecordDeath(Death{Victim: ev.Victim, Killer: killer, Loc: ev.Loc, Meta: meta, HasMeta: ok})
}

func (d direct) PlayerRespawned(ev world.RespawnEvent) { d.tr.RecordPlayerRespawn(ev) }

type outcomes struct{ got []Outcome }

func (o *outcomes) OnBossOutcome(out Outcome) { o.got = append(o.got, out) }

type fixture struct {
	ws    *world.State
	table *combatant.Table
	tr    *Tracker
	out   *outcomes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ws := world.NewState("overworld")
	table := combatant.NewTable()
	tr := NewTracker(Options{Host: ws, Table: table})
	out := &outcomes{}
	tr.AddListener(out)
	ws.SetListener(direct{tr: tr, table: table})
	return &fixture{ws: ws, table: table, tr: tr, out: out}
}

func (f *fixture) spawn(t *testing.T, mobID string, loc world.Location, boss, minion bool) world.EntityID {
	t.Helper()
	id, err := f.ws.SpawnMob(mobID, loc)
	if err != nil {
		t.Fatal(err)
	}
	meta := combatant.Meta{EntityID: id, MobID: mobID, Boss: boss, Minion: minion}
	f.table.Put(meta)
	f.tr.CombatantSpawned(meta)
	return id
}

func TestProjectileDamageCreditsShooter(t *testing.T) {
	f := newFixture(t)
	boss := f.spawn(t, "necromancer", at(0, 0), true, false)
	archer, _ := f.ws.AddPlayer("archer", at(10, 0), world.ModeSurvival)

	arrow, err := f.ws.SpawnProjectile(archer, at(5, 0))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.ws.Damage(boss, arrow, world.CauseProjectile, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ws.Damage(archer, boss, world.CauseMelee, 2); err != nil {
		t.Fatal(err)
	}

	p, ok := f.tr.Participant(boss, archer)
	if !ok {
		t.Fatalf("shooter not recorded")
	}
	if p.DamageDealt != 5 || p.DamageTaken != 2 || p.Name != "archer" {
		t.Fatalf("participant = %+v", p)
	}
	if _, ok := f.tr.Participant(boss, arrow); ok {
		t.Fatalf("projectile credited")
	}
}

func TestBossDefeatFinalizesOnce(t *testing.T) {
	f := newFixture(t)
	boss := f.spawn(t, "necromancer", at(0, 0), true, false)
	alice, _ := f.ws.AddPlayer("alice", at(2, 0), world.ModeSurvival)
	bob, _ := f.ws.AddPlayer("bob", at(-2, 0), world.ModeSurvival)

	f.ws.Damage(boss, alice, world.CauseMelee, 4)
	f.ws.Damage(boss, bob, world.CauseMelee, 9)
	if err := f.ws.Kill(boss, alice); err != nil {
		t.Fatal(err)
	}
	f.tr.RecordDeath(Death{Victim: boss, Killer: bob})
	f.tr.Sweep()
	f.tr.Sweep()

	if len(f.out.got) != 1 {
		t.Fatalf("outcomes = %d, want exactly one", len(f.out.got))
	}
	o := f.out.got[0]
	if !o.Defeated || o.Killer != alice || o.KillerName != "alice" || o.MobID != "necromancer" {
		t.Fatalf("outcome = %+v", o)
	}
	if len(o.Participants) != 2 || o.Participants[0].Player != alice {
		t.Fatalf("participants not ordered by damage: %+v", o.Participants)
	}
	if len(f.tr.Sessions()) != 0 {
		t.Fatalf("session kept after finalization")
	}
}

func TestMinionKillGoesToNearestBoss(t *testing.T) {
	f := newFixture(t)
	near := f.spawn(t, "necromancer", at(20, 0), true, false)
	far := f.spawn(t, "necromancer", at(0, 0), true, false)
	hero, _ := f.ws.AddPlayer("hero", at(15, 2), world.ModeSurvival)

	minion := f.spawn(t, "skeleton_minion", at(15, 0), false, true)
	if err := f.ws.Kill(minion, hero); err != nil {
		t.Fatal(err)
	}
	stray := f.spawn(t, "skeleton_minion", at(500, 0), false, true)
	if err := f.ws.Kill(stray, hero); err != nil {
		t.Fatal(err)
	}

	for _, s := range f.tr.Sessions() {
		switch s.Boss {
		case near:
			if s.MinionKills != 1 {
				t.Fatalf("near boss minion kills = %d", s.MinionKills)
			}
		case far:
			if s.MinionKills != 0 {
				t.Fatalf("far boss credited: %d", s.MinionKills)
			}
		}
	}
	if p, _ := f.tr.Participant(near, hero); p.MinionKills != 1 {
		t.Fatalf("killer record = %+v", p)
	}
}

func TestRespawnAttributesNearbyDeaths(t *testing.T) {
	f := newFixture(t)
	boss := f.spawn(t, "necromancer", at(0, 0), true, false)
	nearby, _ := f.ws.AddPlayer("nearby", at(10, 0), world.ModeSurvival)
	distant, _ := f.ws.AddPlayer("distant", at(300, 0), world.ModeSurvival)

	f.ws.Kill(nearby, boss)
	f.ws.Kill(distant, 0)
	if p, _ := f.tr.Participant(boss, nearby); p.Deaths != 0 {
		t.Fatalf("death attributed before respawn")
	}

	f.ws.Respawn(nearby, at(1000, 0))
	f.ws.Respawn(distant, at(1000, 0))

	if p, _ := f.tr.Participant(boss, nearby); p.Deaths != 1 {
		t.Fatalf("close death not attributed: %+v", p)
	}
	if _, ok := f.tr.Participant(boss, distant); ok {
		t.Fatalf("distant death attributed")
	}
}

func TestSweepFinalizesDespawnedBoss(t *testing.T) {
	f := newFixture(t)
	boss := f.spawn(t, "necromancer", at(0, 0), true, false)

	f.tr.Sweep()
	f.ws.Remove(boss)
	f.tr.Sweep()
	if len(f.out.got) != 0 {
		t.Fatalf("finalized on the first missing sweep")
	}
	f.tr.Sweep()
	if len(f.out.got) != 1 || f.out.got[0].Defeated {
		t.Fatalf("outcomes = %+v", f.out.got)
	}
	f.tr.RecordDeath(Death{Victim: boss})
	if len(f.out.got) != 1 {
		t.Fatalf("late death refinalized the session")
	}
}

func TestFinalizedBossesAreForgotten(t *testing.T) {
	f := newFixture(t)
	boss := f.spawn(t, "necromancer", at(0, 0), true, false)
	hero, _ := f.ws.AddPlayer("hero", at(2, 0), world.ModeSurvival)
	if err := f.ws.Kill(boss, hero); err != nil {
		t.Fatal(err)
	}

	f.tr.Sweep()
	meta, _ := f.table.Get(boss)
	f.tr.RecordDeath(Death{Victim: boss, Killer: hero, Meta: meta, HasMeta: true})
	if len(f.out.got) != 1 {
		t.Fatalf("queued death after the first sweep refinalized: %d", len(f.out.got))
	}

	f.tr.Sweep()
	f.tr.mu.Lock()
	left := len(f.tr.finalized)
	f.tr.mu.Unlock()
	if left != 0 {
		t.Fatalf("finalized ids kept: %d", left)
	}
}

func TestSessionOpensOnFirstDamage(t *testing.T) {
	f := newFixture(t)
	boss, _ := f.ws.SpawnMob("necromancer", at(0, 0))
	f.table.Put(combatant.Meta{EntityID: boss, MobID: "necromancer", Boss: true})
	p, _ := f.ws.AddPlayer("p", at(1, 0), world.ModeSurvival)

	if len(f.tr.Sessions()) != 0 {
		t.Fatalf("session before any damage")
	}
	f.ws.Damage(boss, p, world.CauseMelee, 1)
	if s := f.tr.Sessions(); len(s) != 1 || s[0].MobID != "necromancer" || s[0].Participants != 1 {
		t.Fatalf("sessions = %+v", s)
	}
}
