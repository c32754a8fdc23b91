package handler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/boss"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/combatant"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/mob"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scheduler"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scoring"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
)

func at(x, z float64) world.Location { return world.Location{World: "overworld", X: x, Y: 64, Z: z} }

var t0 = time.Date(2024, 6, 3, 19, 55, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type outcomes struct {
	mu  sync.Mutex
	got []boss.Outcome
}

func (o *outcomes) OnBossOutcome(out boss.Outcome) {
	o.mu.Lock()
	o.got = append(o.got, out)
	o.mu.Unlock()
}

func definitions() []scheduler.Definition {
	manual := scheduler.Schedule{Kind: scheduler.KindManual}
	return []scheduler.Definition{
		{
			ID: "gang_war", Name: "Gang War", Type: scheduler.TypeGangWar,
			Duration: 30 * time.Minute, Schedule: manual,
			Payload: scheduler.Payload{Groups: []string{"Red", "Blue"}},
		},
		{
			ID: "lich_hunt", Type: scheduler.TypeBossHunt,
			Duration: 15 * time.Minute, Schedule: manual,
			Payload: scheduler.Payload{Boss: mob.Necromancer, BossAt: at(40, 40)},
		},
		{
			ID: "mill_siege", Type: scheduler.TypeCapture,
			Duration: 10 * time.Minute, Schedule: manual,
			Payload: scheduler.Payload{Groups: []string{"Red", "Blue"}, CapturePoints: []string{"mill"}},
		},
	}
}

type fixture struct {
	ws    *world.State
	api   *API
	deps  *Deps
	hooks *EventHooks
	clock *clock
	out   *outcomes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ws := world.NewState("overworld")
	table := combatant.NewTable()
	c := &clock{t: t0}

	reg := mob.NewRegistry(mob.Options{Host: ws, Table: table, Config: combatant.DefaultConfig(), Now: c.Now})
	if err := mob.RegisterBuiltins(reg); err != nil {
		t.Fatal(err)
	}
	events, err := scheduler.New(definitions(), scheduler.Options{Now: c.Now})
	if err != nil {
		t.Fatal(err)
	}
	tracker := boss.NewTracker(boss.Options{Host: ws, Table: table, Now: c.Now})
	reg.AddListener(tracker)
	out := &outcomes{}
	tracker.AddListener(out)

	deps := &Deps{World: ws, Mobs: reg, Combatants: table, Events: events, Bosses: tracker}
	api := NewAPI(deps)
	ws.SetListener(api)
	hooks := NewEventHooks(deps)
	events.AddListener(hooks)
	return &fixture{ws: ws, api: api, deps: deps, hooks: hooks, clock: c, out: out}
}

func (f *fixture) player(t *testing.T, name string, loc world.Location) world.EntityID {
	t.Helper()
	id, err := f.ws.AddPlayer(name, loc, world.ModeSurvival)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestMobCommands(t *testing.T) {
	f := newFixture(t)

	if !f.api.IsMobRegistered(mob.GolemStone) || len(f.api.GetRegisteredMobIDs()) != 5 {
		t.Fatalf("ids = %v", f.api.GetRegisteredMobIDs())
	}
	id, ok := f.api.SpawnCustomMob(mob.GolemStone, at(0, 0))
	if !ok {
		t.Fatalf("spawn failed")
	}
	if got, _ := f.api.MobIDOf(id); got != mob.GolemStone {
		t.Fatalf("mob id = %q", got)
	}
	if _, ok := f.api.SpawnCustomMob("dragon", at(0, 0)); ok {
		t.Fatalf("unknown id spawned")
	}
	if f.api.RegisterMob(mob.Blueprint{ID: mob.GolemStone, Factory: func() combatant.Behavior { return nil }}) {
		t.Fatalf("duplicate registration accepted")
	}
}

func TestEventCommands(t *testing.T) {
	f := newFixture(t)

	if !f.api.ForceStartEvent("gang_war") || f.api.ForceStartEvent("gang_war") {
		t.Fatalf("force start")
	}
	if !f.api.IsEventActive("gang_war") || f.api.GetActiveEvent("gang_war") == nil {
		t.Fatalf("gang_war not active")
	}
	if n := len(f.api.GetActiveEvents()); n != 1 {
		t.Fatalf("active = %d", n)
	}
	if n := len(f.api.GetScheduledEvents()); n != 3 {
		t.Fatalf("scheduled = %d", n)
	}
	if f.api.ForceStartEvent("nope") || f.api.ForceStopEvent("lich_hunt") {
		t.Fatalf("rejections")
	}

	alice := f.player(t, "alice", at(0, 0))
	if err := f.api.JoinEvent("gang_war", alice, "Red"); err != nil {
		t.Fatal(err)
	}
	if err := f.api.JoinEvent("lich_hunt", alice, "Red"); !errors.Is(err, scheduler.ErrNotActive) {
		t.Fatalf("join inactive: %v", err)
	}
	if err := f.api.JoinEvent("gang_war", 9999, "Red"); !errors.Is(err, world.ErrUnknownEntity) {
		t.Fatalf("join unknown player: %v", err)
	}

	f.clock.Advance(10 * time.Minute)
	sd, ok := f.api.GetScoresData(alice)
	if !ok || sd.EventID != "gang_war" || sd.Group != "Red" || sd.RemainingSeconds != 20*60 {
		t.Fatalf("scores = %+v", sd)
	}

	if !f.api.ForceStopEvent("gang_war") || f.api.IsEventActive("gang_war") {
		t.Fatalf("force stop")
	}
	if _, ok := f.api.GetScoresData(alice); ok {
		t.Fatalf("scores after end")
	}
}

func TestFriendlyFireKeepsScore(t *testing.T) {
	f := newFixture(t)
	f.api.ForceStartEvent("gang_war")

	a := f.player(t, "alice", at(0, 0))
	b := f.player(t, "bob", at(1, 0))
	c := f.player(t, "carol", at(2, 0))
	f.api.JoinEvent("gang_war", a, "Red")
	f.api.JoinEvent("gang_war", b, "Red")
	f.api.JoinEvent("gang_war", c, "Blue")

	if err := f.ws.Kill(b, a); err != nil {
		t.Fatal(err)
	}
	rankings := f.api.GetActiveEvent("gang_war").Ledger.Rankings()
	red, blue := entryFor(rankings, "Red"), entryFor(rankings, "Blue")
	if red.Score != 0 || red.Breakdown.FriendlyFireKills != 1 || blue.Score != 0 {
		t.Fatalf("after friendly fire: %+v", rankings)
	}

	if err := f.ws.Kill(c, a); err != nil {
		t.Fatal(err)
	}
	sd, _ := f.api.GetScoresData(a)
	if sd.Score != 3 || sd.Breakdown.PlayerKills != 1 || sd.PersonalPoints != 3 {
		t.Fatalf("after enemy kill: %+v", sd)
	}
}

func entryFor(rankings []scoring.Entry, group string) scoring.Entry {
	for _, e := range rankings {
		if e.Group == group {
			return e
		}
	}
	return scoring.Entry{}
}

func TestMonsterKillsCountForJoinedEvents(t *testing.T) {
	f := newFixture(t)
	f.api.ForceStartEvent("gang_war")
	f.api.ForceStartEvent("mill_siege")
	a := f.player(t, "alice", at(0, 0))
	f.api.JoinEvent("gang_war", a, "Blue")

	golem, _ := f.api.SpawnCustomMob(mob.GolemStone, at(2, 0))
	if err := f.ws.Kill(golem, a); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.deps.Combatants.Get(golem); ok {
		t.Fatalf("dead combatant still tracked")
	}

	gw := f.api.GetActiveEvent("gang_war").Ledger.Rankings()
	if gw[0].Group != "Blue" || gw[0].Score != 1 || gw[0].Breakdown.MonsterKills != 1 {
		t.Fatalf("gang_war rankings %+v", gw)
	}
	for _, e := range f.api.GetActiveEvent("mill_siege").Ledger.Rankings() {
		if e.Score != 0 {
			t.Fatalf("unjoined event scored: %+v", e)
		}
	}
}

func TestBossHuntLifecycle(t *testing.T) {
	f := newFixture(t)
	if !f.api.ForceStartEvent("lich_hunt") {
		t.Fatalf("start")
	}
	inst := f.api.GetActiveEvent("lich_hunt")
	lich, ok := f.hooks.HuntBoss(inst.ID)
	if !ok || !f.ws.IsValid(lich) {
		t.Fatalf("boss not spawned")
	}
	if sessions := f.deps.Bosses.Sessions(); len(sessions) != 1 || sessions[0].Boss != lich {
		t.Fatalf("sessions = %+v", sessions)
	}

	hero := f.player(t, "hero", at(38, 40))
	if _, err := f.ws.Damage(lich, hero, world.CauseMelee, 50); err != nil {
		t.Fatal(err)
	}
	if err := f.ws.Kill(lich, hero); err != nil {
		t.Fatal(err)
	}
	if len(f.out.got) != 1 || !f.out.got[0].Defeated || f.out.got[0].KillerName != "hero" {
		t.Fatalf("outcomes = %+v", f.out.got)
	}
	if f.out.got[0].Participants[0].DamageDealt < 50 {
		t.Fatalf("participants = %+v", f.out.got[0].Participants)
	}
	f.api.ForceStopEvent("lich_hunt")
}

func TestBossHuntEndRemovesSurvivingBoss(t *testing.T) {
	f := newFixture(t)
	f.api.ForceStartEvent("lich_hunt")
	lich, _ := f.hooks.HuntBoss(f.api.GetActiveEvent("lich_hunt").ID)

	f.api.ForceStopEvent("lich_hunt")
	if f.ws.IsValid(lich) {
		t.Fatalf("boss outlived its hunt")
	}
	f.deps.Bosses.Sweep()
	f.deps.Bosses.Sweep()
	if len(f.out.got) != 1 || f.out.got[0].Defeated {
		t.Fatalf("outcomes = %+v", f.out.got)
	}
}

func TestCaptureScoresGroup(t *testing.T) {
	f := newFixture(t)
	if err := f.ws.AddCapturePoint("mill", at(10, 10), 5, 1); err != nil {
		t.Fatal(err)
	}
	a := f.player(t, "alice", at(10, 11))

	if changed, err := f.api.OnCapture("mill", a); changed || err != nil {
		t.Fatalf("capture without event: %v %v", changed, err)
	}

	f.api.ForceStartEvent("mill_siege")
	f.api.JoinEvent("mill_siege", a, "Red")
	changed, err := f.api.OnCapture("mill", a)
	if err != nil || !changed {
		t.Fatalf("capture: %v %v", changed, err)
	}
	if p, _ := f.ws.CapturePoint("mill"); p.Owner != "Red" {
		t.Fatalf("owner = %q", p.Owner)
	}
	sd, _ := f.api.GetScoresData(a)
	if sd.Score != 5 || sd.Breakdown.Captures != 1 {
		t.Fatalf("scores = %+v", sd)
	}

	f.api.ForceStopEvent("mill_siege")
	if p, _ := f.ws.CapturePoint("mill"); !p.Neutral() {
		t.Fatalf("point not reset at end")
	}
}

type queue struct{ got []CombatReport }

func (q *queue) QueueReport(r CombatReport) { q.got = append(q.got, r) }

func TestDeathReportCapturesMetaBeforeProcessing(t *testing.T) {
	f := newFixture(t)
	q := &queue{}
	f.deps.Combat = q

	necro, _ := f.api.SpawnCustomMob(mob.Necromancer, at(0, 0))
	a := f.player(t, "alice", at(1, 0))
	if err := f.ws.Kill(necro, a); err != nil {
		t.Fatal(err)
	}
	if len(q.got) != 2 || q.got[0].Kind != ReportDamage || q.got[1].Kind != ReportDeath {
		t.Fatalf("queued %+v", q.got)
	}
	r := q.got[1]
	if !r.HasMeta || !r.Meta.Boss || r.KillerName != "alice" {
		t.Fatalf("report = %+v", r)
	}
	if _, ok := f.deps.Combatants.Get(necro); ok {
		t.Fatalf("meta should be gone from the table by now")
	}

	for _, r := range q.got {
		ProcessReport(r, f.deps)
	}
	if len(f.out.got) != 1 || !f.out.got[0].Defeated {
		t.Fatalf("outcomes = %+v", f.out.got)
	}
}

func TestFeedSnapshot(t *testing.T) {
	f := newFixture(t)
	f.api.ForceStartEvent("gang_war")
	a := f.player(t, "alice", at(0, 0))
	f.api.JoinEvent("gang_war", a, "Red")

	snap := BuildFeedSnapshot(f.deps)
	if len(snap.Active) != 1 || snap.Active[0].RemainingSeconds != 30*60 || snap.Active[0].Participants != 1 {
		t.Fatalf("active = %+v", snap.Active)
	}
	if len(snap.Scheduled) != 3 || snap.Scheduled[0].State != string(scheduler.StateActive) {
		t.Fatalf("scheduled = %+v", snap.Scheduled)
	}
	if snap.Scheduled[1].Next != nil {
		t.Fatalf("manual event has a next fire: %v", snap.Scheduled[1].Next)
	}
}
