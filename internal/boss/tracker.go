package boss

import (
	"sort"
	"sync"
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/combatant"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/core/event"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Host is the world surface the tracker queries.
type Host interface {
	IsValid(id world.EntityID) bool
	Entity(id world.EntityID) (world.Entity, bool)
	Position(id world.EntityID) (world.Location, bool)
}

// Config holds the attribution radii.
type Config struct {
	MinionRadius  float64
	RespawnRadius float64
}

func DefaultConfig() Config { return Config{MinionRadius: 32, RespawnRadius: 48} }

// Participant is one player's record in a session.
type Participant struct {
	Player      world.EntityID `json:"player"`
	Name        string         `json:"name"`
	DamageDealt float64        `json:"damage_dealt"`
	DamageTaken float64        `json:"damage_taken"`
	Deaths      int            `json:"deaths"`
	MinionKills int            `json:"minion_kills"`
}

// Outcome is the final record of a session, produced exactly once.
type Outcome struct {
	SessionID    string         `json:"session_id"`
	MobID        string         `json:"mob_id"`
	Boss         world.EntityID `json:"boss"`
	Defeated     bool           `json:"defeated"`
	Killer       world.EntityID `json:"killer"`
	KillerName   string         `json:"killer_name"`
	StartedAt    time.Time      `json:"started_at"`
	EndedAt      time.Time      `json:"ended_at"`
	MinionKills  int            `json:"minion_kills"`
	Participants []Participant  `json:"participants"` // by damage dealt, descending
}

// Duration is how long the encounter lasted.
func (o Outcome) Duration() time.Duration { return o.EndedAt.Sub(o.StartedAt) }

// OutcomeListener receives finalized sessions.
type OutcomeListener interface {
	OnBossOutcome(o Outcome)
}

// Death is a death report enriched with the victim's controller metadata,
// captured before the controller could forget it.
type Death struct {
	Victim  world.EntityID
	Killer  world.EntityID // shooter/igniter already resolved
	Loc     world.Location
	Meta    combatant.Meta
	HasMeta bool
}

type session struct {
	id           string
	boss         world.EntityID
	mobID        string
	startedAt    time.Time
	participants map[world.EntityID]*Participant
	minionKills  int
	gone         int // consecutive sweeps that found the boss invalid
}

// SessionView is a read-only summary of a running session.
type SessionView struct {
	SessionID    string
	Boss         world.EntityID
	MobID        string
	StartedAt    time.Time
	Participants int
	MinionKills  int
}

type Options struct {
	Host   Host
	Table  *combatant.Table
	Config Config
	Bus    *event.Bus
	Log    *zap.Logger
	Now    func() time.Time
}

// Tracker attributes damage, deaths and minion kills to boss sessions.
type Tracker struct {
	mu        sync.Mutex
	sessions  map[world.EntityID]*session
	finalized map[world.EntityID]int // boss -> sweeps seen invalid
	listeners []OutcomeListener

	host  Host
	table *combatant.Table
	cfg   Config
	bus   *event.Bus
	log   *zap.Logger
	now   func() time.Time
}

func NewTracker(o Options) *Tracker {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Config == (Config{}) {
		o.Config = DefaultConfig()
	}
	return &Tracker{
		sessions:  make(map[world.EntityID]*session),
		finalized: make(map[world.EntityID]int),
		host:      o.Host,
		table:     o.Table,
		cfg:       o.Config,
		bus:       o.Bus,
		log:       o.Log,
		now:       o.Now,
	}
}

func (t *Tracker) AddListener(l OutcomeListener) {
	t.mu.Lock()
	t.listeners = append(t.listeners, l)
	t.mu.Unlock()
}

// CombatantSpawned opens a session for boss spawns.
func (t *Tracker) CombatantSpawned(meta combatant.Meta) {
	if meta.Boss {
		t.StartSession(meta.EntityID, meta.MobID)
	}
}

// StartSession opens a session for boss. It returns the session id and is a
// no-op for a boss that already has one.
func (t *Tracker) StartSession(boss world.EntityID, mobID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startLocked(boss, mobID).id
}

func (t *Tracker) startLocked(boss world.EntityID, mobID string) *session {
	if s := t.sessions[boss]; s != nil {
		return s
	}
	s := &session{
		id:           uuid.NewString(),
		boss:         boss,
		mobID:        mobID,
		startedAt:    t.now(),
		participants: make(map[world.EntityID]*Participant),
	}
	t.sessions[boss] = s
	t.log.Info("boss session opened",
		zap.String("session", s.id),
		zap.String("mob", mobID),
		zap.Int32("boss", int32(boss)),
	)
	return s
}

func (t *Tracker) participantLocked(s *session, player world.EntityID) *Participant {
	p := s.participants[player]
	if p == nil {
		p = &Participant{Player: player}
		if e, ok := t.host.Entity(player); ok {
			p.Name = e.Name
		}
		s.participants[player] = p
	}
	return p
}

func (t *Tracker) isPlayer(id world.EntityID) bool {
	e, ok := t.host.Entity(id)
	return ok && e.Kind == world.KindPlayer
}

// sessionFor returns the session of a boss entity, opening one on first
// damage when the side-table marks the entity as a boss.
func (t *Tracker) sessionFor(id world.EntityID) *session {
	if s := t.sessions[id]; s != nil {
		return s
	}
	if _, done := t.finalized[id]; done || t.table == nil {
		return nil
	}
	if m, ok := t.table.Get(id); ok && m.Boss {
		return t.startLocked(id, m.MobID)
	}
	return nil
}

// RecordDamage credits a hit. Projectile and explosive hits are credited to
// their shooter or igniter.
func (t *Tracker) RecordDamage(ev world.DamageEvent) {
	attacker := ev.Damager
	if ev.Source != 0 {
		attacker = ev.Source
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s := t.sessionFor(ev.Victim); s != nil {
		if t.isPlayer(attacker) {
			t.participantLocked(s, attacker).DamageDealt += ev.Amount
		}
		return
	}
	if s := t.sessions[attacker]; s != nil && t.isPlayer(ev.Victim) {
		t.participantLocked(s, ev.Victim).DamageTaken += ev.Amount
	}
}

// RecordDeath finalizes a boss session on the boss's first death and
// attributes minion kills to the nearest live boss within MinionRadius.
// Repeated deaths of a finalized boss are ignored.
func (t *Tracker) RecordDeath(d Death) {
	t.mu.Lock()
	if _, done := t.finalized[d.Victim]; done {
		t.mu.Unlock()
		return
	}
	s := t.sessions[d.Victim]
	if s == nil && d.HasMeta && d.Meta.Boss {
		s = t.startLocked(d.Victim, d.Meta.MobID)
	}
	if s != nil {
		out, ls := t.finalizeLocked(s, true, d.Killer)
		t.mu.Unlock()
		t.publish(out, ls)
		return
	}
	if d.HasMeta && d.Meta.Minion {
		t.attributeMinionLocked(d)
	}
	t.mu.Unlock()
}

func (t *Tracker) attributeMinionLocked(d Death) {
	s := t.nearestBossLocked(d.Loc, t.cfg.MinionRadius)
	if s == nil {
		t.log.Debug("minion kill unattributed", zap.Int32("minion", int32(d.Victim)))
		return
	}
	s.minionKills++
	if d.Killer != 0 && t.isPlayer(d.Killer) {
		t.participantLocked(s, d.Killer).MinionKills++
	}
}

// nearestBossLocked searches live bosses within radius of loc; bosses are
// located at query time, never remembered.
func (t *Tracker) nearestBossLocked(loc world.Location, radius float64) *session {
	r2 := radius * radius
	var (
		best  *session
		bestD = r2
	)
	for id, s := range t.sessions {
		if !t.host.IsValid(id) {
			continue
		}
		pos, ok := t.host.Position(id)
		if !ok {
			continue
		}
		d := pos.DistanceSq(loc)
		if d > r2 {
			continue
		}
		if best == nil || d < bestD || (d == bestD && id < best.boss) {
			best, bestD = s, d
		}
	}
	return best
}

// RecordPlayerRespawn attributes a player death to the nearest live boss
// within RespawnRadius of where the player died. Best effort: nothing
// proves the boss caused the death.
func (t *Tracker) RecordPlayerRespawn(ev world.RespawnEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.nearestBossLocked(ev.DeathLoc, t.cfg.RespawnRadius)
	if s == nil {
		return
	}
	t.participantLocked(s, ev.Player).Deaths++
}

// Sweep finalizes sessions whose boss disappeared without a death report.
// A boss must be missing on two consecutive sweeps, so a death still
// queued for processing wins over the despawn. Finalized bosses are
// forgotten after the same two sweeps.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	for id, seen := range t.finalized {
		if t.host.IsValid(id) {
			continue
		}
		if seen >= 1 {
			delete(t.finalized, id)
			continue
		}
		t.finalized[id] = seen + 1
	}
	type pending struct {
		out Outcome
		ls  []OutcomeListener
	}
	var done []pending
	for id, s := range t.sessions {
		if t.host.IsValid(id) {
			s.gone = 0
			continue
		}
		s.gone++
		if s.gone < 2 {
			continue
		}
		out, ls := t.finalizeLocked(s, false, 0)
		done = append(done, pending{out, ls})
	}
	t.mu.Unlock()
	for _, p := range done {
		t.publish(p.out, p.ls)
	}
}

func (t *Tracker) finalizeLocked(s *session, defeated bool, killer world.EntityID) (Outcome, []OutcomeListener) {
	delete(t.sessions, s.boss)
	t.finalized[s.boss] = 0

	out := Outcome{
		SessionID:   s.id,
		MobID:       s.mobID,
		Boss:        s.boss,
		Defeated:    defeated,
		Killer:      killer,
		StartedAt:   s.startedAt,
		EndedAt:     t.now(),
		MinionKills: s.minionKills,
	}
	if p := s.participants[killer]; p != nil {
		out.KillerName = p.Name
	} else if e, ok := t.host.Entity(killer); ok && killer != 0 {
		out.KillerName = e.Name
	}
	for _, p := range s.participants {
		out.Participants = append(out.Participants, *p)
	}
	sort.Slice(out.Participants, func(i, j int) bool {
		a, b := out.Participants[i], out.Participants[j]
		if a.DamageDealt != b.DamageDealt {
			return a.DamageDealt > b.DamageDealt
		}
		return a.Player < b.Player
	})
	return out, t.listeners
}

func (t *Tracker) publish(out Outcome, ls []OutcomeListener) {
	event.Emit(t.bus, event.BossDefeated{
		SessionID: out.SessionID,
		BossID:    int32(out.Boss),
		MobID:     out.MobID,
		Defeated:  out.Defeated,
		KillerID:  int32(out.Killer),
	})
	t.log.Info("boss session finalized",
		zap.String("session", out.SessionID),
		zap.String("mob", out.MobID),
		zap.Bool("defeated", out.Defeated),
		zap.String("killer", out.KillerName),
		zap.Int("participants", len(out.Participants)),
		zap.Duration("duration", out.Duration()),
	)
	for _, l := range ls {
		l.OnBossOutcome(out)
	}
}

// Sessions summarizes running sessions ordered by boss id.
func (t *Tracker) Sessions() []SessionView {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SessionView, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, SessionView{
			SessionID:    s.id,
			Boss:         s.boss,
			MobID:        s.mobID,
			StartedAt:    s.startedAt,
			Participants: len(s.participants),
			MinionKills:  s.minionKills,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Boss < out[j].Boss })
	return out
}

// Participant returns a copy of player's record in boss's running session.
func (t *Tracker) Participant(boss, player world.EntityID) (Participant, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.sessions[boss]
	if s == nil {
		return Participant{}, false
	}
	p := s.participants[player]
	if p == nil {
		return Participant{}, false
	}
	return *p, true
}
