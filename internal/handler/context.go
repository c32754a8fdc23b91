package handler

import (
	"github.com/Clemdlc1/CustomMonster-sub001/internal/boss"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/combatant"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/config"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/core/event"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/mob"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scheduler"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"go.uber.org/zap"
)

// ReportKind tells which field of a CombatReport is set.
type ReportKind int

const (
	ReportDamage ReportKind = iota
	ReportDeath
	ReportRespawn
)

// CombatReport is one host damage-stream entry, queued by the bridge and
// processed by CombatSystem in Phase 2. Everything that may vanish before
// processing (controller metadata, names) is captured at report time.
type CombatReport struct {
	Kind    ReportKind
	Damage  world.DamageEvent
	Death   world.DeathEvent
	Respawn world.RespawnEvent

	Meta       combatant.Meta // victim's controller metadata, deaths only
	HasMeta    bool
	KillerName string // player behind the kill, "" for non-players
	VictimName string // set when the victim is a player
}

// CombatQueue accepts reports for deferred Phase 2 processing.
type CombatQueue interface {
	QueueReport(r CombatReport)
}

// Deps holds shared dependencies injected into the command surface, the
// damage bridge and the systems.
type Deps struct {
	Config     *config.Config
	Log        *zap.Logger
	World      *world.State
	Mobs       *mob.Registry
	Combatants *combatant.Table
	Events     *scheduler.Scheduler
	Bosses     *boss.Tracker
	Bus        *event.Bus
	Combat     CombatQueue // filled after CombatSystem is created; nil = process inline
}

func (d *Deps) log() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

func (d *Deps) queue(r CombatReport) {
	if d.Combat != nil {
		d.Combat.QueueReport(r)
		return
	}
	ProcessReport(r, d)
}

// playerName resolves id to a player name, "" if id is not a player.
func (d *Deps) playerName(id world.EntityID) string {
	if id == 0 {
		return ""
	}
	e, ok := d.World.Entity(id)
	if !ok || e.Kind != world.KindPlayer {
		return ""
	}
	return e.Name
}

// API is the command surface used by admin commands and the UI.
type API struct {
	deps *Deps
}

func NewAPI(deps *Deps) *API {
	return &API{deps: deps}
}

func (a *API) Deps() *Deps { return a.deps }
