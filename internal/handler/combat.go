package handler

import (
	"github.com/Clemdlc1/CustomMonster-sub001/internal/boss"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scheduler"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"go.uber.org/zap"
)

// The API is the host damage bridge: it implements world.Listener and
// forwards each callback to the matching hook.

func (a *API) EntityDamaged(ev world.DamageEvent) { a.OnEntityDamage(ev) }

func (a *API) EntityDied(ev world.DeathEvent) {
	if ev.VictimKind == world.KindPlayer {
		a.OnPlayerDeath(ev)
		return
	}
	a.OnEntityDeath(ev)
}

func (a *API) PlayerRespawned(ev world.RespawnEvent) { a.OnPlayerRespawn(ev) }

// OnEntityDamage queues a hit.
func (a *API) OnEntityDamage(ev world.DamageEvent) {
	a.deps.queue(CombatReport{Kind: ReportDamage, Damage: ev})
}

// OnEntityDeath queues a non-player death together with the victim's
// controller metadata.
func (a *API) OnEntityDeath(ev world.DeathEvent) {
	r := a.deathReport(ev)
	if r.HasMeta && r.Meta.Controller != nil {
		r.Meta.Controller.Stop()
	}
	a.deps.queue(r)
}

// OnPlayerDeath queues a player death. Boss attribution waits for the
// respawn; the death itself only feeds PvP scoring.
func (a *API) OnPlayerDeath(ev world.DeathEvent) {
	r := a.deathReport(ev)
	r.VictimName = a.deps.playerName(ev.Victim)
	a.deps.queue(r)
}

// OnPlayerRespawn queues a respawn.
func (a *API) OnPlayerRespawn(ev world.RespawnEvent) {
	a.deps.queue(CombatReport{Kind: ReportRespawn, Respawn: ev})
}

func (a *API) deathReport(ev world.DeathEvent) CombatReport {
	r := CombatReport{Kind: ReportDeath, Death: ev}
	if a.deps.Combatants != nil {
		r.Meta, r.HasMeta = a.deps.Combatants.Get(ev.Victim)
	}
	r.KillerName = a.deps.playerName(killerOf(ev))
	return r
}

func killerOf(ev world.DeathEvent) world.EntityID {
	if ev.Source != 0 {
		return ev.Source
	}
	return ev.Killer
}

// OnCapture applies a capture attempt by player at point and, when the
// point changes hands, scores it for the player's group in the running
// capture event that contests the point. It reports whether ownership
// changed.
func (a *API) OnCapture(point string, player world.EntityID) (bool, error) {
	name := a.deps.playerName(player)
	if name == "" {
		return false, world.ErrUnknownEntity
	}
	for _, inst := range a.deps.Events.ActiveEvents() {
		if inst.Def.Type != scheduler.TypeCapture || !contains(inst.Def.Payload.CapturePoints, point) {
			continue
		}
		group, ok := inst.Ledger.GroupOf(name)
		if !ok {
			continue
		}
		flipped, err := a.deps.World.Capture(point, player, group)
		if err != nil || !flipped {
			return false, err
		}
		inst.Ledger.RecordCapture(group)
		a.deps.log().Info("capture point taken",
			zap.String("event", inst.Def.ID),
			zap.String("point", point),
			zap.String("group", group),
			zap.String("player", name),
		)
		return true, nil
	}
	return false, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ProcessReport feeds one report to the boss tracker and the running
// events' ledgers.
func ProcessReport(r CombatReport, deps *Deps) {
	switch r.Kind {
	case ReportDamage:
		if deps.Bosses != nil {
			deps.Bosses.RecordDamage(r.Damage)
		}
	case ReportDeath:
		processDeath(r, deps)
	case ReportRespawn:
		if deps.Bosses != nil {
			deps.Bosses.RecordPlayerRespawn(r.Respawn)
		}
	}
}

func processDeath(r CombatReport, deps *Deps) {
	ev := r.Death
	if deps.Bosses != nil && ev.VictimKind != world.KindPlayer {
		deps.Bosses.RecordDeath(boss.Death{
			Victim:  ev.Victim,
			Killer:  killerOf(ev),
			Loc:     ev.Loc,
			Meta:    r.Meta,
			HasMeta: r.HasMeta,
		})
	}
	if r.KillerName == "" || deps.Events == nil {
		return
	}

	for _, inst := range deps.Events.ActiveEvents() {
		killerGroup, ok := inst.Ledger.GroupOf(r.KillerName)
		if !ok {
			continue
		}
		if ev.VictimKind != world.KindPlayer {
			inst.Ledger.RecordMonsterKill(killerGroup, r.KillerName)
			continue
		}
		if !inst.Def.Scored() || r.VictimName == "" || r.VictimName == r.KillerName {
			continue
		}
		victimGroup, ok := inst.Ledger.GroupOf(r.VictimName)
		if !ok {
			continue
		}
		if friendly := inst.Ledger.RecordPlayerKill(killerGroup, victimGroup); friendly {
			deps.log().Debug("friendly fire kill",
				zap.String("event", inst.Def.ID),
				zap.String("group", killerGroup),
				zap.String("killer", r.KillerName),
				zap.String("victim", r.VictimName),
			)
			continue
		}
		inst.Ledger.CreditPlayer(r.KillerName)
	}
}
