package handler

import (
	"github.com/Clemdlc1/CustomMonster-sub001/internal/mob"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"go.uber.org/zap"
)

// RegisterMob adds a blueprint. False when the id is taken or invalid.
func (a *API) RegisterMob(bp mob.Blueprint) bool {
	if err := a.deps.Mobs.Register(bp); err != nil {
		a.deps.log().Debug("register mob rejected", zap.String("mob", bp.ID), zap.Error(err))
		return false
	}
	return true
}

func (a *API) IsMobRegistered(id string) bool {
	return a.deps.Mobs.IsRegistered(id)
}

// GetRegisteredMobIDs lists ids in registration order.
func (a *API) GetRegisteredMobIDs() []string {
	return a.deps.Mobs.IDs()
}

// SpawnCustomMob spawns id at loc and returns the entity, or false when the
// id is unknown or the host refused the spawn.
func (a *API) SpawnCustomMob(id string, loc world.Location) (world.EntityID, bool) {
	ctrl, err := a.deps.Mobs.Spawn(id, loc)
	if err != nil {
		a.deps.log().Debug("spawn custom mob failed", zap.String("mob", id), zap.Error(err))
		return 0, false
	}
	return ctrl.Entity(), true
}

// MobIDOf returns the mob id of a spawned combatant.
func (a *API) MobIDOf(id world.EntityID) (string, bool) {
	m, ok := a.deps.Combatants.Get(id)
	if !ok {
		return "", false
	}
	return m.MobID, true
}
