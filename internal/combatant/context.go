package combatant

import (
	"fmt"
	"math"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/core/event"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"go.uber.org/zap"
)

// Host is the slice of the host world a controller and its behavior use.
type Host interface {
	IsValid(id world.EntityID) bool
	Entity(id world.EntityID) (world.Entity, bool)
	Position(id world.EntityID) (world.Location, bool)
	NearbyPlayers(origin world.Location, radius float64) []world.Entity
	Damage(target, damager world.EntityID, cause world.DamageCause, amount float64) (bool, error)
	Heal(id world.EntityID, amount float64) error
	Teleport(id world.EntityID, loc world.Location) error
	SpawnProjectile(shooter world.EntityID, loc world.Location) (world.EntityID, error)
	Remove(id world.EntityID)
	Explode(igniter world.EntityID, center world.Location, radius, amount float64) ([]world.EntityID, error)
}

// SummonFunc spawns a registered mob on behalf of a combatant.
type SummonFunc func(mobID string, loc world.Location) (world.EntityID, error)

// Context is what a Behavior sees during one action: its own handle, the
// host, the random source and the shared plumbing for common actions.
type Context struct {
	Self  world.EntityID
	MobID string
	Host  Host
	Rand  Rand
	Log   *zap.Logger

	bus    *event.Bus
	summon SummonFunc
}

// Position returns the combatant's current location.
func (c *Context) Position() (world.Location, error) {
	loc, ok := c.Host.Position(c.Self)
	if !ok {
		return world.Location{}, fmt.Errorf("%w: self %d", world.ErrUnknownEntity, c.Self)
	}
	return loc, nil
}

// Strike deals melee damage to target.
func (c *Context) Strike(target world.EntityID, amount float64) error {
	_, err := c.Host.Damage(target, c.Self, world.CauseMelee, amount)
	return err
}

// Shoot launches a projectile at target and applies its damage on impact.
// The projectile is removed after the hit.
func (c *Context) Shoot(target world.EntityID, amount float64) error {
	from, err := c.Position()
	if err != nil {
		return err
	}
	to, ok := c.Host.Position(target)
	if !ok {
		return fmt.Errorf("%w: target %d", world.ErrUnknownEntity, target)
	}
	mid := world.Location{World: from.World, X: (from.X + to.X) / 2, Y: from.Y + 1, Z: (from.Z + to.Z) / 2}
	arrow, err := c.Host.SpawnProjectile(c.Self, mid)
	if err != nil {
		return err
	}
	defer c.Host.Remove(arrow)
	_, err = c.Host.Damage(target, arrow, world.CauseProjectile, amount)
	return err
}

// Explode detonates at center; the combatant is credited as igniter.
func (c *Context) Explode(center world.Location, radius, amount float64) (int, error) {
	hit, err := c.Host.Explode(c.Self, center, radius, amount)
	return len(hit), err
}

// Heal restores the combatant's own health.
func (c *Context) Heal(amount float64) error {
	return c.Host.Heal(c.Self, amount)
}

// Knockback pushes target away from the combatant by distance blocks.
func (c *Context) Knockback(target world.EntityID, distance float64) error {
	from, err := c.Position()
	if err != nil {
		return err
	}
	to, ok := c.Host.Position(target)
	if !ok {
		return fmt.Errorf("%w: target %d", world.ErrUnknownEntity, target)
	}
	dx, dz := to.X-from.X, to.Z-from.Z
	n := math.Hypot(dx, dz)
	if n == 0 {
		dx, n = 1, 1
	}
	to.X += dx / n * distance
	to.Z += dz / n * distance
	return c.Host.Teleport(target, to)
}

// Summon spawns mobID next to the combatant and reports it on the bus.
func (c *Context) Summon(mobID string, dx, dz float64) (world.EntityID, error) {
	if c.summon == nil {
		return 0, fmt.Errorf("combatant: %s cannot summon", c.MobID)
	}
	loc, err := c.Position()
	if err != nil {
		return 0, err
	}
	loc.X += dx
	loc.Z += dz
	id, err := c.summon(mobID, loc)
	if err != nil {
		return 0, err
	}
	event.Emit(c.bus, event.MinionSummoned{SummonerID: int32(c.Self), MinionID: int32(id), MobID: mobID})
	return id, nil
}
