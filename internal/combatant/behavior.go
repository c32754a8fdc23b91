package combatant

import (
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
)

// Behavior is the per-mob capability set. Implementations are selected by
// the mob registry's factory table at spawn time; each spawned entity gets
// its own Behavior value.
type Behavior interface {
	// SetDefaultStats derives the spawned entity's attributes from the
	// blueprint's base stats.
	SetDefaultStats(base world.Attributes) world.Attributes
	// Attack runs when the attack draw fires against target.
	Attack(c *Context, target world.Entity) error
	// SpecialAbility runs when the special-ability draw fires.
	SpecialAbility(c *Context, target world.Entity) error
}

// ChanceOverrider lets a behavior replace the configured per-tick chances.
type ChanceOverrider interface {
	Chances() (attack, special float64)
}

// Rand is the random source behind action draws.
type Rand interface {
	Float64() float64
	Intn(n int) int
}
