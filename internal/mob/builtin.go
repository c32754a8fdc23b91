package mob

import (
	"fmt"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/combatant"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
)

// Built-in mob ids.
const (
	GolemStone     = "golem_stone"
	SkeletonArcher = "skeleton_archer"
	FireImp        = "fire_imp"
	Necromancer    = "necromancer"
	SkeletonMinion = "skeleton_minion"
)

// Builtins returns the stock blueprints in registration order.
func Builtins() []Blueprint {
	return []Blueprint{
		{
			ID: GolemStone, Name: "Stone Golem",
			Stats:   world.Attributes{MaxHealth: 100, Damage: 8, Speed: 0.2},
			Factory: func() combatant.Behavior { return &golem{} },
		},
		{
			ID: SkeletonArcher, Name: "Skeleton Archer",
			Stats:   world.Attributes{MaxHealth: 30, Damage: 4, Speed: 0.3},
			Factory: func() combatant.Behavior { return &archer{} },
		},
		{
			ID: FireImp, Name: "Fire Imp",
			Stats:   world.Attributes{MaxHealth: 24, Damage: 3, Speed: 0.35},
			Factory: func() combatant.Behavior { return &imp{} },
		},
		{
			ID: Necromancer, Name: "Necromancer", Boss: true,
			Stats:   world.Attributes{MaxHealth: 300, Damage: 10, Speed: 0.25},
			Factory: func() combatant.Behavior { return &necromancer{} },
		},
		{
			ID: SkeletonMinion, Name: "Skeleton", Minion: true,
			Stats:   world.Attributes{MaxHealth: 12, Damage: 2, Speed: 0.3},
			Factory: func() combatant.Behavior { return &minion{} },
		},
	}
}

// Behaviors maps the names usable from mob_list.yaml to built-in behaviors.
var Behaviors = map[string]func() combatant.Behavior{
	"golem":       func() combatant.Behavior { return &golem{} },
	"archer":      func() combatant.Behavior { return &archer{} },
	"imp":         func() combatant.Behavior { return &imp{} },
	"necromancer": func() combatant.Behavior { return &necromancer{} },
	"minion":      func() combatant.Behavior { return &minion{} },
}

// RegisterBuiltins registers every stock blueprint.
func RegisterBuiltins(r *Registry) error {
	for _, bp := range Builtins() {
		if err := r.Register(bp); err != nil {
			return err
		}
	}
	return nil
}

// golem hits hard, throws the target back, and hardens its skin to regain
// health.
type golem struct{ attr world.Attributes }

func (g *golem) SetDefaultStats(base world.Attributes) world.Attributes {
	g.attr = base
	return base
}

func (g *golem) Attack(c *combatant.Context, target world.Entity) error {
	if err := c.Strike(target.ID, g.attr.Damage); err != nil {
		return err
	}
	if !c.Host.IsValid(target.ID) {
		return nil
	}
	return c.Knockback(target.ID, 2)
}

func (g *golem) SpecialAbility(c *combatant.Context, _ world.Entity) error {
	return c.Heal(g.attr.MaxHealth * 0.1)
}

// archer shoots single arrows and occasionally a three-arrow volley.
type archer struct{ attr world.Attributes }

func (a *archer) SetDefaultStats(base world.Attributes) world.Attributes {
	a.attr = base
	return base
}

func (a *archer) Attack(c *combatant.Context, target world.Entity) error {
	return c.Shoot(target.ID, a.attr.Damage)
}

func (a *archer) SpecialAbility(c *combatant.Context, target world.Entity) error {
	for i := 0; i < 3; i++ {
		if !c.Host.IsValid(target.ID) {
			return nil
		}
		if err := c.Shoot(target.ID, a.attr.Damage/2); err != nil {
			return fmt.Errorf("volley arrow %d: %w", i+1, err)
		}
	}
	return nil
}

// imp claws in melee and lobs fireballs that explode around the target.
type imp struct{ attr world.Attributes }

func (m *imp) SetDefaultStats(base world.Attributes) world.Attributes {
	m.attr = base
	return base
}

func (m *imp) Chances() (float64, float64) { return 0.15, 0.08 }

func (m *imp) Attack(c *combatant.Context, target world.Entity) error {
	return c.Strike(target.ID, m.attr.Damage)
}

func (m *imp) SpecialAbility(c *combatant.Context, target world.Entity) error {
	_, err := c.Explode(target.Loc, 3, m.attr.Damage*2)
	return err
}

// necromancer drains life in melee and raises skeletons around itself.
type necromancer struct{ attr world.Attributes }

func (n *necromancer) SetDefaultStats(base world.Attributes) world.Attributes {
	n.attr = base
	return base
}

func (n *necromancer) Attack(c *combatant.Context, target world.Entity) error {
	if err := c.Strike(target.ID, n.attr.Damage); err != nil {
		return err
	}
	return c.Heal(n.attr.Damage / 2)
}

func (n *necromancer) SpecialAbility(c *combatant.Context, _ world.Entity) error {
	offsets := [][2]float64{{2, 0}, {-2, 0}}
	for _, o := range offsets {
		if _, err := c.Summon(SkeletonMinion, o[0], o[1]); err != nil {
			return err
		}
	}
	return nil
}

// minion only scratches.
type minion struct{ attr world.Attributes }

func (m *minion) SetDefaultStats(base world.Attributes) world.Attributes {
	m.attr = base
	return base
}

func (m *minion) Chances() (float64, float64) { return 0.20, 0 }

func (m *minion) Attack(c *combatant.Context, target world.Entity) error {
	return c.Strike(target.ID, m.attr.Damage)
}

func (m *minion) SpecialAbility(*combatant.Context, world.Entity) error { return nil }
