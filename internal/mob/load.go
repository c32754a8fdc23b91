package mob

import (
	"errors"
	"fmt"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/combatant"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/data"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
)

// ScriptCompiler turns a behavior script path into a factory.
type ScriptCompiler interface {
	Factory(path string) (func() combatant.Behavior, error)
}

// fallbackStats fills in attributes a mob list entry leaves out.
var fallbackStats = world.Attributes{MaxHealth: 20, Damage: 2, Speed: 0.25}

// BlueprintFromSpec converts one mob list entry.
func BlueprintFromSpec(s data.MobSpec, scripts ScriptCompiler) (Blueprint, error) {
	bp := Blueprint{
		ID:     s.ID,
		Name:   s.Name,
		Boss:   s.Boss,
		Minion: s.Minion,
		Stats:  world.Attributes{MaxHealth: s.Stats.MaxHealth, Damage: s.Stats.Damage, Speed: s.Stats.Speed},
	}
	if bp.Stats.MaxHealth == 0 {
		bp.Stats.MaxHealth = fallbackStats.MaxHealth
	}
	if bp.Stats.Damage == 0 {
		bp.Stats.Damage = fallbackStats.Damage
	}
	if bp.Stats.Speed == 0 {
		bp.Stats.Speed = fallbackStats.Speed
	}

	switch {
	case s.Behavior != "":
		f, ok := Behaviors[s.Behavior]
		if !ok {
			return bp, fmt.Errorf("mob %s: unknown behavior %q", s.ID, s.Behavior)
		}
		bp.Factory = f
	case s.Script != "":
		if scripts == nil {
			return bp, fmt.Errorf("mob %s: scripted behaviors are disabled", s.ID)
		}
		f, err := scripts.Factory(s.Script)
		if err != nil {
			return bp, fmt.Errorf("mob %s: %w", s.ID, err)
		}
		bp.Factory = f
	default:
		return bp, fmt.Errorf("mob %s: no behavior", s.ID)
	}
	return bp, nil
}

// RegisterTable registers every entry of t. Bad entries are skipped and
// reported together; good entries are registered regardless.
func RegisterTable(r *Registry, t *data.MobTable, scripts ScriptCompiler) error {
	var errs []error
	for _, s := range t.Specs() {
		bp, err := BlueprintFromSpec(s, scripts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.Register(bp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
