package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/combatant"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"go.uber.org/zap"
)

// ErrScript wraps load-time script failures.
var ErrScript = errors.New("scripting: bad script")

// A behavior script defines attack(engine, target) and special(engine,
// target), and optionally the globals stats {max_health, damage, speed}
// and chances {attack, special}.
const dispatch = `
if __action == "attack" {
	attack(__engine, __target)
} else if __action == "special" {
	special(__engine, __target)
}
`

// scriptModules are the tengo modules a behavior may import. No os or
// file access.
var scriptModules = []string{"math", "text", "rand", "fmt", "times"}

// Engine compiles behavior scripts once and hands out per-spawn clones.
type Engine struct {
	mu    sync.Mutex
	dir   string
	cache map[string]*Program
	log   *zap.Logger
}

// NewEngine resolves relative script paths against dir.
func NewEngine(dir string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{dir: dir, cache: make(map[string]*Program), log: log}
}

// Factory loads path and returns a behavior factory for the registry.
func (e *Engine) Factory(path string) (func() combatant.Behavior, error) {
	p, err := e.Load(path)
	if err != nil {
		return nil, err
	}
	return p.Behavior, nil
}

// Load compiles path, reusing an earlier compilation of the same file.
func (e *Engine) Load(path string) (*Program, error) {
	if !filepath.IsAbs(path) && e.dir != "" {
		path = filepath.Join(e.dir, path)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.cache[path]; ok {
		return p, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrScript, path, err)
	}
	p, err := Compile(filepath.Base(path), src)
	if err != nil {
		return nil, err
	}
	e.cache[path] = p
	e.log.Info("behavior script compiled", zap.String("script", path), zap.Bool("chances", p.chances))
	return p, nil
}

// Forget drops every cached compilation so the next Load rereads files.
func (e *Engine) Forget() {
	e.mu.Lock()
	e.cache = make(map[string]*Program)
	e.mu.Unlock()
}

// Program is a compiled behavior script.
type Program struct {
	name     string
	compiled *tengo.Compiled
	stats    map[string]float64
	attack   float64
	special  float64
	chances  bool
}

// Compile builds a program from source and evaluates its globals once.
func Compile(name string, src []byte) (*Program, error) {
	script := tengo.NewScript([]byte(string(src) + "\n" + dispatch))
	_ = script.Add("__action", "")
	_ = script.Add("__engine", map[string]any{})
	_ = script.Add("__target", map[string]any{})
	script.SetImports(stdlib.GetModuleMap(scriptModules...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrScript, name, err)
	}
	if err := compiled.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: init: %v", ErrScript, name, err)
	}

	p := &Program{name: name, compiled: compiled, stats: map[string]float64{}}
	if compiled.IsDefined("stats") {
		for k, v := range compiled.Get("stats").Map() {
			f, ok := number(v)
			if !ok {
				return nil, fmt.Errorf("%w: %s: stats.%s is not a number", ErrScript, name, k)
			}
			p.stats[k] = f
		}
	}
	if compiled.IsDefined("chances") {
		m := compiled.Get("chances").Map()
		p.chances = true
		var ok bool
		if p.attack, ok = number(m["attack"]); !ok {
			return nil, fmt.Errorf("%w: %s: chances.attack missing or not a number", ErrScript, name)
		}
		if p.special, ok = number(m["special"]); !ok {
			return nil, fmt.Errorf("%w: %s: chances.special missing or not a number", ErrScript, name)
		}
		if p.attack < 0 || p.attack > 1 || p.special < 0 || p.special > 1 {
			return nil, fmt.Errorf("%w: %s: chances must be within [0,1]", ErrScript, name)
		}
	}
	return p, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Name is the script file name.
func (p *Program) Name() string { return p.name }

// Behavior returns a fresh behavior backed by its own clone of the program.
func (p *Program) Behavior() combatant.Behavior {
	b := &scripted{prog: p, compiled: p.compiled.Clone()}
	if p.chances {
		return &scriptedWithChances{b}
	}
	return b
}

type scripted struct {
	prog     *Program
	compiled *tengo.Compiled
}

func (b *scripted) SetDefaultStats(base world.Attributes) world.Attributes {
	if v, ok := b.prog.stats["max_health"]; ok {
		base.MaxHealth = v
	}
	if v, ok := b.prog.stats["damage"]; ok {
		base.Damage = v
	}
	if v, ok := b.prog.stats["speed"]; ok {
		base.Speed = v
	}
	return base
}

func (b *scripted) Attack(c *combatant.Context, target world.Entity) error {
	return b.run("attack", c, target)
}

func (b *scripted) SpecialAbility(c *combatant.Context, target world.Entity) error {
	return b.run("special", c, target)
}

func (b *scripted) run(action string, c *combatant.Context, target world.Entity) error {
	if err := b.compiled.Set("__action", action); err != nil {
		return err
	}
	if err := b.compiled.Set("__engine", buildEngine(c, target)); err != nil {
		return err
	}
	if err := b.compiled.Set("__target", targetObject(target)); err != nil {
		return err
	}
	if err := b.compiled.Run(); err != nil {
		return fmt.Errorf("script %s %s: %w", b.prog.name, action, err)
	}
	return nil
}

type scriptedWithChances struct{ *scripted }

func (b *scriptedWithChances) Chances() (float64, float64) {
	return b.prog.attack, b.prog.special
}

func targetObject(t world.Entity) *tengo.ImmutableMap {
	return &tengo.ImmutableMap{Value: map[string]tengo.Object{
		"id":     &tengo.Int{Value: int64(t.ID)},
		"name":   &tengo.String{Value: t.Name},
		"health": &tengo.Float{Value: t.Health},
		"x":      &tengo.Float{Value: t.Loc.X},
		"y":      &tengo.Float{Value: t.Loc.Y},
		"z":      &tengo.Float{Value: t.Loc.Z},
	}}
}

func floatArg(fn string, args []tengo.Object, i int) (float64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("%s: missing argument %d", fn, i+1)
	}
	f, ok := tengo.ToFloat64(args[i])
	if !ok {
		return 0, fmt.Errorf("%s: argument %d is not a number", fn, i+1)
	}
	return f, nil
}

// buildEngine exposes the combatant's actions to the script. Errors abort
// the run and surface as a failed action.
func buildEngine(c *combatant.Context, target world.Entity) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	values["damage"] = &tengo.UserFunction{Name: "damage", Value: func(args ...tengo.Object) (tengo.Object, error) {
		amount, err := floatArg("damage", args, 0)
		if err != nil {
			return nil, err
		}
		if err := c.Strike(target.ID, amount); err != nil {
			return nil, err
		}
		return tengo.TrueValue, nil
	}}

	values["projectile"] = &tengo.UserFunction{Name: "projectile", Value: func(args ...tengo.Object) (tengo.Object, error) {
		amount, err := floatArg("projectile", args, 0)
		if err != nil {
			return nil, err
		}
		if err := c.Shoot(target.ID, amount); err != nil {
			return nil, err
		}
		return tengo.TrueValue, nil
	}}

	values["explode"] = &tengo.UserFunction{Name: "explode", Value: func(args ...tengo.Object) (tengo.Object, error) {
		amount, err := floatArg("explode", args, 0)
		if err != nil {
			return nil, err
		}
		radius, err := floatArg("explode", args, 1)
		if err != nil {
			return nil, err
		}
		hit, err := c.Explode(target.Loc, radius, amount)
		if err != nil {
			return nil, err
		}
		return &tengo.Int{Value: int64(hit)}, nil
	}}

	values["summon"] = &tengo.UserFunction{Name: "summon", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("summon: missing mob id")
		}
		mobID, _ := tengo.ToString(args[0])
		mobID = strings.TrimSpace(mobID)
		dx := 1.0
		if len(args) > 1 {
			if v, ok := tengo.ToFloat64(args[1]); ok {
				dx = v
			}
		}
		id, err := c.Summon(mobID, dx, 0)
		if err != nil {
			return nil, err
		}
		return &tengo.Int{Value: int64(id)}, nil
	}}

	values["heal"] = &tengo.UserFunction{Name: "heal", Value: func(args ...tengo.Object) (tengo.Object, error) {
		amount, err := floatArg("heal", args, 0)
		if err != nil {
			return nil, err
		}
		if err := c.Heal(amount); err != nil {
			return nil, err
		}
		return tengo.TrueValue, nil
	}}

	values["knockback"] = &tengo.UserFunction{Name: "knockback", Value: func(args ...tengo.Object) (tengo.Object, error) {
		dist, err := floatArg("knockback", args, 0)
		if err != nil {
			return nil, err
		}
		if err := c.Knockback(target.ID, dist); err != nil {
			return nil, err
		}
		return tengo.TrueValue, nil
	}}

	values["random"] = &tengo.UserFunction{Name: "random", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: c.Rand.Float64()}, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			s, _ := tengo.ToString(a)
			parts = append(parts, s)
		}
		if c.Log != nil {
			c.Log.Debug("script", zap.String("msg", strings.Join(parts, " ")))
		}
		return tengo.UndefinedValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}
