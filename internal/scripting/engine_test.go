package scripting

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/combatant"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
)

const brute = `
stats := {max_health: 60, damage: 5}
chances := {attack: 0.5, special: 0.25}

attack := func(engine, target) {
	engine.damage(4)
}

special := func(engine, target) {
	if target.health > 10 {
		engine.explode(3, 2.5)
	}
}
`

func at(x, z float64) world.Location { return world.Location{World: "overworld", X: x, Y: 64, Z: z} }

func setup(t *testing.T) (*world.State, *combatant.Context, world.Entity) {
	t.Helper()
	ws := world.NewState("overworld")
	self, err := ws.SpawnMob("brute", at(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	p, _ := ws.AddPlayer("steve", at(2, 0), world.ModeSurvival)
	target, _ := ws.Entity(p)
	ctx := &combatant.Context{Self: self, MobID: "brute", Host: ws, Rand: rand.New(rand.NewSource(1))}
	return ws, ctx, target
}

func TestScriptGlobalsShapeBehavior(t *testing.T) {
	p, err := Compile("brute.tengo", []byte(brute))
	if err != nil {
		t.Fatal(err)
	}
	b := p.Behavior()
	got := b.SetDefaultStats(world.Attributes{MaxHealth: 20, Damage: 2, Speed: 0.3})
	if got.MaxHealth != 60 || got.Damage != 5 || got.Speed != 0.3 {
		t.Fatalf("stats = %+v", got)
	}
	o, ok := b.(combatant.ChanceOverrider)
	if !ok {
		t.Fatalf("chances global did not override")
	}
	if a, s := o.Chances(); a != 0.5 || s != 0.25 {
		t.Fatalf("chances = %v %v", a, s)
	}
}

func TestScriptWithoutChancesKeepsDefaults(t *testing.T) {
	p, err := Compile("plain.tengo", []byte(`
attack := func(engine, target) { engine.damage(1) }
special := func(engine, target) {}
`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Behavior().(combatant.ChanceOverrider); ok {
		t.Fatalf("plain script overrides chances")
	}
}

func TestScriptActionsReachTheWorld(t *testing.T) {
	ws, ctx, target := setup(t)
	p, err := Compile("brute.tengo", []byte(brute))
	if err != nil {
		t.Fatal(err)
	}
	b := p.Behavior()

	if err := b.Attack(ctx, target); err != nil {
		t.Fatal(err)
	}
	e, _ := ws.Entity(target.ID)
	if e.Health != 16 {
		t.Fatalf("health after attack = %v", e.Health)
	}

	if err := b.SpecialAbility(ctx, e); err != nil {
		t.Fatal(err)
	}
	e, _ = ws.Entity(target.ID)
	if e.Health != 13 {
		t.Fatalf("health after explosion = %v", e.Health)
	}
	if self, _ := ws.Entity(ctx.Self); self.Health != self.Attr.MaxHealth {
		t.Fatalf("igniter hurt by its own explosion")
	}
}

func TestScriptRuntimeErrorIsActionError(t *testing.T) {
	_, ctx, target := setup(t)
	p, err := Compile("bad.tengo", []byte(`
attack := func(engine, target) { engine.damage("lots") }
special := func(engine, target) { engine.summon("skeleton_minion") }
`))
	if err != nil {
		t.Fatal(err)
	}
	b := p.Behavior()
	if err := b.Attack(ctx, target); err == nil {
		t.Fatalf("non-numeric damage accepted")
	}
	if err := b.SpecialAbility(ctx, target); err == nil {
		t.Fatalf("summon without a summoner succeeded")
	}
}

func TestCompileErrors(t *testing.T) {
	cases := map[string]string{
		"syntax":          `attack := func(engine, target) {`,
		"missing special": `attack := func(engine, target) {}`,
		"bad stats":       "stats := {max_health: \"lots\"}\nattack := func(e, t) {}\nspecial := func(e, t) {}",
		"bad chances":     "chances := {attack: 2, special: 0}\nattack := func(e, t) {}\nspecial := func(e, t) {}",
		"partial chances": "chances := {attack: 0.5}\nattack := func(e, t) {}\nspecial := func(e, t) {}",
		"os import":       "os := import(\"os\")\nattack := func(e, t) { os.remove(\"x\") }\nspecial := func(e, t) {}",
	}
	for name, src := range cases {
		if _, err := Compile(name, []byte(src)); !errors.Is(err, ErrScript) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestScriptsImportPureModules(t *testing.T) {
	_, ctx, target := setup(t)
	p, err := Compile("mathy.tengo", []byte(`
math := import("math")
attack := func(engine, target) { engine.damage(math.floor(2.7)) }
special := func(engine, target) {}
`))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Behavior().Attack(ctx, target); err != nil {
		t.Fatal(err)
	}
}

func TestEngineCachesByPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "brute.tengo"), []byte(brute), 0o644); err != nil {
		t.Fatal(err)
	}
	e := NewEngine(dir, nil)
	a, err := e.Load("brute.tengo")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Load("brute.tengo")
	if a != b {
		t.Fatalf("second load recompiled")
	}
	e.Forget()
	c, _ := e.Load("brute.tengo")
	if c == a {
		t.Fatalf("Forget kept the cache")
	}
	if _, err := e.Factory("missing.tengo"); !errors.Is(err, ErrScript) {
		t.Fatalf("missing file: %v", err)
	}
}
