package combatant

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/core/event"
	coresys "github.com/Clemdlc1/CustomMonster-sub001/internal/core/system"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"go.uber.org/zap"
)

// Config is the shared cadence and draw configuration.
type Config struct {
	IntervalTicks int     // behavior tick period in host ticks
	TargetRadius  float64 // blocks
	AttackChance  float64 // per behavior tick
	SpecialChance float64 // per behavior tick
}

// DefaultConfig matches the stock server settings.
func DefaultConfig() Config {
	return Config{IntervalTicks: 20, TargetRadius: 16, AttackChance: 0.10, SpecialChance: 0.05}
}

// TaskScheduler is the periodic task host.
type TaskScheduler interface {
	Schedule(name string, delay, period int, fn func()) *coresys.Task
}

// Options wires a Controller.
type Options struct {
	Entity   world.EntityID
	MobID    string
	Behavior Behavior
	Host     Host
	Table    *Table
	Config   Config
	Rand     Rand
	Bus      *event.Bus
	Summon   SummonFunc
	Log      *zap.Logger
}

// Stats counts what a controller has done.
type Stats struct {
	Ticks    uint64
	Attacks  uint64
	Specials uint64
	Errors   uint64
}

// Controller drives one spawned entity: a fixed-cadence tick that checks
// liveness, finds the nearest eligible player and draws attack and special
// ability independently.
type Controller struct {
	id       world.EntityID
	mobID    string
	behavior Behavior
	host     Host
	table    *Table
	cfg      Config
	ctx      *Context
	log      *zap.Logger

	task    *coresys.Task
	stopped atomic.Bool
	stop    sync.Once

	ticks    atomic.Uint64
	attacks  atomic.Uint64
	specials atomic.Uint64
	errors   atomic.Uint64
}

func New(o Options) *Controller {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	rng := o.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(int64(o.Entity)))
	}
	c := &Controller{
		id:       o.Entity,
		mobID:    o.MobID,
		behavior: o.Behavior,
		host:     o.Host,
		table:    o.Table,
		cfg:      o.Config,
		log:      log.With(zap.Int32("entity", int32(o.Entity)), zap.String("mob", o.MobID)),
	}
	c.ctx = &Context{
		Self:   o.Entity,
		MobID:  o.MobID,
		Host:   o.Host,
		Rand:   rng,
		Log:    c.log,
		bus:    o.Bus,
		summon: o.Summon,
	}
	return c
}

func (c *Controller) Entity() world.EntityID { return c.id }

func (c *Controller) MobID() string { return c.mobID }

// Start registers the behavior tick with the task host.
func (c *Controller) Start(tasks TaskScheduler) {
	interval := c.cfg.IntervalTicks
	if interval <= 0 {
		interval = 1
	}
	c.task = tasks.Schedule("combatant:"+c.mobID, interval, interval, c.Tick)
}

// Stop cancels the tick and forgets the entity. Terminal.
func (c *Controller) Stop() {
	c.stop.Do(func() {
		c.stopped.Store(true)
		if c.task != nil {
			c.task.Cancel()
		}
		if c.table != nil {
			c.table.Remove(c.id)
		}
	})
}

// Stopped reports whether the controller has terminated.
func (c *Controller) Stopped() bool { return c.stopped.Load() }

func (c *Controller) Stats() Stats {
	return Stats{
		Ticks:    c.ticks.Load(),
		Attacks:  c.attacks.Load(),
		Specials: c.specials.Load(),
		Errors:   c.errors.Load(),
	}
}

// Tick runs one behavior evaluation. An invalid entity stops the controller;
// any other failure is logged and the tick is skipped.
func (c *Controller) Tick() {
	if c.stopped.Load() {
		return
	}
	if !c.host.IsValid(c.id) {
		c.log.Debug("combatant gone, stopping")
		c.Stop()
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.errors.Add(1)
			c.log.Error("combatant tick panicked", zap.Error(fmt.Errorf("%v", r)))
		}
	}()
	c.ticks.Add(1)

	target, ok := c.nearestTarget()
	if !ok {
		return
	}

	attack, special := c.cfg.AttackChance, c.cfg.SpecialChance
	if o, ok := c.behavior.(ChanceOverrider); ok {
		attack, special = o.Chances()
	}

	if c.ctx.Rand.Float64() < attack {
		c.attacks.Add(1)
		event.Emit(c.ctx.bus, event.CombatantAttacked{EntityID: int32(c.id), MobID: c.mobID, TargetID: int32(target.ID)})
		if err := c.behavior.Attack(c.ctx, target); err != nil {
			c.errors.Add(1)
			c.log.Warn("attack failed", zap.Int32("target", int32(target.ID)), zap.Error(err))
		}
	}
	if c.ctx.Rand.Float64() < special {
		c.specials.Add(1)
		event.Emit(c.ctx.bus, event.CombatantAbility{EntityID: int32(c.id), MobID: c.mobID, TargetID: int32(target.ID)})
		if err := c.behavior.SpecialAbility(c.ctx, target); err != nil {
			c.errors.Add(1)
			c.log.Warn("special ability failed", zap.Int32("target", int32(target.ID)), zap.Error(err))
		}
	}
}

// nearestTarget picks the closest alive, vulnerable player within the
// target radius. Equal distances keep the first one seen.
func (c *Controller) nearestTarget() (world.Entity, bool) {
	origin, ok := c.host.Position(c.id)
	if !ok {
		return world.Entity{}, false
	}
	r2 := c.cfg.TargetRadius * c.cfg.TargetRadius
	var (
		best  world.Entity
		bestD = r2
		found bool
	)
	for _, p := range c.host.NearbyPlayers(origin, c.cfg.TargetRadius) {
		if !p.Alive() || !p.Mode.Vulnerable() {
			continue
		}
		d := p.Loc.DistanceSq(origin)
		if d > r2 {
			continue
		}
		if !found || d < bestD {
			best, bestD, found = p, d, true
		}
	}
	return best, found
}
