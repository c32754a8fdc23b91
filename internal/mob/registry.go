package mob

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/combatant"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/core/event"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"go.uber.org/zap"
)

// TagKey is the entity tag carrying the mob id.
const TagKey = "mob_id"

var (
	ErrDuplicateID  = errors.New("mob: duplicate id")
	ErrUnknownMobID = errors.New("mob: unknown id")
)

// Blueprint describes a registered mob. Immutable after Register.
type Blueprint struct {
	ID      string
	Name    string
	Stats   world.Attributes
	Boss    bool
	Minion  bool
	Factory func() combatant.Behavior
}

// Host is the host surface needed to spawn and dress a combatant.
type Host interface {
	combatant.Host
	SpawnMob(name string, loc world.Location) (world.EntityID, error)
	SetTag(id world.EntityID, key, value string) error
	SetAttributes(id world.EntityID, attr world.Attributes) error
}

// SpawnListener is told about every successful spawn.
type SpawnListener interface {
	CombatantSpawned(meta combatant.Meta)
}

// Options wires a Registry.
type Options struct {
	Host   Host
	Tasks  combatant.TaskScheduler
	Table  *combatant.Table
	Config combatant.Config
	Rand   *combatant.Source
	Bus    *event.Bus
	Log    *zap.Logger
	Now    func() time.Time
}

// Registry maps mob ids to spawn factories. Append-only: ids are never
// unregistered for the life of the process.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Blueprint
	order []string

	host      Host
	tasks     combatant.TaskScheduler
	table     *combatant.Table
	cfg       combatant.Config
	rng       *combatant.Source
	bus       *event.Bus
	log       *zap.Logger
	now       func() time.Time
	listeners []SpawnListener
}

func NewRegistry(o Options) *Registry {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Rand == nil {
		o.Rand = combatant.NewSource(0)
	}
	if o.Table == nil {
		o.Table = combatant.NewTable()
	}
	return &Registry{
		byID:  make(map[string]Blueprint),
		host:  o.Host,
		tasks: o.Tasks,
		table: o.Table,
		cfg:   o.Config,
		rng:   o.Rand,
		bus:   o.Bus,
		log:   o.Log,
		now:   o.Now,
	}
}

// AddListener subscribes l to spawns. Call during wiring, before spawning.
func (r *Registry) AddListener(l SpawnListener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// Register adds bp. A duplicate id fails without touching the existing entry.
func (r *Registry) Register(bp Blueprint) error {
	if bp.ID == "" {
		return fmt.Errorf("mob: empty id")
	}
	if bp.Factory == nil {
		return fmt.Errorf("mob %s: nil factory", bp.ID)
	}
	if bp.Name == "" {
		bp.Name = bp.ID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[bp.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, bp.ID)
	}
	r.byID[bp.ID] = bp
	r.order = append(r.order, bp.ID)
	return nil
}

func (r *Registry) IsRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// IDs returns registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Blueprint(id string) (Blueprint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bp, ok := r.byID[id]
	return bp, ok
}

// Table exposes the controller side-table.
func (r *Registry) Table() *combatant.Table { return r.table }

// Spawn creates a live combatant of type id at loc and starts its tick.
func (r *Registry) Spawn(id string, loc world.Location) (*combatant.Controller, error) {
	return r.spawn(id, loc, false)
}

func (r *Registry) spawn(id string, loc world.Location, summoned bool) (*combatant.Controller, error) {
	r.mu.RLock()
	bp, ok := r.byID[id]
	listeners := r.listeners
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMobID, id)
	}

	eid, err := r.host.SpawnMob(bp.Name, loc)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", id, err)
	}
	behavior := bp.Factory()
	attr := behavior.SetDefaultStats(bp.Stats)
	if err := r.host.SetAttributes(eid, attr); err != nil {
		r.host.Remove(eid)
		return nil, fmt.Errorf("spawn %s: set attributes: %w", id, err)
	}
	if err := r.host.SetTag(eid, TagKey, id); err != nil {
		r.host.Remove(eid)
		return nil, fmt.Errorf("spawn %s: tag: %w", id, err)
	}

	ctrl := combatant.New(combatant.Options{
		Entity:   eid,
		MobID:    id,
		Behavior: behavior,
		Host:     r.host,
		Table:    r.table,
		Config:   r.cfg,
		Rand:     r.rng.Derive(),
		Bus:      r.bus,
		Summon:   r.summon,
		Log:      r.log,
	})
	meta := combatant.Meta{
		EntityID:   eid,
		MobID:      id,
		Boss:       bp.Boss,
		Minion:     bp.Minion || summoned,
		SpawnedAt:  r.now(),
		Controller: ctrl,
	}
	r.table.Put(meta)
	if r.tasks != nil {
		ctrl.Start(r.tasks)
	}

	r.log.Debug("combatant spawned",
		zap.String("mob", id),
		zap.Int32("entity", int32(eid)),
		zap.Bool("boss", meta.Boss),
		zap.Bool("minion", meta.Minion),
	)
	for _, l := range listeners {
		l.CombatantSpawned(meta)
	}
	return ctrl, nil
}

func (r *Registry) summon(mobID string, loc world.Location) (world.EntityID, error) {
	ctrl, err := r.spawn(mobID, loc, true)
	if err != nil {
		return 0, err
	}
	return ctrl.Entity(), nil
}
