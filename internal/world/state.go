package world

import (
	"fmt"
	"math"
	"sync"
)

var inf = math.Inf(1)

// State is the in-process host world: an entity table with liveness, an AOI
// index and capture points. It implements the host surface consumed by the
// combat and event packages (spawn, tagging, attribute mutation, spatial
// queries). All methods are goroutine-safe; listener callbacks fire after
// the lock is released.
type State struct {
	mu       sync.RWMutex
	worlds   map[string]struct{}
	entities map[EntityID]*Entity
	grid     *AOIGrid
	points   map[string]*CapturePoint
	nextID   EntityID
	listener Listener
}

func NewState(worlds ...string) *State {
	s := &State{
		worlds:   make(map[string]struct{}),
		entities: make(map[EntityID]*Entity),
		grid:     NewAOIGrid(),
		points:   make(map[string]*CapturePoint),
	}
	for _, w := range worlds {
		s.worlds[w] = struct{}{}
	}
	return s
}

// SetListener installs the damage stream receiver.
func (s *State) SetListener(l Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// LoadWorld makes a world name valid for spawns.
func (s *State) LoadWorld(name string) {
	s.mu.Lock()
	s.worlds[name] = struct{}{}
	s.mu.Unlock()
}

func (s *State) HasWorld(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.worlds[name]
	return ok
}

func (s *State) addLocked(e *Entity) EntityID {
	s.nextID++
	e.ID = s.nextID
	if e.Tags == nil {
		e.Tags = make(map[string]string)
	}
	s.entities[e.ID] = e
	s.grid.Add(e.ID, e.Loc)
	return e.ID
}

func (s *State) removeLocked(id EntityID) {
	e := s.entities[id]
	if e == nil {
		return
	}
	s.grid.Remove(id, e.Loc)
	delete(s.entities, id)
}

func (s *State) checkWorldLocked(loc Location) error {
	if _, ok := s.worlds[loc.World]; !ok {
		return fmt.Errorf("%w: world %q not loaded", ErrSpawnFailed, loc.World)
	}
	return nil
}

// AddPlayer inserts a player in the given mode at full health.
func (s *State) AddPlayer(name string, loc Location, mode GameMode) (EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWorldLocked(loc); err != nil {
		return 0, err
	}
	attr := Attributes{MaxHealth: 20, Damage: 1, Speed: 0.1}
	return s.addLocked(&Entity{Kind: KindPlayer, Name: name, Loc: loc, Mode: mode, Attr: attr, Health: attr.MaxHealth}), nil
}

// SpawnMob is the spawn primitive: it creates an untagged living entity.
func (s *State) SpawnMob(name string, loc Location) (EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWorldLocked(loc); err != nil {
		return 0, err
	}
	attr := Attributes{MaxHealth: 20, Damage: 2, Speed: 0.25}
	return s.addLocked(&Entity{Kind: KindMob, Name: name, Loc: loc, Attr: attr, Health: attr.MaxHealth}), nil
}

// SpawnProjectile creates a projectile owned by shooter.
func (s *State) SpawnProjectile(shooter EntityID, loc Location) (EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWorldLocked(loc); err != nil {
		return 0, err
	}
	return s.addLocked(&Entity{Kind: KindProjectile, Name: "projectile", Loc: loc, Health: 1, Source: shooter}), nil
}

// Remove despawns an entity without a death event.
func (s *State) Remove(id EntityID) {
	s.mu.Lock()
	s.removeLocked(id)
	s.mu.Unlock()
}

// IsValid reports whether id refers to a present, living entity.
func (s *State) IsValid(id EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entities[id]
	return e != nil && e.Alive()
}

// Entity returns a snapshot of the entry.
func (s *State) Entity(id EntityID) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entities[id]
	if e == nil {
		return Entity{}, false
	}
	return snapshot(e), true
}

func snapshot(e *Entity) Entity {
	c := *e
	c.Tags = make(map[string]string, len(e.Tags))
	for k, v := range e.Tags {
		c.Tags[k] = v
	}
	return c
}

// Position returns the entity location.
func (s *State) Position(id EntityID) (Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entities[id]
	if e == nil {
		return Location{}, false
	}
	return e.Loc, true
}

// Teleport moves an entity.
func (s *State) Teleport(id EntityID, loc Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entities[id]
	if e == nil {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	s.grid.Move(id, e.Loc, loc)
	e.Loc = loc
	return nil
}

// SetMode changes a player's game mode.
func (s *State) SetMode(id EntityID, mode GameMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entities[id]
	if e == nil || e.Kind != KindPlayer {
		return fmt.Errorf("%w: player %d", ErrUnknownEntity, id)
	}
	e.Mode = mode
	return nil
}

// SetTag attaches a string identity key.
func (s *State) SetTag(id EntityID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entities[id]
	if e == nil {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	e.Tags[key] = value
	return nil
}

// Tag reads a string identity key.
func (s *State) Tag(id EntityID, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entities[id]
	if e == nil {
		return "", false
	}
	v, ok := e.Tags[key]
	return v, ok
}

// SetAttributes replaces combat stats and refills health to the new maximum.
func (s *State) SetAttributes(id EntityID, attr Attributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entities[id]
	if e == nil || !e.Alive() {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	if attr.MaxHealth <= 0 {
		return fmt.Errorf("world: max health must be positive, got %v", attr.MaxHealth)
	}
	e.Attr = attr
	e.Health = attr.MaxHealth
	return nil
}

// Heal restores health up to the maximum.
func (s *State) Heal(id EntityID, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entities[id]
	if e == nil || !e.Alive() {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	e.Health = math.Min(e.Attr.MaxHealth, e.Health+amount)
	return nil
}

// Damage applies amount to target on behalf of damager and reports whether
// the hit was lethal. Projectile and explosive damagers are resolved to
// their Source in the emitted events.
func (s *State) Damage(target, damager EntityID, cause DamageCause, amount float64) (bool, error) {
	s.mu.Lock()
	dmg, death, err := s.damageLocked(target, damager, cause, amount)
	l := s.listener
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	s.notify(l, []DamageEvent{dmg}, death)
	return len(death) > 0, nil
}

func (s *State) damageLocked(target, damager EntityID, cause DamageCause, amount float64) (DamageEvent, []DeathEvent, error) {
	e := s.entities[target]
	if e == nil || !e.Alive() {
		return DamageEvent{}, nil, fmt.Errorf("%w: %d", ErrUnknownEntity, target)
	}
	var source EntityID
	if d := s.entities[damager]; d != nil && (d.Kind == KindProjectile || d.Kind == KindExplosive) {
		source = d.Source
	}
	e.Health -= amount
	ev := DamageEvent{Victim: target, Damager: damager, Source: source, Cause: cause, Amount: amount, Loc: e.Loc}
	if e.Health > 0 {
		return ev, nil, nil
	}
	e.Health = 0
	e.Dead = true
	death := DeathEvent{Victim: target, VictimKind: e.Kind, Killer: damager, Source: source, Cause: cause, Loc: e.Loc}
	if e.Kind != KindPlayer {
		s.removeLocked(target)
	}
	return ev, []DeathEvent{death}, nil
}

// Explode damages every living non-projectile entity within radius of
// center except the igniter, through a short-lived explosive entity.
func (s *State) Explode(igniter EntityID, center Location, radius, amount float64) ([]EntityID, error) {
	s.mu.Lock()
	if err := s.checkWorldLocked(center); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	bomb := s.addLocked(&Entity{Kind: KindExplosive, Name: "explosive", Loc: center, Health: 1, Source: igniter})
	var (
		hit    []EntityID
		damage []DamageEvent
		deaths []DeathEvent
	)
	r2 := radius * radius
	for _, id := range s.grid.Within(center, radius) {
		e := s.entities[id]
		if e == nil || id == igniter || id == bomb || !e.Alive() {
			continue
		}
		if e.Kind == KindProjectile || e.Kind == KindExplosive {
			continue
		}
		if e.Loc.DistanceSq(center) > r2 {
			continue
		}
		ev, death, err := s.damageLocked(id, bomb, CauseExplosion, amount)
		if err != nil {
			continue
		}
		hit = append(hit, id)
		damage = append(damage, ev)
		deaths = append(deaths, death...)
	}
	s.removeLocked(bomb)
	l := s.listener
	s.mu.Unlock()

	s.notify(l, damage, deaths)
	return hit, nil
}

// Kill sets a living entity's health to zero on behalf of killer.
func (s *State) Kill(id, killer EntityID) error {
	s.mu.RLock()
	e := s.entities[id]
	var hp float64
	if e != nil {
		hp = e.Health
	}
	s.mu.RUnlock()
	_, err := s.Damage(id, killer, CauseMagic, hp)
	return err
}

// Respawn revives a dead player at loc.
func (s *State) Respawn(player EntityID, loc Location) error {
	s.mu.Lock()
	e := s.entities[player]
	if e == nil || e.Kind != KindPlayer {
		s.mu.Unlock()
		return fmt.Errorf("%w: player %d", ErrUnknownEntity, player)
	}
	if !e.Dead {
		s.mu.Unlock()
		return nil
	}
	ev := RespawnEvent{Player: player, DeathLoc: e.Loc, Loc: loc}
	e.Dead = false
	e.Health = e.Attr.MaxHealth
	s.grid.Move(player, e.Loc, loc)
	e.Loc = loc
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l.PlayerRespawned(ev)
	}
	return nil
}

func (s *State) notify(l Listener, damage []DamageEvent, deaths []DeathEvent) {
	if l == nil {
		return
	}
	for _, ev := range damage {
		l.EntityDamaged(ev)
	}
	for _, ev := range deaths {
		l.EntityDied(ev)
	}
}

// Nearby returns snapshots of all entities within radius of origin.
func (s *State) Nearby(origin Location, radius float64) []Entity {
	return s.nearby(origin, radius, func(*Entity) bool { return true })
}

// NearbyPlayers returns snapshots of players within radius of origin, in
// index iteration order.
func (s *State) NearbyPlayers(origin Location, radius float64) []Entity {
	return s.nearby(origin, radius, func(e *Entity) bool { return e.Kind == KindPlayer })
}

func (s *State) nearby(origin Location, radius float64, keep func(*Entity) bool) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r2 := radius * radius
	var out []Entity
	for _, id := range s.grid.Within(origin, radius) {
		e := s.entities[id]
		if e == nil || !keep(e) || e.Loc.DistanceSq(origin) > r2 {
			continue
		}
		out = append(out, snapshot(e))
	}
	return out
}

// Players returns snapshots of every player.
func (s *State) Players() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entity
	for _, e := range s.entities {
		if e.Kind == KindPlayer {
			out = append(out, snapshot(e))
		}
	}
	return out
}

// Count returns the number of table entries.
func (s *State) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}
