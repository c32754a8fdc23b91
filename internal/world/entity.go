package world

import "errors"

// EntityID is a handle into the State's entity table. Holding one does not
// keep the entity alive; check IsValid before every use.
type EntityID int32

var (
	// ErrSpawnFailed is returned when the host rejects a spawn.
	ErrSpawnFailed = errors.New("world: spawn failed")
	// ErrUnknownEntity is returned for handles that are absent or removed.
	ErrUnknownEntity = errors.New("world: unknown entity")
)

// Kind classifies table entries.
type Kind int

const (
	KindMob Kind = iota
	KindPlayer
	KindProjectile // arrows, fireballs: Source is the shooter
	KindExplosive  // primed explosives: Source is the igniter
)

// GameMode is a player's interaction mode.
type GameMode int

const (
	ModeSurvival GameMode = iota
	ModeAdventure
	ModeCreative
	ModeSpectator
)

// Vulnerable reports whether monsters may target a player in this mode.
func (m GameMode) Vulnerable() bool {
	return m == ModeSurvival || m == ModeAdventure
}

// DamageCause describes how damage was delivered.
type DamageCause int

const (
	CauseMelee DamageCause = iota
	CauseProjectile
	CauseExplosion
	CauseMagic
)

func (c DamageCause) String() string {
	switch c {
	case CauseMelee:
		return "melee"
	case CauseProjectile:
		return "projectile"
	case CauseExplosion:
		return "explosion"
	case CauseMagic:
		return "magic"
	}
	return "unknown"
}

// Location is a point in a named world.
type Location struct {
	World   string
	X, Y, Z float64
}

// DistanceSq returns the squared distance to o, or +Inf across worlds.
func (l Location) DistanceSq(o Location) float64 {
	if l.World != o.World {
		return inf
	}
	dx, dy, dz := l.X-o.X, l.Y-o.Y, l.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// Attributes are the mutable combat stats of a living entity.
type Attributes struct {
	MaxHealth float64
	Damage    float64
	Speed     float64
}

// Entity is a snapshot of a table entry. Mutations go through State.
type Entity struct {
	ID     EntityID
	Kind   Kind
	Name   string
	Loc    Location
	Health float64
	Attr   Attributes
	Mode   GameMode
	Dead   bool
	Source EntityID // shooter or igniter for projectiles/explosives
	Tags   map[string]string
}

// Alive reports whether the entity can act or be targeted.
func (e Entity) Alive() bool { return !e.Dead && e.Health > 0 }

// DamageEvent is reported to the Listener for every applied hit.
type DamageEvent struct {
	Victim  EntityID
	Damager EntityID // direct damager; may be a projectile or explosive
	Source  EntityID // shooter/igniter behind Damager, 0 for direct hits
	Cause   DamageCause
	Amount  float64
	Loc     Location // victim position
}

// DeathEvent is reported when an entity's health reaches zero.
type DeathEvent struct {
	Victim     EntityID
	VictimKind Kind
	Killer     EntityID // last damager
	Source     EntityID // shooter/igniter behind Killer
	Cause      DamageCause
	Loc        Location
}

// RespawnEvent is reported when a dead player returns.
type RespawnEvent struct {
	Player   EntityID
	DeathLoc Location
	Loc      Location
}

// Listener receives the host damage stream. Callbacks run after the State
// lock is released and may call back into the State.
type Listener interface {
	EntityDamaged(ev DamageEvent)
	EntityDied(ev DeathEvent)
	PlayerRespawned(ev RespawnEvent)
}
