package event

import "time"

// --- Combat signals (emitted by combatant controllers, readable next tick) ---

// CombatantAttacked is emitted when a controller's attack draw fires.
type CombatantAttacked struct {
	EntityID int32
	MobID    string
	TargetID int32
}

// CombatantAbility is emitted when a controller's special-ability draw fires.
type CombatantAbility struct {
	EntityID int32
	MobID    string
	TargetID int32
}

// MinionSummoned is emitted when a combatant spawns another combatant.
type MinionSummoned struct {
	SummonerID int32
	MinionID   int32
	MobID      string
}

// --- Event lifecycle ---

// EventStarted is emitted when an event instance becomes active.
type EventStarted struct {
	EventID    string
	InstanceID string
	Name       string
	EndsAt     time.Time
	Forced     bool
}

// EventEnded is emitted when an active instance ends (expiry, force-stop, shutdown).
type EventEnded struct {
	EventID    string
	InstanceID string
	Reason     string
	Winner     string // top-ranked group, "" when nothing was scored
}

// BossDefeated is emitted once per finalized boss session.
// Subscribers: announcements, feed.
type BossDefeated struct {
	SessionID string
	BossID    int32
	MobID     string
	Defeated  bool // false when the boss despawned without dying
	KillerID  int32
}
