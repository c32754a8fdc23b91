package combatant

import (
	"sync"
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
)

// Meta is the controller metadata recorded for a spawned entity.
type Meta struct {
	EntityID   world.EntityID
	MobID      string
	Boss       bool
	Minion     bool
	SpawnedAt  time.Time
	Controller *Controller
}

// Table maps host entity IDs to controller metadata. Read-heavy: lookups
// happen on every damage and death report.
type Table struct {
	mu   sync.RWMutex
	byID map[world.EntityID]Meta
}

func NewTable() *Table {
	return &Table{byID: make(map[world.EntityID]Meta)}
}

func (t *Table) Put(m Meta) {
	t.mu.Lock()
	t.byID[m.EntityID] = m
	t.mu.Unlock()
}

func (t *Table) Get(id world.EntityID) (Meta, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.byID[id]
	return m, ok
}

func (t *Table) Remove(id world.EntityID) {
	t.mu.Lock()
	delete(t.byID, id)
	t.mu.Unlock()
}

// IsBoss reports whether id is a tracked boss.
func (t *Table) IsBoss(id world.EntityID) bool {
	m, ok := t.Get(id)
	return ok && m.Boss
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// Bosses returns the metadata of every tracked boss.
func (t *Table) Bosses() []Meta {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Meta
	for _, m := range t.byID {
		if m.Boss {
			out = append(out, m)
		}
	}
	return out
}
