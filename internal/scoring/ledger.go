package scoring

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrGroupNotAllowed is returned when a player joins a group the event
	// does not field.
	ErrGroupNotAllowed = errors.New("scoring: group not allowed")
	// ErrAlreadyJoined is returned when a player switches groups mid-event.
	ErrAlreadyJoined = errors.New("scoring: already joined another group")
)

// Weights are the points granted per action.
type Weights struct {
	MonsterKill int
	PlayerKill  int
	Capture     int
}

func DefaultWeights() Weights {
	return Weights{MonsterKill: 1, PlayerKill: 3, Capture: 5}
}

// Breakdown counts scored actions. FriendlyFireKills never adds to Score.
type Breakdown struct {
	MonsterKills      int `json:"monster_kills"`
	PlayerKills       int `json:"player_kills"`
	Captures          int `json:"captures"`
	FriendlyFireKills int `json:"friendly_fire_kills"`
}

// Entry is one group's standing.
type Entry struct {
	Group     string    `json:"group"`
	Score     int       `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// ScoresData is a read-only view of a ledger for one player. The event
// fields are filled in by the owner of the ledger.
type ScoresData struct {
	EventID          string    `json:"event_id"`
	EventName        string    `json:"event_name"`
	Player           string    `json:"player"`
	Group            string    `json:"group"`
	Joined           bool      `json:"joined"`
	Score            int       `json:"score"`
	PersonalPoints   int       `json:"personal_points"`
	Breakdown        Breakdown `json:"breakdown"`
	Rankings         []Entry   `json:"rankings"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Participants     int       `json:"participants"`
	Groups           int       `json:"groups"`
}

// Ledger accumulates one event instance's group scores. All mutations are
// additive; a ledger is discarded when its instance ends.
type Ledger struct {
	mu       sync.RWMutex
	weights  Weights
	allowed  map[string]struct{} // empty = any group
	groups   map[string]*Entry
	members  map[string]string // player -> group
	personal map[string]int    // player -> points earned
}

func NewLedger(w Weights, groups []string) *Ledger {
	l := &Ledger{
		weights:  w,
		allowed:  make(map[string]struct{}, len(groups)),
		groups:   make(map[string]*Entry),
		members:  make(map[string]string),
		personal: make(map[string]int),
	}
	for _, g := range groups {
		l.allowed[g] = struct{}{}
		l.groups[g] = &Entry{Group: g}
	}
	return l
}

func (l *Ledger) entryLocked(group string) *Entry {
	e := l.groups[group]
	if e == nil {
		e = &Entry{Group: group}
		l.groups[group] = e
	}
	return e
}

func (l *Ledger) permitted(group string) bool {
	if len(l.allowed) == 0 {
		return true
	}
	_, ok := l.allowed[group]
	return ok
}

// Join enrolls player in group. Joining the same group twice is a no-op.
func (l *Ledger) Join(player, group string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.permitted(group) {
		return fmt.Errorf("%w: %q", ErrGroupNotAllowed, group)
	}
	if cur, ok := l.members[player]; ok {
		if cur == group {
			return nil
		}
		return fmt.Errorf("%w: %s is in %q", ErrAlreadyJoined, player, cur)
	}
	l.members[player] = group
	l.entryLocked(group)
	return nil
}

// GroupOf returns the group player joined.
func (l *Ledger) GroupOf(player string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	g, ok := l.members[player]
	return g, ok
}

// RecordMonsterKill credits group, and player when non-empty. Groups the
// ledger does not allow are ignored.
func (l *Ledger) RecordMonsterKill(group, player string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.permitted(group) {
		return
	}
	e := l.entryLocked(group)
	e.Breakdown.MonsterKills++
	e.Score += l.weights.MonsterKill
	if player != "" {
		l.personal[player] += l.weights.MonsterKill
	}
}

// RecordPlayerKill credits attackerGroup for killing a member of
// victimGroup and reports whether the kill was friendly fire. Friendly fire
// only increments the penalty counter. A kill involving a group the
// ledger does not allow records nothing.
func (l *Ledger) RecordPlayerKill(attackerGroup, victimGroup string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.permitted(attackerGroup) || !l.permitted(victimGroup) {
		return false
	}
	e := l.entryLocked(attackerGroup)
	l.entryLocked(victimGroup)
	if attackerGroup == victimGroup {
		e.Breakdown.FriendlyFireKills++
		return true
	}
	e.Breakdown.PlayerKills++
	e.Score += l.weights.PlayerKill
	return false
}

// CreditPlayer adds personal points for a non-friendly player kill. A
// restricted ledger only credits its members.
func (l *Ledger) CreditPlayer(player string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.members[player]; !ok && len(l.allowed) > 0 {
		return
	}
	l.personal[player] += l.weights.PlayerKill
}

func (l *Ledger) RecordCapture(group string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.permitted(group) {
		return
	}
	e := l.entryLocked(group)
	e.Breakdown.Captures++
	e.Score += l.weights.Capture
}

// Rankings returns groups by descending score, ties by group name.
func (l *Ledger) Rankings() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rankingsLocked()
}

func (l *Ledger) rankingsLocked() []Entry {
	out := make([]Entry, 0, len(l.groups))
	for _, e := range l.groups {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Group < out[j].Group
	})
	return out
}

// Winner returns the top-ranked group, or "" when nobody scored.
func (l *Ledger) Winner() string {
	r := l.Rankings()
	if len(r) == 0 || r[0].Score == 0 {
		return ""
	}
	return r[0].Group
}

func (l *Ledger) Participants() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.members)
}

// Member is one enrolled player and the points they earned personally.
type Member struct {
	Player         string `json:"player"`
	Group          string `json:"group"`
	PersonalPoints int    `json:"personal_points"`
}

// Members lists enrolled players ordered by name.
func (l *Ledger) Members() []Member {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Member, 0, len(l.members))
	for p, g := range l.members {
		out = append(out, Member{Player: p, Group: g, PersonalPoints: l.personal[p]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player < out[j].Player })
	return out
}

// Snapshot assembles player's view of the ledger without mutating it.
func (l *Ledger) Snapshot(player string) ScoresData {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d := ScoresData{
		Player:       player,
		Rankings:     l.rankingsLocked(),
		Participants: len(l.members),
		Groups:       len(l.groups),
	}
	if g, ok := l.members[player]; ok {
		d.Joined = true
		d.Group = g
		d.PersonalPoints = l.personal[player]
		if e := l.groups[g]; e != nil {
			d.Score = e.Score
			d.Breakdown = e.Breakdown
		}
	}
	return d
}
