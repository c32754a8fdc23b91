package handler

import (
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/scoring"
)

// FeedSnapshot is the live countdown and scoreboard frame.
type FeedSnapshot struct {
	Time      time.Time       `json:"time"`
	Active    []ActiveView    `json:"active"`
	Scheduled []ScheduledView `json:"scheduled"`
	Bosses    []BossView      `json:"bosses"`
}

type ActiveView struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Type             string          `json:"type"`
	Forced           bool            `json:"forced"`
	RemainingSeconds int64           `json:"remaining_seconds"`
	Participants     int             `json:"participants"`
	Rankings         []scoring.Entry `json:"rankings"`
}

type ScheduledView struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	State string     `json:"state"`
	Next  *time.Time `json:"next,omitempty"`
}

type BossView struct {
	SessionID    string `json:"session_id"`
	MobID        string `json:"mob_id"`
	Entity       int32  `json:"entity"`
	Participants int    `json:"participants"`
	MinionKills  int    `json:"minion_kills"`
}

// BuildFeedSnapshot assembles the current frame. Read-only.
func BuildFeedSnapshot(deps *Deps) FeedSnapshot {
	now := deps.Events.Now()
	snap := FeedSnapshot{
		Time:      now,
		Active:    []ActiveView{},
		Scheduled: []ScheduledView{},
		Bosses:    []BossView{},
	}
	for _, inst := range deps.Events.ActiveEvents() {
		snap.Active = append(snap.Active, ActiveView{
			ID:               inst.Def.ID,
			Name:             inst.Def.Name,
			Type:             string(inst.Def.Type),
			Forced:           inst.Forced,
			RemainingSeconds: inst.RemainingSeconds(now),
			Participants:     inst.Ledger.Participants(),
			Rankings:         inst.Ledger.Rankings(),
		})
	}
	for _, se := range deps.Events.ScheduledEvents() {
		v := ScheduledView{ID: se.Def.ID, Name: se.Def.Name, State: string(se.State)}
		if !se.Next.IsZero() {
			next := se.Next
			v.Next = &next
		}
		snap.Scheduled = append(snap.Scheduled, v)
	}
	if deps.Bosses != nil {
		for _, s := range deps.Bosses.Sessions() {
			snap.Bosses = append(snap.Bosses, BossView{
				SessionID:    s.SessionID,
				MobID:        s.MobID,
				Entity:       int32(s.Boss),
				Participants: s.Participants,
				MinionKills:  s.MinionKills,
			})
		}
	}
	return snap
}
