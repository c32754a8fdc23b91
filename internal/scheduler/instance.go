package scheduler

import (
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/scoring"
)

// Instance is one running occurrence of a definition. Its fields never
// change after promotion; the ledger is goroutine-safe.
type Instance struct {
	ID     string
	Def    Definition
	Start  time.Time
	End    time.Time
	Forced bool
	Ledger *scoring.Ledger
}

// Remaining returns max(0, End-now).
func (i *Instance) Remaining(now time.Time) time.Duration {
	d := i.End.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RemainingSeconds rounds the remaining time up, so it reads 0 only at or
// after expiry.
func (i *Instance) RemainingSeconds(now time.Time) int64 {
	d := i.Remaining(now)
	return int64((d + time.Second - 1) / time.Second)
}

// Expired reports whether now has reached End.
func (i *Instance) Expired(now time.Time) bool { return !now.Before(i.End) }

// ScoresData returns player's scoreboard view of this instance.
func (i *Instance) ScoresData(player string, now time.Time) scoring.ScoresData {
	d := i.Ledger.Snapshot(player)
	d.EventID = i.Def.ID
	d.EventName = i.Def.Name
	d.RemainingSeconds = i.RemainingSeconds(now)
	return d
}
