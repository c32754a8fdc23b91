package system

import (
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/boss"
	coresys "github.com/Clemdlc1/CustomMonster-sub001/internal/core/system"
)

// BossSweepSystem closes boss sessions whose boss left the world without
// dying, at a fixed interval. Phase 3 (PostUpdate).
type BossSweepSystem struct {
	tracker   *boss.Tracker
	tickCount int
	interval  int // sweep every N ticks
}

func NewBossSweepSystem(tracker *boss.Tracker, intervalTicks int) *BossSweepSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	return &BossSweepSystem{
		tracker:  tracker,
		interval: intervalTicks,
	}
}

func (s *BossSweepSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *BossSweepSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.tracker.Sweep()
}
