package system

import (
	"encoding/json"
	"time"

	coresys "github.com/Clemdlc1/CustomMonster-sub001/internal/core/system"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/handler"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/net"
	"go.uber.org/zap"
)

// FeedSystem publishes the countdown and scoreboard frame to the live feed.
// Phase 4 (Output): runs after all game logic, so a frame always reflects
// the finished tick.
type FeedSystem struct {
	deps      *handler.Deps
	hub       *net.Hub
	tickCount int
	interval  int
}

func NewFeedSystem(deps *handler.Deps, hub *net.Hub, intervalTicks int) *FeedSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	return &FeedSystem{deps: deps, hub: hub, interval: intervalTicks}
}

func (s *FeedSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *FeedSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0

	frame, err := json.Marshal(handler.BuildFeedSnapshot(s.deps))
	if err != nil {
		if s.deps.Log != nil {
			s.deps.Log.Error("feed frame encode failed", zap.Error(err))
		}
		return
	}
	s.hub.Broadcast(frame)
}
