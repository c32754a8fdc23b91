package system

import (
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/core/event"
	coresys "github.com/Clemdlc1/CustomMonster-sub001/internal/core/system"
	"go.uber.org/zap"
)

// burstWarn is the per-tick event count that gets logged; a necromancer
// pack summoning in the same tick stays well under it.
const burstWarn = 256

// EventDispatchSystem swaps the event bus double-buffer and dispatches
// all combat and lifecycle signals from the previous tick. Phase 1 (PreUpdate).
type EventDispatchSystem struct {
	bus        *event.Bus
	log        *zap.Logger
	dispatched uint64
}

func NewEventDispatchSystem(bus *event.Bus, log *zap.Logger) *EventDispatchSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventDispatchSystem{bus: bus, log: log}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

// Dispatched returns the number of signals delivered since start.
func (s *EventDispatchSystem) Dispatched() uint64 { return s.dispatched }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	n := s.bus.DispatchAll()
	s.dispatched += uint64(n)
	if n >= burstWarn {
		s.log.Warn("signal burst", zap.Int("events", n))
	}
}
