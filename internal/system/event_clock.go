package system

import (
	coresys "github.com/Clemdlc1/CustomMonster-sub001/internal/core/system"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scheduler"
	"go.uber.org/zap"
)

// EventClock drives the scheduler from the game loop: a repeating task
// on the TaskHost calls Scheduler.Tick every interval ticks, so event
// starts and ends happen between phases and never race the combat drain.
type EventClock struct {
	events   *scheduler.Scheduler
	interval int
	log      *zap.Logger
	task     *coresys.Task
}

func NewEventClock(events *scheduler.Scheduler, intervalTicks int, log *zap.Logger) *EventClock {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EventClock{events: events, interval: intervalTicks, log: log}
}

// Start registers the clock task. The first tick runs on the next update.
func (c *EventClock) Start(tasks *coresys.TaskHost) {
	if c.task != nil {
		return
	}
	c.task = tasks.Schedule("event-clock", 0, c.interval, c.events.Tick)
	c.log.Info("event clock started", zap.Int("interval_ticks", c.interval))
}

func (c *EventClock) Stop() {
	if c.task == nil {
		return
	}
	c.task.Cancel()
	c.task = nil
}
