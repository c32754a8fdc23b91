package system

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is a handle to a scheduled callback.
type Task struct {
	id        uint64
	name      string
	fn        func()
	period    uint64 // 0 = run once
	next      uint64
	cancelled atomic.Bool
}

// Cancel stops future runs. A run already in progress completes.
func (t *Task) Cancel() { t.cancelled.Store(true) }

// Cancelled reports whether Cancel was called or a one-shot task has run.
func (t *Task) Cancelled() bool { return t.cancelled.Load() }

// Name returns the label given at scheduling time.
func (t *Task) Name() string { return t.name }

// TaskHost runs delayed and fixed-delay repeating callbacks on the game loop.
// Schedule and Cancel are safe from any goroutine; callbacks always run on
// the goroutine driving Update. A panicking callback is logged and the task
// keeps its schedule.
type TaskHost struct {
	mu     sync.Mutex
	tick   uint64
	nextID uint64
	tasks  map[uint64]*Task
	log    *zap.Logger
}

func NewTaskHost(log *zap.Logger) *TaskHost {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskHost{
		tasks: make(map[uint64]*Task),
		log:   log,
	}
}

func (h *TaskHost) Phase() Phase { return PhaseUpdate }

// Schedule runs fn after delay ticks, then every period ticks when period > 0.
// Repetition is fixed-delay: the next run is counted from the end of the
// previous one.
func (h *TaskHost) Schedule(name string, delay, period int, fn func()) *Task {
	if delay < 0 {
		delay = 0
	}
	if period < 0 {
		period = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	t := &Task{
		id:     h.nextID,
		name:   name,
		fn:     fn,
		period: uint64(period),
		next:   h.tick + uint64(delay) + 1,
	}
	h.tasks[t.id] = t
	return t
}

// Len returns the number of live tasks.
func (h *TaskHost) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, t := range h.tasks {
		if !t.Cancelled() {
			n++
		}
	}
	return n
}

// Update advances the host one tick and runs every due task.
func (h *TaskHost) Update(_ time.Duration) {
	h.mu.Lock()
	h.tick++
	now := h.tick
	var due []*Task
	for id, t := range h.tasks {
		if t.Cancelled() {
			delete(h.tasks, id)
			continue
		}
		if t.next <= now {
			due = append(due, t)
		}
	}
	h.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].id < due[j].id })

	for _, t := range due {
		if t.Cancelled() {
			continue
		}
		h.run(t)
		if t.period == 0 {
			t.Cancel()
			continue
		}
		t.next = now + t.period
	}
}

func (h *TaskHost) run(t *Task) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("task panicked",
				zap.String("task", t.name),
				zap.Error(fmt.Errorf("%v", r)),
			)
		}
	}()
	t.fn()
}

// Shutdown cancels every task.
func (h *TaskHost) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, t := range h.tasks {
		t.Cancel()
		delete(h.tasks, id)
	}
}
