package system

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Phase orders systems inside one game tick.
type Phase int

const (
	PhasePreUpdate  Phase = iota // event dispatch
	PhaseUpdate                  // combat queue, periodic tasks
	PhasePostUpdate              // sweeps
	PhaseOutput                  // feed flush
	phaseCount
)

// System is one unit of per-tick work.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Runner drives registered systems phase by phase. All systems run on the
// goroutine that calls Tick or Run.
type Runner struct {
	phases [phaseCount][]System
	log    *zap.Logger
	ticks  uint64
}

func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log}
}

// Register appends s to its phase. Systems in the same phase run in
// registration order.
func (r *Runner) Register(s System) {
	p := s.Phase()
	if p < 0 || p >= phaseCount {
		p = PhaseUpdate
	}
	r.phases[p] = append(r.phases[p], s)
}

// Ticks returns the number of completed ticks.
func (r *Runner) Ticks() uint64 { return r.ticks }

// Tick runs every phase once.
func (r *Runner) Tick(dt time.Duration) {
	for p := range r.phases {
		for _, s := range r.phases[p] {
			s.Update(dt)
		}
	}
	r.ticks++
}

// Run ticks at the given rate until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, rate time.Duration) error {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			start := time.Now()
			r.Tick(now.Sub(last))
			last = now
			if spent := time.Since(start); spent > rate {
				r.log.Warn("tick over budget",
					zap.Duration("spent", spent),
					zap.Duration("budget", rate),
					zap.Uint64("tick", r.ticks),
				)
			}
		}
	}
}
