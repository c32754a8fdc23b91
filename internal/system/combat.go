package system

import (
	"sync"
	"time"

	coresys "github.com/Clemdlc1/CustomMonster-sub001/internal/core/system"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/handler"
)

// CombatSystem drains queued damage-stream reports in Phase 2.
// The world bridge calls QueueReport(); this system hands each report to
// handler.ProcessReport in arrival order.
type CombatSystem struct {
	deps *handler.Deps

	mu       sync.Mutex
	requests []handler.CombatReport
	spare    []handler.CombatReport
}

func NewCombatSystem(deps *handler.Deps) *CombatSystem {
	return &CombatSystem{deps: deps}
}

func (s *CombatSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

// QueueReport implements handler.CombatQueue. Safe from any goroutine.
func (s *CombatSystem) QueueReport(r handler.CombatReport) {
	s.mu.Lock()
	s.requests = append(s.requests, r)
	s.mu.Unlock()
}

// Pending returns the number of reports waiting for the next Update.
func (s *CombatSystem) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *CombatSystem) Update(_ time.Duration) {
	s.mu.Lock()
	batch := s.requests
	s.requests = s.spare[:0]
	s.mu.Unlock()

	// reports queued while the batch runs wait for the next tick
	for _, r := range batch {
		handler.ProcessReport(r, s.deps)
	}
	s.spare = batch[:0]
}
