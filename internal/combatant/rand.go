package combatant

import (
	"math/rand"
	"sync"
	"time"
)

// Source hands out independent per-controller random streams derived from
// one seed, so a seeded server replays the same draws.
type Source struct {
	mu   sync.Mutex
	root *rand.Rand
}

// NewSource seeds a Source; seed 0 uses the clock.
func NewSource(seed int64) *Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Source{root: rand.New(rand.NewSource(seed))}
}

// Derive returns a new stream for one controller.
func (s *Source) Derive() Rand {
	s.mu.Lock()
	seed := s.root.Int63()
	s.mu.Unlock()
	return rand.New(rand.NewSource(seed))
}
