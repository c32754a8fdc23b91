package world

import "fmt"

// CapturePoint is a contested location owned by at most one group.
// Progress accumulates per capture attempt; ownership flips when a group
// reaches Required consecutive attempts.
type CapturePoint struct {
	ID       string
	Loc      Location
	Radius   float64
	Required int // attempts needed to take the point (minimum 1)

	Owner      string // "" = neutral
	challenger string
	progress   int
}

// Neutral reports whether no group holds the point.
func (p *CapturePoint) Neutral() bool { return p.Owner == "" }

// Progress returns the current challenger and its progress.
func (p *CapturePoint) Progress() (string, int) { return p.challenger, p.progress }

// attempt applies one capture attempt by group and reports whether
// ownership changed hands.
func (p *CapturePoint) attempt(group string) bool {
	if group == "" || group == p.Owner {
		p.challenger, p.progress = "", 0
		return false
	}
	if p.challenger != group {
		p.challenger, p.progress = group, 0
	}
	p.progress++
	required := p.Required
	if required < 1 {
		required = 1
	}
	if p.progress < required {
		return false
	}
	p.Owner = group
	p.challenger, p.progress = "", 0
	return true
}

// Reset returns the point to neutral.
func (p *CapturePoint) Reset() {
	p.Owner, p.challenger, p.progress = "", "", 0
}

// AddCapturePoint registers a capture point.
func (s *State) AddCapturePoint(id string, loc Location, radius float64, required int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.points[id]; ok {
		return fmt.Errorf("world: capture point %q already exists", id)
	}
	if err := s.checkWorldLocked(loc); err != nil {
		return err
	}
	s.points[id] = &CapturePoint{ID: id, Loc: loc, Radius: radius, Required: required}
	return nil
}

// CapturePoint returns a copy of the point.
func (s *State) CapturePoint(id string) (CapturePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.points[id]
	if p == nil {
		return CapturePoint{}, false
	}
	return *p, true
}

// Capture applies a capture attempt by player on behalf of group. The player
// must be alive and within the point radius. It reports whether the point
// changed owner.
func (s *State) Capture(id string, player EntityID, group string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.points[id]
	if p == nil {
		return false, fmt.Errorf("world: unknown capture point %q", id)
	}
	e := s.entities[player]
	if e == nil || e.Kind != KindPlayer || !e.Alive() {
		return false, fmt.Errorf("%w: player %d", ErrUnknownEntity, player)
	}
	if e.Loc.DistanceSq(p.Loc) > p.Radius*p.Radius {
		return false, nil
	}
	return p.attempt(group), nil
}

// ResetCapturePoints returns the listed points to neutral.
func (s *State) ResetCapturePoints(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if p := s.points[id]; p != nil {
			p.Reset()
		}
	}
}
