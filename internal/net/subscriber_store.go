package net

import "sync"

// SubscriberStore holds the live feed subscribers. Subscribers are added
// and removed from HTTP goroutines while the game loop broadcasts, so
// access is mutex-guarded.
type SubscriberStore struct {
	mu   sync.RWMutex
	subs map[uint64]*Subscriber
}

func NewSubscriberStore() *SubscriberStore {
	return &SubscriberStore{subs: make(map[uint64]*Subscriber)}
}

func (ss *SubscriberStore) Add(s *Subscriber) {
	ss.mu.Lock()
	ss.subs[s.ID] = s
	ss.mu.Unlock()
}

func (ss *SubscriberStore) Remove(id uint64) {
	ss.mu.Lock()
	delete(ss.subs, id)
	ss.mu.Unlock()
}

func (ss *SubscriberStore) Get(id uint64) *Subscriber {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.subs[id]
}

func (ss *SubscriberStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.subs)
}

// ForEach iterates a snapshot of the subscribers, so fn may remove entries.
func (ss *SubscriberStore) ForEach(fn func(*Subscriber)) {
	ss.mu.RLock()
	list := make([]*Subscriber, 0, len(ss.subs))
	for _, s := range ss.subs {
		list = append(list, s)
	}
	ss.mu.RUnlock()
	for _, s := range list {
		fn(s)
	}
}
