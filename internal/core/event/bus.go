package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted during tick N are
// dispatched at the start of tick N+1 by EventDispatchSystem, so handlers
// never observe half-applied state from the emitting system.
// Emit is safe from any goroutine; SwapBuffers and DispatchAll run on the
// game loop.
type Bus struct {
	mu       sync.Mutex
	pending  []any
	ready    []any
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]func(any))}
}

// Subscribe registers fn for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// Emit queues ev for the next dispatch.
func Emit[T any](b *Bus, ev T) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.pending = append(b.pending, ev)
	b.mu.Unlock()
}

// SwapBuffers makes everything emitted so far ready for dispatch.
func (b *Bus) SwapBuffers() {
	b.mu.Lock()
	b.ready = append(b.ready, b.pending...)
	b.pending = b.pending[:0]
	b.mu.Unlock()
}

// DispatchAll delivers ready events in emission order and returns how
// many were delivered.
func (b *Bus) DispatchAll() int {
	b.mu.Lock()
	ready := b.ready
	b.ready = nil
	b.mu.Unlock()

	for _, ev := range ready {
		b.mu.Lock()
		hs := b.handlers[reflect.TypeOf(ev)]
		b.mu.Unlock()
		for _, h := range hs {
			h(ev)
		}
	}
	return len(ready)
}

// Pending returns the number of events not yet swapped in.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
