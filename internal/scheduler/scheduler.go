package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/core/event"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scoring"
	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// State is the lifecycle state of one definition.
type State string

const (
	StateScheduled State = "scheduled"
	StateActive    State = "active"
	StateEnded     State = "ended" // terminal for one-shot definitions
)

const (
	evStart = "start"
	evStop  = "stop"
	evRearm = "rearm"
)

func newMachine() *fsm.FSM {
	return fsm.NewFSM(
		string(StateScheduled),
		fsm.Events{
			{Name: evStart, Src: []string{string(StateScheduled)}, Dst: string(StateActive)},
			{Name: evStop, Src: []string{string(StateActive)}, Dst: string(StateEnded)},
			{Name: evRearm, Src: []string{string(StateEnded)}, Dst: string(StateScheduled)},
		},
		fsm.Callbacks{},
	)
}

// EndReason says why an instance ended.
type EndReason string

const (
	ReasonExpired  EndReason = "expired"
	ReasonForced   EndReason = "forced"
	ReasonShutdown EndReason = "shutdown"
)

// EndResult is handed to listeners when an instance ends.
type EndResult struct {
	Instance *Instance
	Reason   EndReason
	EndedAt  time.Time
	Rankings []scoring.Entry
	Winner   string
}

// Listener observes instance lifecycle. Callbacks run after the scheduler
// lock is released, one at a time and in transition order, and may call
// back into the scheduler.
type Listener interface {
	OnEventStart(inst *Instance)
	OnEventEnd(res EndResult)
}

// ScheduledEvent describes a known definition and where it stands.
type ScheduledEvent struct {
	Def   Definition
	State State
	Next  time.Time // zero when nothing is due
}

type entry struct {
	def     Definition
	machine *fsm.FSM
	active  *Instance
	next    time.Time
	hasNext bool
	retired bool // dropped by a reload, removed once its instance ends
}

func (e *entry) state() State { return State(e.machine.Current()) }

// Options configure a Scheduler.
type Options struct {
	Now     func() time.Time
	Weights scoring.Weights
	Bus     *event.Bus
	Log     *zap.Logger
}

// Scheduler owns every definition's lifecycle. All transitions and queries
// are serialized on one mutex, so force-start, force-stop and the clock's
// Tick are linearizable with one another.
type Scheduler struct {
	mu       sync.Mutex
	order    []string
	entries  map[string]*entry
	closed   bool
	outbox   []func()
	draining bool

	listeners []Listener
	now       func() time.Time
	weights   scoring.Weights
	bus       *event.Bus
	log       *zap.Logger
}

// New builds a scheduler over defs. Every definition must validate.
func New(defs []Definition, o Options) (*Scheduler, error) {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Weights == (scoring.Weights{}) {
		o.Weights = scoring.DefaultWeights()
	}
	checked, err := validateAll(defs)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		entries: make(map[string]*entry),
		now:     o.Now,
		weights: o.Weights,
		bus:     o.Bus,
		log:     o.Log,
	}
	now := s.now()
	for _, d := range checked {
		e := &entry{def: d, machine: newMachine()}
		e.next, e.hasNext = d.Schedule.Next(now)
		s.entries[d.ID] = e
		s.order = append(s.order, d.ID)
	}
	return s, nil
}

func validateAll(defs []Definition) ([]Definition, error) {
	out := make([]Definition, 0, len(defs))
	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.ID]; dup {
			return nil, configErr(d.ID, "id", "duplicate definition")
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

// AddListener registers l for lifecycle callbacks.
func (s *Scheduler) AddListener(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// unlockAndNotify queues fns, releases the state lock and delivers queued
// notifications unless another goroutine is already delivering them.
func (s *Scheduler) unlockAndNotify(fns []func()) {
	s.outbox = append(s.outbox, fns...)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.outbox) > 0 {
		batch := s.outbox
		s.outbox = nil
		s.mu.Unlock()
		for _, fn := range batch {
			fn()
		}
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

func (s *Scheduler) promoteLocked(e *entry, now time.Time, forced bool) (func(), error) {
	if e.active != nil {
		return nil, fmt.Errorf("%w: %s already active", ErrInvalidTransition, e.def.ID)
	}
	if err := e.machine.Event(context.Background(), evStart); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTransition, e.def.ID, err)
	}
	inst := &Instance{
		ID:     uuid.NewString(),
		Def:    e.def,
		Start:  now,
		End:    now.Add(e.def.Duration),
		Forced: forced,
		Ledger: scoring.NewLedger(s.weights, e.def.Payload.Groups),
	}
	e.active = inst
	event.Emit(s.bus, event.EventStarted{
		EventID:    inst.Def.ID,
		InstanceID: inst.ID,
		Name:       inst.Def.Name,
		EndsAt:     inst.End,
		Forced:     forced,
	})
	s.log.Info("event started",
		zap.String("event", inst.Def.ID),
		zap.String("instance", inst.ID),
		zap.Time("ends_at", inst.End),
		zap.Bool("forced", forced),
	)
	ls := s.listeners
	return func() {
		for _, l := range ls {
			l.OnEventStart(inst)
		}
	}, nil
}

func (s *Scheduler) demoteLocked(e *entry, now time.Time, reason EndReason) (func(), error) {
	inst := e.active
	if inst == nil {
		return nil, fmt.Errorf("%w: %s not active", ErrInvalidTransition, e.def.ID)
	}
	if err := e.machine.Event(context.Background(), evStop); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTransition, e.def.ID, err)
	}
	e.active = nil
	res := EndResult{
		Instance: inst,
		Reason:   reason,
		EndedAt:  now,
		Rankings: inst.Ledger.Rankings(),
		Winner:   inst.Ledger.Winner(),
	}

	switch {
	case e.retired:
		s.dropLocked(e.def.ID)
	case e.def.Recurring:
		if err := e.machine.Event(context.Background(), evRearm); err != nil {
			s.log.Error("rearm failed", zap.String("event", e.def.ID), zap.Error(err))
		}
		// a fire time at or after the instance's end is still due
		from := now
		if inst.End.Before(from) {
			from = inst.End
		}
		e.next, e.hasNext = e.def.Schedule.Next(from.Add(-time.Nanosecond))
	default:
		e.hasNext = false
	}

	event.Emit(s.bus, event.EventEnded{
		EventID:    inst.Def.ID,
		InstanceID: inst.ID,
		Reason:     string(reason),
		Winner:     res.Winner,
	})
	s.log.Info("event ended",
		zap.String("event", inst.Def.ID),
		zap.String("instance", inst.ID),
		zap.String("reason", string(reason)),
		zap.String("winner", res.Winner),
	)
	ls := s.listeners
	return func() {
		for _, l := range ls {
			l.OnEventEnd(res)
		}
	}, nil
}

func (s *Scheduler) dropLocked(id string) {
	delete(s.entries, id)
	for i, x := range s.order {
		if x == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// ForceStart promotes id immediately. It returns false without changing
// anything when id is unknown, already active, or a finished one-shot.
func (s *Scheduler) ForceStart(id string) bool {
	return s.ForceStartErr(id) == nil
}

// ForceStartErr is ForceStart with the failure reason.
func (s *Scheduler) ForceStartErr(id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	e, ok := s.entries[id]
	if !ok || e.retired {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownEvent, id)
	}
	if !e.machine.Can(evStart) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, e.state())
	}
	fn, err := s.promoteLocked(e, s.now(), true)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.unlockAndNotify([]func(){fn})
	return nil
}

// ForceStop ends id's active instance. It returns false without changing
// anything when id is not active.
func (s *Scheduler) ForceStop(id string) bool {
	return s.ForceStopErr(id) == nil
}

// ForceStopErr is ForceStop with the failure reason.
func (s *Scheduler) ForceStopErr(id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownEvent, id)
	}
	if e.active == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, e.state())
	}
	fn, err := s.demoteLocked(e, s.now(), ReasonForced)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.unlockAndNotify([]func(){fn})
	return nil
}

// Tick is the scheduler clock: it ends expired instances, then starts every
// scheduled definition whose next fire time has been reached. A fire time
// that passes while the definition is active is skipped.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	now := s.now()
	var fns []func()

	ids := append([]string(nil), s.order...)
	for _, id := range ids {
		e := s.entries[id]
		if e == nil || e.active == nil || !e.active.Expired(now) {
			continue
		}
		fn, err := s.demoteLocked(e, now, ReasonExpired)
		if err != nil {
			s.log.Error("expire failed", zap.String("event", id), zap.Error(err))
			continue
		}
		fns = append(fns, fn)
	}

	for _, id := range s.order {
		e := s.entries[id]
		if !e.hasNext || now.Before(e.next) {
			continue
		}
		if e.active != nil || e.retired || !e.machine.Can(evStart) {
			e.next, e.hasNext = e.def.Schedule.Next(now)
			continue
		}
		fn, err := s.promoteLocked(e, now, false)
		e.next, e.hasNext = e.def.Schedule.Next(now)
		if err != nil {
			s.log.Error("scheduled start failed", zap.String("event", id), zap.Error(err))
			continue
		}
		fns = append(fns, fn)
	}
	s.unlockAndNotify(fns)
}

// Reload replaces the definition list. The whole list is validated first;
// on any ConfigError nothing changes. Active instances keep running with
// the definition they started with. Definitions absent from defs are
// retired once their instance ends.
func (s *Scheduler) Reload(defs []Definition) error {
	checked, err := validateAll(defs)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	now := s.now()
	keep := make(map[string]struct{}, len(checked))
	var order []string
	for _, d := range checked {
		keep[d.ID] = struct{}{}
		order = append(order, d.ID)
		e, ok := s.entries[d.ID]
		if !ok {
			e = &entry{def: d, machine: newMachine()}
			e.next, e.hasNext = d.Schedule.Next(now)
			s.entries[d.ID] = e
			continue
		}
		e.def = d
		e.retired = false
		if e.active != nil {
			e.next, e.hasNext = d.Schedule.Next(e.active.End.Add(-time.Nanosecond))
			continue
		}
		e.next, e.hasNext = d.Schedule.Next(now)
		if e.state() == StateEnded && (d.Recurring || e.hasNext) {
			e.machine.SetState(string(StateScheduled))
		}
	}
	for _, id := range s.order {
		if _, ok := keep[id]; ok {
			continue
		}
		e := s.entries[id]
		if e.active != nil {
			e.retired = true
			e.hasNext = false
			order = append(order, id)
			continue
		}
		delete(s.entries, id)
	}
	s.order = order
	s.log.Info("event definitions reloaded", zap.Int("count", len(checked)))
	return nil
}

// Close ends every active instance with ReasonShutdown and rejects further
// commands. It waits for in-flight transitions.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	now := s.now()
	var fns []func()
	for _, id := range append([]string(nil), s.order...) {
		e := s.entries[id]
		if e == nil || e.active == nil {
			continue
		}
		if fn, err := s.demoteLocked(e, now, ReasonShutdown); err == nil {
			fns = append(fns, fn)
		}
	}
	s.closed = true
	s.unlockAndNotify(fns)
}

// ScheduledEvents lists every known definition in load order.
func (s *Scheduler) ScheduledEvents() []ScheduledEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduledEvent, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		se := ScheduledEvent{Def: e.def, State: e.state()}
		if e.hasNext {
			se.Next = e.next
		}
		out = append(out, se)
	}
	return out
}

// ActiveEvents returns running instances in load order.
func (s *Scheduler) ActiveEvents() []*Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Instance
	for _, id := range s.order {
		if inst := s.entries[id].active; inst != nil {
			out = append(out, inst)
		}
	}
	return out
}

// ActiveEvent returns id's running instance or nil.
func (s *Scheduler) ActiveEvent(id string) *Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return e.active
	}
	return nil
}

func (s *Scheduler) IsEventActive(id string) bool { return s.ActiveEvent(id) != nil }

// State returns id's lifecycle state.
func (s *Scheduler) State(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return "", false
	}
	return e.state(), true
}

// RemainingSeconds returns the countdown of id's active instance.
func (s *Scheduler) RemainingSeconds(id string) (int64, bool) {
	inst := s.ActiveEvent(id)
	if inst == nil {
		return 0, false
	}
	return inst.RemainingSeconds(s.now()), true
}

// Join enrolls player in group for id's active instance.
func (s *Scheduler) Join(id, player, group string) error {
	inst := s.ActiveEvent(id)
	if inst == nil {
		if _, ok := s.State(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownEvent, id)
		}
		return fmt.Errorf("%w: %s", ErrNotActive, id)
	}
	return inst.Ledger.Join(player, group)
}

// ScoresData returns player's view of the first active instance, in load
// order, that player joined.
func (s *Scheduler) ScoresData(player string) (scoring.ScoresData, bool) {
	now := s.now()
	for _, inst := range s.ActiveEvents() {
		if _, ok := inst.Ledger.GroupOf(player); ok {
			return inst.ScoresData(player, now), true
		}
	}
	return scoring.ScoresData{}, false
}

// Now is the scheduler's clock.
func (s *Scheduler) Now() time.Time { return s.now() }
