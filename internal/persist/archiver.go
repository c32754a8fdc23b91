package persist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/boss"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scheduler"
	"go.uber.org/zap"
)

// ResultStore is the write side of ResultRepo.
type ResultStore interface {
	SaveEventResult(ctx context.Context, row EventResultRow) error
	SaveBossOutcome(ctx context.Context, row BossOutcomeRow) error
}

type archiveJob struct {
	kind string
	save func(ctx context.Context) error
}

// Archiver writes event results and boss outcomes off the game loop. It is
// a scheduler.Listener and a boss.OutcomeListener; callbacks only enqueue.
// A full queue drops the record with a warning.
type Archiver struct {
	store   ResultStore
	log     *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	queue  chan archiveJob
	closed bool
	done   chan struct{}

	saved   atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

func NewArchiver(store ResultStore, queueSize int, log *zap.Logger) *Archiver {
	if queueSize <= 0 {
		queueSize = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &Archiver{
		store:   store,
		log:     log,
		timeout: 5 * time.Second,
		queue:   make(chan archiveJob, queueSize),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Archiver) run() {
	defer close(a.done)
	for job := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := job.save(ctx)
		cancel()
		if err != nil {
			a.failed.Add(1)
			a.log.Error("archive write failed", zap.String("kind", job.kind), zap.Error(err))
			continue
		}
		a.saved.Add(1)
	}
}

func (a *Archiver) enqueue(job archiveJob) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		a.dropped.Add(1)
		return
	}
	select {
	case a.queue <- job:
	default:
		a.dropped.Add(1)
		a.log.Warn("archive queue full, record dropped", zap.String("kind", job.kind))
	}
}

func (a *Archiver) OnEventStart(*scheduler.Instance) {}

func (a *Archiver) OnEventEnd(res scheduler.EndResult) {
	inst := res.Instance
	row := EventResultRow{
		InstanceID: inst.ID,
		EventID:    inst.Def.ID,
		EventName:  inst.Def.Name,
		EventType:  string(inst.Def.Type),
		Reason:     string(res.Reason),
		Forced:     inst.Forced,
		StartedAt:  inst.Start,
		EndedAt:    res.EndedAt,
		Winner:     res.Winner,
		Rankings:   res.Rankings,
	}
	if inst.Ledger != nil {
		row.Members = inst.Ledger.Members()
	}
	a.enqueue(archiveJob{kind: "event_result", save: func(ctx context.Context) error {
		return a.store.SaveEventResult(ctx, row)
	}})
}

func (a *Archiver) OnBossOutcome(o boss.Outcome) {
	row := BossOutcomeRow{
		SessionID:    o.SessionID,
		MobID:        o.MobID,
		Defeated:     o.Defeated,
		KillerName:   o.KillerName,
		StartedAt:    o.StartedAt,
		EndedAt:      o.EndedAt,
		MinionKills:  o.MinionKills,
		Participants: o.Participants,
	}
	a.enqueue(archiveJob{kind: "boss_outcome", save: func(ctx context.Context) error {
		return a.store.SaveBossOutcome(ctx, row)
	}})
}

// Close stops accepting records and waits for the queue to drain or ctx
// to expire.
func (a *Archiver) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns saved, failed and dropped record counts.
func (a *Archiver) Stats() (saved, failed, dropped uint64) {
	return a.saved.Load(), a.failed.Load(), a.dropped.Load()
}
