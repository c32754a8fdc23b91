package handler

import (
	"fmt"
	"sync"

	"github.com/Clemdlc1/CustomMonster-sub001/internal/scheduler"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/scoring"
	"github.com/Clemdlc1/CustomMonster-sub001/internal/world"
	"go.uber.org/zap"
)

// ForceStartEvent starts id now. False when id is unknown or already active.
func (a *API) ForceStartEvent(id string) bool {
	if err := a.deps.Events.ForceStartErr(id); err != nil {
		a.deps.log().Debug("force start rejected", zap.String("event", id), zap.Error(err))
		return false
	}
	return true
}

// ForceStopEvent ends id now. False when id is unknown or not active.
func (a *API) ForceStopEvent(id string) bool {
	if err := a.deps.Events.ForceStopErr(id); err != nil {
		a.deps.log().Debug("force stop rejected", zap.String("event", id), zap.Error(err))
		return false
	}
	return true
}

func (a *API) GetScheduledEvents() []scheduler.ScheduledEvent {
	return a.deps.Events.ScheduledEvents()
}

func (a *API) GetActiveEvents() []*scheduler.Instance {
	return a.deps.Events.ActiveEvents()
}

// GetActiveEvent returns id's running instance or nil.
func (a *API) GetActiveEvent(id string) *scheduler.Instance {
	return a.deps.Events.ActiveEvent(id)
}

func (a *API) IsEventActive(id string) bool {
	return a.deps.Events.IsEventActive(id)
}

// JoinEvent enrolls a player entity in group for id's running instance.
func (a *API) JoinEvent(id string, player world.EntityID, group string) error {
	name := a.deps.playerName(player)
	if name == "" {
		return fmt.Errorf("%w: player %d", world.ErrUnknownEntity, player)
	}
	return a.deps.Events.Join(id, name, group)
}

// GetScoresData returns the scoreboard of the first running event the
// player joined.
func (a *API) GetScoresData(player world.EntityID) (scoring.ScoresData, bool) {
	name := a.deps.playerName(player)
	if name == "" {
		return scoring.ScoresData{}, false
	}
	return a.deps.Events.ScoresData(name)
}

// EventHooks prepares the world for typed events: boss hunts spawn their
// boss at start and clear it at the end, capture events reset their
// points on both edges.
type EventHooks struct {
	deps *Deps

	mu     sync.Mutex
	bosses map[string]world.EntityID // instance id -> spawned boss
}

func NewEventHooks(deps *Deps) *EventHooks {
	return &EventHooks{deps: deps, bosses: make(map[string]world.EntityID)}
}

func (h *EventHooks) OnEventStart(inst *scheduler.Instance) {
	p := inst.Def.Payload
	switch inst.Def.Type {
	case scheduler.TypeBossHunt:
		ctrl, err := h.deps.Mobs.Spawn(p.Boss, p.BossAt)
		if err != nil {
			h.deps.log().Error("boss hunt spawn failed",
				zap.String("event", inst.Def.ID),
				zap.String("boss", p.Boss),
				zap.Error(err),
			)
			return
		}
		if h.deps.Bosses != nil {
			h.deps.Bosses.StartSession(ctrl.Entity(), p.Boss)
		}
		h.mu.Lock()
		h.bosses[inst.ID] = ctrl.Entity()
		h.mu.Unlock()
		h.deps.log().Info("boss hunt boss spawned",
			zap.String("event", inst.Def.ID),
			zap.String("boss", p.Boss),
			zap.Int32("entity", int32(ctrl.Entity())),
		)
	case scheduler.TypeCapture:
		h.deps.World.ResetCapturePoints(p.CapturePoints...)
	}
}

func (h *EventHooks) OnEventEnd(res scheduler.EndResult) {
	inst := res.Instance
	switch inst.Def.Type {
	case scheduler.TypeBossHunt:
		h.mu.Lock()
		id, ok := h.bosses[inst.ID]
		delete(h.bosses, inst.ID)
		h.mu.Unlock()
		// a boss that survived the hunt leaves; the despawn sweep closes its session
		if ok && h.deps.World.IsValid(id) {
			if m, found := h.deps.Combatants.Get(id); found && m.Controller != nil {
				m.Controller.Stop()
			}
			h.deps.World.Remove(id)
		}
	case scheduler.TypeCapture:
		h.deps.World.ResetCapturePoints(inst.Def.Payload.CapturePoints...)
	}
	h.deps.log().Info("event result",
		zap.String("event", inst.Def.ID),
		zap.String("reason", string(res.Reason)),
		zap.String("winner", res.Winner),
		zap.Int("groups", len(res.Rankings)),
		zap.Int("participants", inst.Ledger.Participants()),
	)
}

// HuntBoss returns the boss spawned for a running boss hunt instance.
func (h *EventHooks) HuntBoss(instanceID string) (world.EntityID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.bosses[instanceID]
	return id, ok
}
