package event

import "testing"

func TestBusDefersUntilSwap(t *testing.T) {
	b := NewBus()
	var got []string
	Subscribe(b, func(ev EventStarted) { got = append(got, ev.EventID) })
	Subscribe(b, func(ev EventEnded) { got = append(got, "end:"+ev.EventID) })

	Emit(b, EventStarted{EventID: "gang_war"})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("dispatched before swap: %v", got)
	}

	b.SwapBuffers()
	Emit(b, EventEnded{EventID: "late"})
	b.DispatchAll()
	if len(got) != 1 || got[0] != "gang_war" {
		t.Fatalf("got %v", got)
	}
	if b.Pending() != 1 {
		t.Fatalf("pending = %d", b.Pending())
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 2 || got[1] != "end:late" {
		t.Fatalf("got %v", got)
	}
}

func TestBusHandlerMayEmit(t *testing.T) {
	b := NewBus()
	n := 0
	Subscribe(b, func(ev CombatantAttacked) {
		n++
		Emit(b, CombatantAbility{EntityID: ev.EntityID})
	})
	abilities := 0
	Subscribe(b, func(CombatantAbility) { abilities++ })

	Emit(b, CombatantAttacked{EntityID: 7})
	b.SwapBuffers()
	b.DispatchAll()
	if n != 1 || abilities != 0 {
		t.Fatalf("n=%d abilities=%d", n, abilities)
	}
	b.SwapBuffers()
	b.DispatchAll()
	if abilities != 1 {
		t.Fatalf("abilities = %d", abilities)
	}
}
