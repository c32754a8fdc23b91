package system

import (
	"context"
	"testing"
	"time"
)

type recordingSystem struct {
	phase Phase
	name  string
	out   *[]string
}

func (s recordingSystem) Phase() Phase { return s.phase }

func (s recordingSystem) Update(time.Duration) { *s.out = append(*s.out, s.name) }

func TestRunnerOrdersByPhase(t *testing.T) {
	var got []string
	r := NewRunner(nil)
	r.Register(recordingSystem{PhaseOutput, "output", &got})
	r.Register(recordingSystem{PhasePreUpdate, "dispatch", &got})
	r.Register(recordingSystem{PhaseUpdate, "combat", &got})
	r.Register(recordingSystem{PhaseUpdate, "tasks", &got})

	r.Tick(time.Millisecond)

	want := []string{"dispatch", "combat", "tasks", "output"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if r.Ticks() != 1 {
		t.Fatalf("ticks = %d", r.Ticks())
	}
}

func TestRunnerStopsOnCancel(t *testing.T) {
	r := NewRunner(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx, time.Millisecond); err != context.Canceled {
		t.Fatalf("err = %v", err)
	}
}

func TestTaskHostDelayAndPeriod(t *testing.T) {
	h := NewTaskHost(nil)
	var runs []int
	tick := 0
	h.Schedule("repeat", 2, 3, func() { runs = append(runs, tick) })

	for tick = 1; tick <= 10; tick++ {
		h.Update(0)
	}
	want := []int{3, 6, 9}
	if len(runs) != len(want) {
		t.Fatalf("runs = %v, want %v", runs, want)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Fatalf("runs = %v, want %v", runs, want)
		}
	}
}

func TestTaskHostOneShot(t *testing.T) {
	h := NewTaskHost(nil)
	n := 0
	task := h.Schedule("once", 0, 0, func() { n++ })
	for i := 0; i < 5; i++ {
		h.Update(0)
	}
	if n != 1 {
		t.Fatalf("one-shot ran %d times", n)
	}
	if !task.Cancelled() {
		t.Fatalf("one-shot task should be spent")
	}
	if h.Len() != 0 {
		t.Fatalf("len = %d", h.Len())
	}
}

func TestTaskHostCancelFromInsideTask(t *testing.T) {
	h := NewTaskHost(nil)
	n := 0
	var task *Task
	task = h.Schedule("self-cancel", 0, 1, func() {
		n++
		if n == 2 {
			task.Cancel()
		}
	})
	for i := 0; i < 10; i++ {
		h.Update(0)
	}
	if n != 2 {
		t.Fatalf("ran %d times after cancel", n)
	}
}

func TestTaskHostRecoversPanics(t *testing.T) {
	h := NewTaskHost(nil)
	n := 0
	h.Schedule("boom", 0, 1, func() {
		n++
		panic("boom")
	})
	for i := 0; i < 3; i++ {
		h.Update(0)
	}
	if n != 3 {
		t.Fatalf("panicking task ran %d times, want 3", n)
	}
}

func TestTaskHostShutdown(t *testing.T) {
	h := NewTaskHost(nil)
	n := 0
	h.Schedule("a", 0, 1, func() { n++ })
	h.Schedule("b", 0, 1, func() { n++ })
	h.Shutdown()
	h.Update(0)
	if n != 0 || h.Len() != 0 {
		t.Fatalf("tasks ran after shutdown: n=%d len=%d", n, h.Len())
	}
}
