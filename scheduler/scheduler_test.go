package scheduler_test

import (
	"testing"
	"time"

	"github.com/railyard/dccsignal/scheduler"
)

type countingRunnable struct {
	inits, runs int
}

func (c *countingRunnable) Init() { c.inits++ }
func (c *countingRunnable) Run()  { c.runs++ }

func TestInitCallsEveryRunnableOnce(t *testing.T) {
	var s scheduler.Scheduler
	a, b := &countingRunnable{}, &countingRunnable{}
	s.Add(0, 10*time.Millisecond, a)
	s.Add(5*time.Millisecond, 20*time.Millisecond, b)

	s.Init(time.Unix(0, 0))
	if a.inits != 1 || b.inits != 1 {
		t.Fatalf("expected each runnable initialized once, got a=%d b=%d", a.inits, b.inits)
	}
	if a.runs != 0 || b.runs != 0 {
		t.Fatalf("expected no runs before the first Tick")
	}
}

func TestTickHonorsStartOffsetAndPeriod(t *testing.T) {
	var s scheduler.Scheduler
	r := &countingRunnable{}
	s.Add(10*time.Millisecond, 10*time.Millisecond, r)

	start := time.Unix(0, 0)
	s.Init(start)

	s.Tick(start.Add(5 * time.Millisecond))
	if r.runs != 0 {
		t.Fatalf("expected no run before the start offset elapses, got %d", r.runs)
	}

	s.Tick(start.Add(10 * time.Millisecond))
	if r.runs != 1 {
		t.Fatalf("expected exactly one run at the start offset, got %d", r.runs)
	}

	s.Tick(start.Add(15 * time.Millisecond))
	if r.runs != 1 {
		t.Fatalf("expected no run before the period elapses, got %d", r.runs)
	}

	s.Tick(start.Add(20 * time.Millisecond))
	if r.runs != 2 {
		t.Fatalf("expected a second run once the period elapses, got %d", r.runs)
	}
}

func TestAddRejectsNilRunnable(t *testing.T) {
	var s scheduler.Scheduler
	if s.Add(0, time.Millisecond, nil) {
		t.Fatalf("expected Add to reject a nil runnable")
	}
}

func TestAddRejectsOverCapacity(t *testing.T) {
	var s scheduler.Scheduler
	for i := 0; i < scheduler.MaxRunnables; i++ {
		if !s.Add(0, time.Millisecond, &countingRunnable{}) {
			t.Fatalf("Add %d: expected success", i)
		}
	}
	if s.Add(0, time.Millisecond, &countingRunnable{}) {
		t.Fatalf("expected Add to fail once the table is full")
	}
}
