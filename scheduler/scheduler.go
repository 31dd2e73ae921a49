// Package scheduler runs a fixed set of cooperative tasks at their own
// period, each given a startup offset before its first run. It replaces
// the target's cyclic-runable table with one indexed by time.Time instead
// of a free-running microsecond timer.
package scheduler

import "time"

// MaxRunnables bounds how many tasks a single Scheduler can hold.
const MaxRunnables = 32

// Runnable is one scheduled task: Init runs once at startup, Run runs
// every time its period elapses.
type Runnable interface {
	Init()
	Run()
}

type entry struct {
	startOffset time.Duration
	period      time.Duration
	runnable    Runnable
	nextCall    time.Time
}

// Scheduler holds a fixed-capacity table of runnables and their periods.
type Scheduler struct {
	entries []entry
}

// Add registers r to run first after startOffset has elapsed (from Init),
// then every period thereafter. It returns false if the table is full or
// r is nil.
func (s *Scheduler) Add(startOffset, period time.Duration, r Runnable) bool {
	if len(s.entries) >= MaxRunnables || r == nil {
		return false
	}
	s.entries = append(s.entries, entry{startOffset: startOffset, period: period, runnable: r})
	return true
}

// Init calls Init on every registered runnable, then arms each one's
// first call at now+startOffset.
func (s *Scheduler) Init(now time.Time) {
	for i := range s.entries {
		s.entries[i].runnable.Init()
	}
	for i := range s.entries {
		s.entries[i].nextCall = now.Add(s.entries[i].startOffset)
	}
}

// Tick runs every runnable whose next call time has elapsed, rearming it
// for now+period.
func (s *Scheduler) Tick(now time.Time) {
	for i := range s.entries {
		e := &s.entries[i]
		if !now.Before(e.nextCall) {
			e.runnable.Run()
			e.nextCall = now.Add(e.period)
		}
	}
}
