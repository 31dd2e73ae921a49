// Package bitsm implements the DCC bit state machine: it combines pairs of
// half-bit symbols into decoded "0"/"1" bit events, recovering phase after
// any invalid half-bit.
package bitsm

import "github.com/railyard/dccsignal/halfbit"

// State is one of the nine states of the bit extraction state machine.
type State uint8

const (
	Invalid State = iota
	ShortInit1
	ShortInit2
	LongInit1
	LongInit2
	Short1
	Short2
	Long1
	Long2
	stateCount
)

// Event is the decoded output of one half-bit transition.
type Event uint8

const (
	// NoEvent means this half-bit did not complete a bit.
	NoEvent Event = iota
	// One is emitted when a full "1" bit (two short half-bits) completes.
	One
	// Zero is emitted when a full "0" bit (two long half-bits) completes.
	Zero
	// EventInvalid is emitted when the machine enters the Invalid state from
	// any other state.
	EventInvalid
)

// transitionMap mirrors BitExtractor.h's aTransitionMap exactly: rows are
// the current state, columns are the received half-bit (invalid, short, long).
var transitionMap = [stateCount][3]State{
	Invalid:    {Invalid, ShortInit1, LongInit1},
	ShortInit1: {Invalid, ShortInit2, Long1},
	ShortInit2: {Invalid, ShortInit1, Long1},
	LongInit1:  {Invalid, Short1, LongInit2},
	LongInit2:  {Invalid, Short1, LongInit1},
	Short1:     {Invalid, Short2, Invalid},
	Short2:     {Invalid, Short1, Long1},
	Long1:      {Invalid, Invalid, Long2},
	Long2:      {Invalid, Short1, Long1},
}

// Telemetry optionally counts how many times each state has been entered.
// A nil *Telemetry disables counting entirely, so passing nil costs nothing
// on the hot path.
type Telemetry struct {
	CallCounts [stateCount]uint32
}

// Machine is the bit state machine. The zero value starts in the Invalid
// state, matching power-on behavior: no phase is known yet.
type Machine struct {
	state State
	Stats *Telemetry
}

// State returns the machine's current state.
func (m *Machine) State() State { return m.state }

// Execute advances the machine by one half-bit symbol and returns the
// resulting event. Exactly one event is returned per call.
func (m *Machine) Execute(sym halfbit.Symbol) Event {
	prev := m.state
	m.state = transitionMap[m.state][sym]
	if m.Stats != nil {
		m.Stats.CallCounts[m.state]++
	}
	switch m.state {
	case Invalid:
		if prev == Invalid {
			return NoEvent
		}
		return EventInvalid
	case ShortInit2, Short2:
		return One
	case LongInit2, Long2:
		return Zero
	default:
		return NoEvent
	}
}

// ExecuteDelta classifies deltaUs with t and executes the resulting symbol.
func (m *Machine) ExecuteDelta(t halfbit.Timing, deltaUs uint32) Event {
	return m.Execute(t.Classify(deltaUs))
}

// Reset forces the machine back to the Invalid state, as if an invalid
// half-bit had just been observed.
func (m *Machine) Reset() {
	m.state = Invalid
}
