// Package signal resolves a desired aspect, from whichever input source a
// signal is configured for, into per-output ramp retargets: the
// aspect/blink bit mask is decomposed across the signal's configured
// outputs, and a change-over timer forces every output dark before the
// new aspect is allowed to light, so two aspects never overlap visually
// mid-transition.
package signal

import (
	"time"

	"github.com/railyard/dccsignal/calibration"
	"github.com/railyard/dccsignal/dccpacket"
	"github.com/railyard/dccsignal/rte"
	"github.com/railyard/dccsignal/util"
)

// Source names where a signal's commanded aspect comes from, mirroring
// calibration.InputCal.Type.
type Source uint8

const (
	SourceDcc Source = iota
	SourceAdc
	SourceDigital
)

// InvalidCmd marks "no command received for this signal yet".
const InvalidCmd uint8 = 0xFF

// PinUpdate is one physical output's computed ramp retarget for the
// current cycle.
type PinUpdate struct {
	External bool
	Pin      uint8
	// Target is rte.Intensity16Full (100%) or 0.
	Target uint16
	// SpeedChanged is true if change_over_time_10ms changed since the
	// previous cycle, meaning the caller must call SetIntensityAndSpeed
	// to recompute the ramp's slope; false means SetIntensity suffices,
	// reusing the previously configured slope and skipping a division.
	SpeedChanged bool
	// ChangeOverTicks is the number of 10ms ticks to cross the full
	// 0..100% range, valid only when SpeedChanged is true.
	ChangeOverTicks uint8
}

// Signal tracks one signal's committed aspect and change-over timer. Its
// Tick method must run every cycle regardless of whether a new command
// arrived, since the change-over timer's dim-then-light transition
// depends on elapsed time, not on command delivery.
type Signal struct {
	Index uint8

	cmd     uint8
	haveCmd bool

	aspectTgt     uint8
	haveAspectTgt bool

	lastDimTime10ms uint8

	changeOverDeadline time.Time
	changeOverRunning  bool
}

// SetCommand records the latest command for this signal, to take effect
// on the next Tick. It plays the role of writing to the signal's
// dcc_commands/classified-value RTE port.
func (s *Signal) SetCommand(cmd uint8) {
	s.cmd = cmd
	s.haveCmd = true
}

// CommittedAspectIndex returns the most recently committed aspect mask,
// and false if Tick has never committed one.
func (s *Signal) CommittedAspectIndex() (uint8, bool) {
	return s.aspectTgt, s.haveAspectTgt
}

// Tick re-evaluates this signal for one 10ms cycle: reads the held
// command (synthesizing a safe "red" command if none has ever arrived),
// commits a new target aspect and arms the change-over timer if the
// aspect changed, then decomposes the currently active aspect mask (0
// during change-over, the committed target once it elapses) into one
// PinUpdate per configured output.
func (s *Signal) Tick(cal *calibration.Store, now time.Time) []PinUpdate {
	cmd := s.cmd
	valid := s.haveCmd && cmd != InvalidCmd
	if !valid && !s.haveAspectTgt {
		cmd = 0 // safe aspect (red, by convention) at boot
		valid = true
	}

	signalID := cal.GetSignalID(s.Index)
	asp := cal.GetSignalAspect(signalID, cmd)
	if asp.ChangeOverTime10ms == 0 {
		asp.ChangeOverTime10ms = 1
	}

	if valid && (!s.haveAspectTgt || asp.Aspect != s.aspectTgt) {
		if s.haveAspectTgt {
			s.changeOverDeadline = now.Add(time.Duration(asp.ChangeOverTime10ms) * 10 * time.Millisecond)
			s.changeOverRunning = true
		}
		s.aspectTgt = asp.Aspect
		s.haveAspectTgt = true
	}

	activeMask := s.aspectTgt
	if s.changeOverRunning {
		if now.Before(s.changeOverDeadline) {
			activeMask = 0
		} else {
			s.changeOverRunning = false
		}
	}

	speedChanged := asp.ChangeOverTime10ms != s.lastDimTime10ms
	s.lastDimTime10ms = asp.ChangeOverTime10ms

	out := cal.GetFirstOutput(s.Index)
	updates := make([]PinUpdate, 0, asp.NumOutputs)
	pin := int(out.Pin)
	for pos := uint8(0); pos < asp.NumOutputs; pos++ {
		// MSB of the active num_outputs-bit field is the first output pin;
		// subsequent bits step by output_pin_step.
		bitIdx := asp.NumOutputs - 1 - pos
		target := uint16(0)
		if util.GetBit(activeMask, uint(bitIdx)) {
			target = uint16(rte.Intensity16Full)
		}
		updates = append(updates, PinUpdate{
			External:        out.External,
			Pin:             uint8(pin),
			Target:          target,
			SpeedChanged:    speedChanged,
			ChangeOverTicks: asp.ChangeOverTime10ms,
		})
		pin += int(out.Step)
	}
	return updates
}

// DccAspect decodes a basic or extended accessory packet into an
// accessory address and aspect index. ok is false for any packet kind
// that does not carry an accessory command (idle, multi-function,
// invalid, ...).
func DccAspect(p dccpacket.Packet, cv29 uint8) (addr uint16, aspectIdx uint8, ok bool) {
	switch p.Kind() {
	case dccpacket.BasicAccessory:
		addr = p.Address(cv29)
		if p.BasicOutputPower() == 0 {
			return addr, 0, true
		}
		if p.BasicDirection() != 0 {
			return addr, 1, true
		}
		return addr, 0, true
	case dccpacket.ExtendedAccessory:
		return p.Address(cv29), p.ExtendedAspect(), true
	default:
		return 0, 0, false
	}
}

// Resolver owns one Signal per configured signal index, dispatches
// incoming commands to the matching Signal, and drives every Signal's
// per-cycle Tick.
type Resolver struct {
	Cal     *calibration.Store
	signals [calibration.NrSignals]Signal
}

// NewResolver creates a Resolver backed by cal.
func NewResolver(cal *calibration.Store) *Resolver {
	r := &Resolver{Cal: cal}
	for i := range r.signals {
		r.signals[i].Index = uint8(i)
	}
	return r
}

// DispatchDcc feeds a decoded accessory packet's aspect command to every
// signal configured for DCC input whose accessory address equals
// baseDecoderAddress plus the signal's configured pin offset. The command
// takes effect on the signal's next Tick.
func (r *Resolver) DispatchDcc(p dccpacket.Packet, baseDecoderAddress uint16) {
	addr, aspectIdx, ok := DccAspect(p, r.Cal.GetCV(calibration.CvConfiguration))
	if !ok {
		return
	}
	for i := uint8(0); i < calibration.NrSignals; i++ {
		in := r.Cal.GetInput(i)
		if in.Type != uint8(SourceDcc) {
			continue
		}
		if baseDecoderAddress+uint16(in.Pin) != addr {
			continue
		}
		r.signals[i].SetCommand(aspectIdx)
	}
}

// DispatchClassified feeds a classifier or digital-input result (class
// index, used directly as aspect index) to the one signal at signalIdx,
// to take effect on that signal's next Tick. ok is false if signalIdx is
// out of range.
func (r *Resolver) DispatchClassified(signalIdx uint8, aspectIdx uint8) (ok bool) {
	if signalIdx >= calibration.NrSignals {
		return false
	}
	r.signals[signalIdx].SetCommand(aspectIdx)
	return true
}

// Tick re-evaluates every signal for one cycle and returns each signal's
// output updates, indexed by signal index.
func (r *Resolver) Tick(now time.Time) [calibration.NrSignals][]PinUpdate {
	var out [calibration.NrSignals][]PinUpdate
	for i := range r.signals {
		out[i] = r.signals[i].Tick(r.Cal, now)
	}
	return out
}

// CommittedAspect returns the committed aspect mask for signal index idx,
// and false if idx is out of range or Tick has never run for it.
func (r *Resolver) CommittedAspect(idx uint8) (uint8, bool) {
	if idx >= calibration.NrSignals {
		return 0, false
	}
	return r.signals[idx].CommittedAspectIndex()
}
