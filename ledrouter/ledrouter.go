// Package ledrouter drives each physical LED output from a slope-limited
// intensity ramp through a gamma-correction table, in 16-bit working
// units (rte.Intensity16).
package ledrouter

import (
	"github.com/railyard/dccsignal/rte"
	"github.com/railyard/dccsignal/util"
)

// Ramp discretizes a transition from its current value to a target value
// over a configured number of steps, advancing by at most Delta units per
// Step call. It is the 16-bit counterpart of the original source's
// template ramp<T>.
type Ramp struct {
	cur, tgt, delta uint16
}

// Init starts the ramp at ystart, heading for yend, reaching it after dt
// ticks of timestep-sized steps (dt and timestep share units, e.g. 10ms
// ticks).
func (r *Ramp) Init(ystart, yend, dt, timestep uint16) {
	r.cur = ystart
	r.tgt = yend
	r.updateDelta(ystart, yend, dt, timestep)
}

// SetTarget retargets the ramp to yend without changing its current
// position; delta is recomputed from the new distance over dt.
func (r *Ramp) SetTarget(yend, dt, timestep uint16) {
	r.tgt = yend
	r.updateDelta(r.cur, yend, dt, timestep)
}

// Retarget changes the target to yend, leaving delta untouched: the
// ramp keeps approaching at its previously configured slope.
func (r *Ramp) Retarget(yend uint16) {
	r.tgt = yend
}

// SetSpeed recomputes delta for the current distance between cur and tgt
// over dt ticks, leaving the target unchanged.
func (r *Ramp) SetSpeed(dt, timestep uint16) {
	r.updateDelta(r.cur, r.tgt, dt, timestep)
}

func (r *Ramp) updateDelta(ystart, yend, dt, timestep uint16) {
	dy := util.SatSubU16(yend, ystart)
	if dy == 0 {
		dy = util.SatSubU16(ystart, yend)
	}
	if dt > 0 {
		r.delta = util.SatMulU32toU16(uint32(dy), uint32(timestep)) / dt
		if r.delta == 0 && dy > 0 {
			r.delta = 1
		}
	} else {
		r.delta = dy
	}
}

// Current returns the ramp's current value.
func (r *Ramp) Current() uint16 { return r.cur }

// Target returns the ramp's target value.
func (r *Ramp) Target() uint16 { return r.tgt }

// Step advances the ramp by one tick toward its target and returns the
// new current value.
func (r *Ramp) Step() uint16 {
	switch {
	case r.tgt == r.cur:
		// at target
	case r.tgt > r.cur:
		if r.tgt-r.cur > r.delta {
			r.cur = util.SatAddU16(r.cur, r.delta)
		} else {
			r.cur = r.tgt
		}
	default:
		if r.cur-r.tgt > r.delta {
			r.cur = util.SatSubU16(r.cur, r.delta)
		} else {
			r.cur = r.tgt
		}
	}
	return r.cur
}

// GammaSize is the number of entries in a GammaTable: one per possible
// 8-bit PWM duty cycle.
const GammaSize = 256

// GammaTable maps an 8-bit linear-intensity index to a gamma-corrected
// 8-bit PWM duty cycle, so LED brightness steps look visually even.
type GammaTable [GammaSize]uint8

// DefaultGammaTable builds a quadratic (gamma 2.0) correction table,
// out = i*i/255, with every nonzero index floored at 1. Index 0 always
// maps to 0 (a fully extinguished LED never has residual PWM duty cycle
// from rounding).
func DefaultGammaTable() GammaTable {
	var t GammaTable
	t[0] = 0
	for i := 1; i < GammaSize; i++ {
		// out = 255 * (i/255)^2, computed integer-only as a square followed
		// by a normalization, to avoid floating point on the hot path.
		sq := uint32(i) * uint32(i)
		t[i] = uint8((sq * 255) / (255 * 255))
		if t[i] == 0 {
			t[i] = 1 // never re-collapse a nonzero index to 0
		}
	}
	return t
}

// Apply gamma-corrects an 8-bit linear intensity.
func (t GammaTable) Apply(linear uint8) uint8 { return t[linear] }

// Output owns one physical output's ramp and reports its gamma-corrected
// 8-bit duty cycle.
type Output struct {
	Ramp  Ramp
	gamma *GammaTable
}

// SetIntensityAndSpeed retargets the output to a new 16-bit intensity,
// reaching it over dt ticks of the given timestep: both target and slope
// are recomputed.
func (o *Output) SetIntensityAndSpeed(target uint16, dt, timestep uint16) {
	o.Ramp.SetTarget(target, dt, timestep)
}

// SetIntensity retargets the output only, reusing its previously
// configured slope. Used when change_over_time_10ms hasn't changed since
// the last cycle, to skip the division SetIntensityAndSpeed performs.
func (o *Output) SetIntensity(target uint16) {
	o.Ramp.Retarget(target)
}

// SetSpeed recomputes the output's slope only, leaving its target
// unchanged.
func (o *Output) SetSpeed(dt, timestep uint16) {
	o.Ramp.SetSpeed(dt, timestep)
}

// Tick advances the ramp by one step and returns the resulting
// gamma-corrected 8-bit PWM duty cycle.
func (o *Output) Tick() uint8 {
	cur := o.Ramp.Step()
	linear := uint8(rte.ToIntensity8(rte.Intensity16(cur)))
	if o.gamma == nil {
		return linear
	}
	return o.gamma.Apply(linear)
}

// Router owns a fixed set of Outputs sharing one gamma table.
type Router struct {
	gamma   GammaTable
	outputs []Output
}

// NewRouter creates a Router with n outputs, all sharing gamma.
func NewRouter(n int, gamma GammaTable) *Router {
	r := &Router{gamma: gamma, outputs: make([]Output, n)}
	for i := range r.outputs {
		r.outputs[i].gamma = &r.gamma
	}
	return r
}

// Len returns the number of outputs.
func (r *Router) Len() int { return len(r.outputs) }

// SetIntensityAndSpeed retargets output i and recomputes its slope.
// Out-of-range i is a no-op.
func (r *Router) SetIntensityAndSpeed(i int, target uint16, dt, timestep uint16) {
	if i < 0 || i >= len(r.outputs) {
		return
	}
	r.outputs[i].SetIntensityAndSpeed(target, dt, timestep)
}

// SetIntensity retargets output i only, reusing its previously configured
// slope. Out-of-range i is a no-op.
func (r *Router) SetIntensity(i int, target uint16) {
	if i < 0 || i >= len(r.outputs) {
		return
	}
	r.outputs[i].SetIntensity(target)
}

// SetSpeed recomputes output i's slope only, leaving its target
// unchanged. Out-of-range i is a no-op.
func (r *Router) SetSpeed(i int, dt, timestep uint16) {
	if i < 0 || i >= len(r.outputs) {
		return
	}
	r.outputs[i].SetSpeed(dt, timestep)
}

// RampState returns the current and target value of output i's ramp, and
// false if i is out of range.
func (r *Router) RampState(i int) (current, target uint16, ok bool) {
	if i < 0 || i >= len(r.outputs) {
		return 0, 0, false
	}
	return r.outputs[i].Ramp.Current(), r.outputs[i].Ramp.Target(), true
}

// Tick advances every output by one step and returns their
// gamma-corrected duty cycles.
func (r *Router) Tick() []uint8 {
	out := make([]uint8, len(r.outputs))
	for i := range r.outputs {
		out[i] = r.outputs[i].Tick()
	}
	return out
}
