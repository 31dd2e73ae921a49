// Package simgen synthesizes a DCC bit-stream and feeds it into a
// dcctime.EdgeQueue as edge-to-edge half-bit deltas, for driving the
// pipeline in the absence of real hardware. Emission is paced with
// golang.org/x/time/rate so playback can run at, faster than, or slower
// than the wire's real rate of one edge every 58-100us (roughly 10-17
// edges/ms).
package simgen

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/railyard/dccsignal/dcctime"
)

// Nominal half-bit durations, in microseconds, per NMRA S-9.1: a "1" bit's
// half is 58us, a "0" bit's half is 100us, both well inside halfbit's
// accept windows.
const (
	NominalShortUs uint32 = 58
	NominalLongUs  uint32 = 100
)

// PreambleBits is the number of leading "1" bits this generator emits
// before every packet; S-9.1 requires at least 10, decoders typically see
// more than 14 from a command station.
const PreambleBits = 14

// Encode renders packetBytes (data bytes, checksum included) into the
// sequence of half-bit microsecond deltas a real DCC edge interrupt would
// have measured: a preamble, a "0" packet-start bit, then for each byte
// its 8 data bits MSB first, every byte but the last followed by a "0"
// separator bit and the last followed by the "1" end-of-packet bit.
func Encode(packetBytes []byte) []uint32 {
	var bits []bool
	for i := 0; i < PreambleBits; i++ {
		bits = append(bits, true)
	}
	bits = append(bits, false) // packet start
	for i, b := range packetBytes {
		for bit := 7; bit >= 0; bit-- {
			bits = append(bits, b&(1<<uint(bit)) != 0)
		}
		if i == len(packetBytes)-1 {
			bits = append(bits, true) // end-of-packet
		} else {
			bits = append(bits, false) // byte separator
		}
	}

	deltas := make([]uint32, 0, len(bits)*2)
	for _, one := range bits {
		half := NominalLongUs
		if one {
			half = NominalShortUs
		}
		deltas = append(deltas, half, half)
	}
	return deltas
}

// EdgeGenerator paces a stream of half-bit deltas into an EdgeQueue.
type EdgeGenerator struct {
	Queue   *dcctime.EdgeQueue
	Limiter *rate.Limiter

	// RealTime, when true, additionally sleeps for the simulated
	// duration of each half-bit so playback matches wall-clock wire
	// timing; when false, emission is bounded only by Limiter, for fast
	// playback in tests.
	RealTime bool
}

// NewEdgeGenerator creates a generator bounded to at most ratePerSec edge
// pushes per second (burst of burst), in addition to any RealTime pacing.
func NewEdgeGenerator(queue *dcctime.EdgeQueue, ratePerSec float64, burst int) *EdgeGenerator {
	return &EdgeGenerator{
		Queue:   queue,
		Limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// Emit pushes every delta in deltas onto Queue in order, waiting on the
// limiter (and, if RealTime, sleeping the simulated duration) between
// each. It returns early if ctx is canceled.
func (g *EdgeGenerator) Emit(ctx context.Context, deltas []uint32) error {
	for _, d := range deltas {
		if err := g.Limiter.Wait(ctx); err != nil {
			return err
		}
		if g.RealTime {
			select {
			case <-time.After(time.Duration(d) * time.Microsecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		g.Queue.Push(d)
	}
	return nil
}

// EmitPacket is a convenience wrapper: Encode then Emit.
func (g *EdgeGenerator) EmitPacket(ctx context.Context, packetBytes []byte) error {
	return g.Emit(ctx, Encode(packetBytes))
}
