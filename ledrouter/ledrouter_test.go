package ledrouter_test

import (
	"testing"

	"github.com/railyard/dccsignal/ledrouter"
)

func TestRampReachesTargetWithinSteps(t *testing.T) {
	var r ledrouter.Ramp
	r.Init(0, 100, 10, 1) // 10 ticks to go from 0 to 100

	var last uint16
	for i := 0; i < 10; i++ {
		last = r.Step()
	}
	if last != 100 {
		t.Fatalf("expected ramp to reach target 100 within 10 steps, got %d", last)
	}
	if r.Step() != 100 {
		t.Errorf("expected ramp to hold at target after reaching it")
	}
}

func TestRampZeroDtJumpsImmediately(t *testing.T) {
	var r ledrouter.Ramp
	r.Init(0, 50, 0, 1)
	if got := r.Step(); got != 50 {
		t.Errorf("expected an immediate jump to target with dt=0, got %d", got)
	}
}

func TestRampDescending(t *testing.T) {
	var r ledrouter.Ramp
	r.Init(100, 0, 5, 1)
	for i := 0; i < 5; i++ {
		r.Step()
	}
	if got := r.Current(); got != 0 {
		t.Errorf("expected ramp to descend to 0, got %d", got)
	}
}

func TestDefaultGammaTableMonotonicAndZeroMapsToZero(t *testing.T) {
	g := ledrouter.DefaultGammaTable()
	if g[0] != 0 {
		t.Fatalf("expected gamma[0] == 0, got %d", g[0])
	}
	prev := uint8(0)
	for i := 1; i < ledrouter.GammaSize; i++ {
		if g[i] < prev {
			t.Fatalf("expected monotonic gamma table, g[%d]=%d < g[%d]=%d", i, g[i], i-1, prev)
		}
		prev = g[i]
	}
}

func TestRouterTicksEveryOutput(t *testing.T) {
	r := ledrouter.NewRouter(3, ledrouter.DefaultGammaTable())
	r.SetIntensityAndSpeed(1, 0x8000, 1, 1) // output 1 to full intensity in one tick

	out := r.Tick()
	if len(out) != 3 {
		t.Fatalf("expected 3 outputs, got %d", len(out))
	}
	if out[1] != 255 {
		t.Errorf("expected output 1 at full duty cycle, got %d", out[1])
	}
	if out[0] != 0 || out[2] != 0 {
		t.Errorf("expected untouched outputs to stay at 0, got %v", out)
	}
}

func TestRouterSetIntensityOutOfRangeIsNoOp(t *testing.T) {
	r := ledrouter.NewRouter(2, ledrouter.DefaultGammaTable())
	r.SetIntensityAndSpeed(5, 0x8000, 1, 1) // out of range, must not panic
	_ = r.Tick()
}

func TestRampRetargetKeepsPriorSlope(t *testing.T) {
	var r ledrouter.Ramp
	r.Init(0, 100, 10, 1) // delta = 10/step
	r.Step()              // cur = 10

	r.Retarget(50) // new target, same delta
	if r.Target() != 50 {
		t.Fatalf("expected Retarget to change the target, got %d", r.Target())
	}
	r.Step()
	if got := r.Current(); got != 20 {
		t.Errorf("expected Retarget to keep the prior slope (step of 10), got %d", got)
	}
}

func TestRampSetSpeedKeepsTarget(t *testing.T) {
	var r ledrouter.Ramp
	r.Init(0, 100, 10, 1)
	r.Step() // cur = 10

	r.SetSpeed(1, 1) // recompute delta for the remaining 90 units over 1 tick
	if r.Target() != 100 {
		t.Fatalf("expected SetSpeed to leave the target unchanged, got %d", r.Target())
	}
	if got := r.Step(); got != 100 {
		t.Errorf("expected the recomputed slope to cover the remaining distance in one step, got %d", got)
	}
}

func TestRouterSetIntensityRetargetsWithoutRecomputingSlope(t *testing.T) {
	r := ledrouter.NewRouter(1, ledrouter.DefaultGammaTable())
	r.SetIntensityAndSpeed(0, 100, 10, 1) // delta = 10/step
	r.Tick()                              // cur = 10

	r.SetIntensity(0, 20) // retarget only
	cur, tgt, ok := r.RampState(0)
	if !ok || tgt != 20 {
		t.Fatalf("expected SetIntensity to retarget to 20, got %d (ok=%v)", tgt, ok)
	}
	r.Tick()
	cur, tgt, _ = r.RampState(0)
	if cur != 20 {
		t.Errorf("expected the existing slope (10/step) to reach the new target in one tick, got cur=%d tgt=%d", cur, tgt)
	}
}

func TestRouterSetSpeedLeavesTargetUnchanged(t *testing.T) {
	r := ledrouter.NewRouter(1, ledrouter.DefaultGammaTable())
	r.SetIntensityAndSpeed(0, 0x8000, 10, 1) // 10 ticks to reach full intensity
	r.Tick()                                 // cur = delta, far short of target

	r.SetSpeed(0, 1, 1) // recompute delta to cover the remaining distance in 1 tick
	_, tgt, _ := r.RampState(0)
	if tgt != 0x8000 {
		t.Fatalf("expected SetSpeed to leave the target at 0x8000, got %#x", tgt)
	}
	out := r.Tick()
	if out[0] != 255 {
		t.Errorf("expected the recomputed slope to reach full duty cycle in one tick, got %d", out[0])
	}
}
