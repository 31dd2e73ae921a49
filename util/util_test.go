package util_test

import (
	"fmt"
	"testing"

	"github.com/railyard/dccsignal/util"
)

func ExampleSetBit_msb() {
	out := util.SetBit(0, 7, true)
	fmt.Printf("%08b\n", out)
	// Output: 10000000
}

func ExampleSetBit_lsb() {
	out := util.SetBit(255, 0, false)
	fmt.Printf("%08b\n", out)
	// Output: 11111110
}

func TestGetBitSetBitRoundTrip(t *testing.T) {
	for i := uint(0); i < 8; i++ {
		b := util.SetBit(0, i, true)
		if !util.GetBit(b, i) {
			t.Errorf("bit %d: expected set", i)
		}
		b = util.SetBit(b, i, false)
		if util.GetBit(b, i) {
			t.Errorf("bit %d: expected clear", i)
		}
	}
}

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != high {
		t.Errorf("expected out of range value %f to be clipped to %f, got %f", input, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != low {
		t.Errorf("expected out of range value %f to be clipped to %f, got %f", input, low, clamped)
	}
}

func TestSatAddU16(t *testing.T) {
	if got := util.SatAddU16(0xFFF0, 0x20); got != 0xFFFF {
		t.Errorf("expected saturation to 0xFFFF, got %#x", got)
	}
	if got := util.SatAddU16(1, 2); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestSatSubU16(t *testing.T) {
	if got := util.SatSubU16(1, 2); got != 0 {
		t.Errorf("expected saturation to 0, got %d", got)
	}
}

func TestSatMulU32toU16(t *testing.T) {
	if got := util.SatMulU32toU16(1000, 1000); got != 0xFFFF {
		t.Errorf("expected saturation to 0xFFFF, got %#x", got)
	}
	if got := util.SatMulU32toU16(2, 3); got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
}

func TestLimiter(t *testing.T) {
	l := util.Limiter{Min: 0, Max: 10}
	if !l.Check(5) {
		t.Errorf("expected 5 to be within [0,10]")
	}
	if l.Check(11) {
		t.Errorf("expected 11 to be out of [0,10]")
	}
	if got := l.Clamp(11); got != 10 {
		t.Errorf("expected clamp to 10, got %f", got)
	}
}

func TestMergeErrors(t *testing.T) {
	if err := util.MergeErrors(nil); err != nil {
		t.Errorf("expected nil error for empty input, got %v", err)
	}
	errs := []error{fmt.Errorf("a"), nil, fmt.Errorf("b")}
	err := util.MergeErrors(errs)
	if err == nil {
		t.Fatalf("expected non-nil error")
	}
	if err.Error() != "a\nb" {
		t.Errorf("expected %q, got %q", "a\nb", err.Error())
	}
}
