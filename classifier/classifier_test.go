package classifier_test

import (
	"testing"
	"time"

	"github.com/railyard/dccsignal/classifier"
)

type fakeCal struct {
	limits  map[int]classifier.Limits
	debMs   uint16
}

func (f *fakeCal) ClassLimits(classifierType uint8, class int) (classifier.Limits, bool) {
	l, ok := f.limits[class]
	return l, ok
}

func (f *fakeCal) DebounceMs(classifierType uint8) uint16 { return f.debMs }

func newCal(debMs uint16) *fakeCal {
	return &fakeCal{
		debMs: debMs,
		limits: map[int]classifier.Limits{
			0: {Lo: 0, Hi: 50},
			1: {Lo: 51, Hi: 150},
			2: {Lo: 151, Hi: 255},
		},
	}
}

func TestClassifyWithoutDebounce(t *testing.T) {
	cal := newCal(0)
	c := classifier.New(0, nil)

	if got := c.Classify(cal, 0); got != 0 {
		t.Errorf("expected class 0, got %d", got)
	}
	if got := c.Classify(cal, 400); got != 1 {
		t.Errorf("expected class 1, got %d", got)
	}
	if got := c.Classify(cal, 1023); got != 2 {
		t.Errorf("expected class 2, got %d", got)
	}
}

func TestClassifyDebounceHoldsInvalidUntilDeadline(t *testing.T) {
	now := time.Unix(0, 0)
	cal := newCal(10)
	c := classifier.New(0, func() time.Time { return now })

	if got := c.ClassifyDebounce(cal, 0); got != classifier.InvalidIndex {
		t.Fatalf("expected InvalidIndex before the debounce deadline, got %d", got)
	}
	now = now.Add(11 * time.Millisecond)
	if got := c.ClassifyDebounce(cal, 0); got != 0 {
		t.Errorf("expected class 0 after the debounce deadline, got %d", got)
	}
}

func TestClassifyDebounceRestartsOnAnyChangeIncludingInvalid(t *testing.T) {
	now := time.Unix(0, 0)
	cal := newCal(10)
	c := classifier.New(0, func() time.Time { return now })

	c.ClassifyDebounce(cal, 0) // first class 0 sample starts the debounce timer
	now = now.Add(11 * time.Millisecond)
	if got := c.ClassifyDebounce(cal, 0); got != 0 {
		t.Fatalf("expected class 0 settled, got %d", got)
	}

	// A reading that matches no configured interval (1000 converts to 250,
	// and this calibration only configures 0-50) must restart debounce,
	// even though the previous state was a valid settled class.
	noInterval := newCal(10)
	noInterval.limits = map[int]classifier.Limits{0: {Lo: 0, Hi: 50}}
	if got := c.ClassifyDebounce(noInterval, 1000); got != classifier.InvalidIndex {
		t.Fatalf("expected InvalidIndex immediately on the changed reading, got %d", got)
	}
	now = now.Add(11 * time.Millisecond)
	if got := c.ClassifyDebounce(noInterval, 1000); got != classifier.InvalidIndex {
		t.Errorf("expected InvalidIndex to remain settled, got %d", got)
	}
}

func TestReset(t *testing.T) {
	now := time.Unix(0, 0)
	cal := newCal(5)
	c := classifier.New(0, func() time.Time { return now })

	now = now.Add(6 * time.Millisecond)
	c.ClassifyDebounce(cal, 0)
	c.Reset(cal)
	if got := c.ClassifyDebounce(cal, 0); got != classifier.InvalidIndex {
		t.Errorf("expected InvalidIndex immediately after Reset, got %d", got)
	}
}
