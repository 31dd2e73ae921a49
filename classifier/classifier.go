// Package classifier debounces a 10-bit ADC sample into one of a small
// number of discrete classes, for buttons and resistor ladders wired to
// analog inputs.
package classifier

import "time"

// InvalidIndex marks "no class matched" or "debouncing in progress".
const InvalidIndex uint8 = 0xFF

// MaxClasses bounds the number of class intervals a single Classifier can
// hold.
const MaxClasses = 8

// Limits is one (lo, hi) interval, in 8-bit converted units, for a single
// class.
type Limits struct {
	Lo, Hi uint8
}

// Calibration supplies the per-classifier-type configuration: the class
// interval table and the debounce time.
type Calibration interface {
	// ClassLimits returns the interval for class i of classifier type t, and
	// whether that class slot is configured at all.
	ClassLimits(classifierType uint8, class int) (Limits, bool)
	// DebounceMs returns the debounce time, in milliseconds, for classifier
	// type t.
	DebounceMs(classifierType uint8) uint16
}

// Classifier debounces samples for a single analog input. The zero value
// starts with CurrentClass() == InvalidIndex.
type Classifier struct {
	Type uint8

	currentClass   uint8
	deadline       time.Time
	haveDeadline   bool
	now            func() time.Time
}

// New returns a Classifier of the given calibration type. now defaults to
// time.Now if nil.
func New(classifierType uint8, now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{Type: classifierType, currentClass: InvalidIndex, now: now}
}

// convertInput reduces a 10-bit ADC sample (0-1023) to the 8-bit units
// calibration limits are expressed in.
func convertInput(v uint16) uint8 {
	return uint8(v / 4)
}

// Classify matches v against cal's intervals for this classifier's type,
// without debouncing, returning InvalidIndex if no interval matches.
func (c *Classifier) Classify(cal Calibration, v uint16) uint8 {
	lv := convertInput(v)
	for i := 0; i < MaxClasses; i++ {
		lim, ok := cal.ClassLimits(c.Type, i)
		if !ok {
			continue
		}
		if lv >= lim.Lo && lv <= lim.Hi {
			return uint8(i)
		}
	}
	return InvalidIndex
}

// ClassifyDebounce classifies v and, if the result differs from the
// previously seen class (including a change into or out of InvalidIndex),
// restarts the debounce timer. It returns the debounced class: the current
// class if the debounce deadline has elapsed, else InvalidIndex.
func (c *Classifier) ClassifyDebounce(cal Calibration, v uint16) uint8 {
	idx := c.Classify(cal, v)
	if idx != c.currentClass {
		c.currentClass = idx
		c.deadline = c.now().Add(time.Duration(cal.DebounceMs(c.Type)) * time.Millisecond)
		c.haveDeadline = true
	}
	return c.debouncedClass()
}

// CurrentClass returns the debounced class as of the last ClassifyDebounce
// or Reset call, without taking a new sample.
func (c *Classifier) CurrentClass() uint8 {
	return c.debouncedClass()
}

func (c *Classifier) debouncedClass() uint8 {
	if !c.haveDeadline || c.now().Before(c.deadline) {
		return InvalidIndex
	}
	return c.currentClass
}

// Reset forces the classifier back to InvalidIndex and restarts the
// debounce timer for the currently configured type.
func (c *Classifier) Reset(cal Calibration) {
	c.currentClass = InvalidIndex
	c.deadline = c.now().Add(time.Duration(cal.DebounceMs(c.Type)) * time.Millisecond)
	c.haveDeadline = true
}
