// Package outsink defines the two physical output sinks a routed LED
// duty cycle can land on, plus in-memory fakes of each for simulation and
// tests, matching the small named-interface style the rest of this
// codebase uses at its hardware boundaries.
package outsink

// OnboardPWM describes a microcontroller's own PWM-capable pins.
type OnboardPWM interface {
	// WritePWM sets pin's duty cycle, 0 (off) .. 255 (full on).
	WritePWM(pin uint8, duty uint8) error
}

// ExternalShiftOut describes a shift-register-driven output bank
// (typically a constant-current LED driver chip) addressed by channel
// rather than by microcontroller pin.
type ExternalShiftOut interface {
	// WriteChannel sets channel's duty cycle, 0 (off) .. 255 (full on).
	WriteChannel(channel uint8, duty uint8) error
	// Latch commits all WriteChannel calls made since the last Latch.
	Latch() error
}

// MemPWM is an in-memory OnboardPWM fake: every write lands directly in
// Values, with no hardware side effects, for use in simulation and tests.
type MemPWM struct {
	Values map[uint8]uint8
}

// NewMemPWM creates an empty MemPWM.
func NewMemPWM() *MemPWM {
	return &MemPWM{Values: make(map[uint8]uint8)}
}

// WritePWM implements OnboardPWM.
func (m *MemPWM) WritePWM(pin uint8, duty uint8) error {
	m.Values[pin] = duty
	return nil
}

// MemShiftOut is an in-memory ExternalShiftOut fake. Writes land in a
// staging buffer and only become visible in Latched after Latch, matching
// the two-phase write-then-latch behavior of a real shift register.
type MemShiftOut struct {
	staged  map[uint8]uint8
	Latched map[uint8]uint8
}

// NewMemShiftOut creates an empty MemShiftOut.
func NewMemShiftOut() *MemShiftOut {
	return &MemShiftOut{staged: make(map[uint8]uint8), Latched: make(map[uint8]uint8)}
}

// WriteChannel implements ExternalShiftOut.
func (m *MemShiftOut) WriteChannel(channel uint8, duty uint8) error {
	m.staged[channel] = duty
	return nil
}

// Latch implements ExternalShiftOut.
func (m *MemShiftOut) Latch() error {
	for ch, duty := range m.staged {
		m.Latched[ch] = duty
	}
	return nil
}
