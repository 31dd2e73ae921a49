package dccpacket

import "github.com/railyard/dccsignal/bitsm"

// PreambleMinOnes is the minimum count of consecutive "1" bits that must
// precede a "0" bit for the following bytes to be treated as a packet.
const PreambleMinOnes = 10

type extractorState uint8

const (
	statePreamble extractorState = iota
	stateData
)

// Stats counts bit events seen by an Extractor, for diagnostics only; it
// never influences a decode decision.
type Stats struct {
	Ones, Zeros, Invalids uint32
	Overflows             uint32
}

// Extractor assembles bitsm.Event values into Packets and invokes Handler
// for each completed packet whose Kind is not Invalid (a failed checksum or
// a too-short non-idle packet is dropped). It holds no allocation beyond
// its fields.
type Extractor struct {
	state          extractorState
	onesInPreamble uint16
	bitsInByte     uint8
	byteCount      int

	current Packet

	Handler Handler
	Stats   *Stats
}

// NewExtractor returns an Extractor ready to receive bit events, delivering
// completed packets to handler.
func NewExtractor(handler Handler) *Extractor {
	e := &Extractor{Handler: handler}
	e.resetToPreamble()
	return e
}

func (e *Extractor) resetToPreamble() {
	e.state = statePreamble
	e.onesInPreamble = 0
	e.bitsInByte = 0
	e.byteCount = 0
	e.current.Clear()
}

// Feed advances the extractor with a single bitsm.Event.
func (e *Extractor) Feed(ev bitsm.Event) {
	switch ev {
	case bitsm.One:
		if e.Stats != nil {
			e.Stats.Ones++
		}
		e.execute(1)
	case bitsm.Zero:
		if e.Stats != nil {
			e.Stats.Zeros++
		}
		e.execute(0)
	case bitsm.EventInvalid:
		if e.Stats != nil {
			e.Stats.Invalids++
		}
		e.resetToPreamble()
	case bitsm.NoEvent:
		// half a bit, nothing to do yet
	}
}

func (e *Extractor) execute(bit byte) {
	switch e.state {
	case statePreamble:
		e.executePreamble(bit)
	case stateData:
		e.executeData(bit)
	}
}

func (e *Extractor) executePreamble(bit byte) {
	if bit == 1 {
		if e.onesInPreamble < 255 {
			e.onesInPreamble++
		}
		return
	}
	// bit == 0
	if e.onesInPreamble >= PreambleMinOnes {
		ones := e.onesInPreamble
		if ones > 255 {
			ones = 255
		}
		e.current.PreambleOnes = uint8(ones)
		e.state = stateData
		e.bitsInByte = 0
	}
	e.onesInPreamble = 0
}

func (e *Extractor) executeData(bit byte) {
	if e.bitsInByte < 8 {
		e.current.AddBit(bit)
		e.bitsInByte++
		return
	}

	// 9th bit: a "0" is a byte separator, a "1" ends the packet.
	e.bitsInByte = 0
	if bit == 1 {
		if e.Handler != nil && e.current.Kind() != Invalid {
			e.Handler(e.current)
		}
		e.state = statePreamble
		e.onesInPreamble = 0
		e.byteCount = 0
		e.current.Clear()
		return
	}

	// byte separator: a packet that would exceed the maximum byte count is
	// not silently truncated; it is treated like an invalid half-bit.
	e.byteCount++
	if e.byteCount >= MaxPacketBytes {
		if e.Stats != nil {
			e.Stats.Overflows++
		}
		e.resetToPreamble()
	}
}
