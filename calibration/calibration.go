// Package calibration provides a typed view over the flat EEPROM-backed CV
// image: decoder address, per-signal input/output wiring, classifier
// limits, and signal aspect templates (built-in, in ROM, and user-defined,
// in the image).
package calibration

import (
	"github.com/pkg/errors"
	"github.com/snksoft/crc"

	"github.com/railyard/dccsignal/classifier"
)

// CV numbers, per the fixed layout.
const (
	CvDecoderAddressLSB             = 1
	CvAuxiliaryActivation           = 2
	CvTimeOnBase                    = 3
	CvManufacturerVersionID         = 7
	CvManufacturerID                = 8
	CvDecoderAddressMSB             = 9
	CvConfiguration                 = 29
	CvManufacturerCVStructure       = 33
	CvDccAddressingMethod           = 39
	CvMaxNrSignals                  = 40
	CvMaxBuiltInIDs                 = 41
	CvSignalIDBase                  = 42
	CvSignalFirstOutputBase         = 50
	CvSignalInputBase               = 58
	CvSignalInputClassifierTypeBase = 66
	CvClassifierCalBase             = 112
	CvUserDefinedSignalBase         = 134
)

// ManufacturerIDInvalid is the EEPROM's erased-byte value; the image is
// considered never-written while CvManufacturerID holds this value.
const ManufacturerIDInvalid byte = 0xFF

// NrSignals, NrClassifierTypes and NrUserDefinedSignals size the fixed
// regions of the CV image this decoder supports. Each classifier type
// occupies ClassifierCalBytes consecutive CVs: (debounce_10ms, lo[0..4],
// hi[0..4]), one interval per class (Red/Green/Yellow/White/AdMax).
const (
	NrSignals            = 8
	NrClassifierTypes    = 2
	NrClassesPerType     = 5
	ClassifierCalBytes   = 1 + 2*NrClassesPerType
	UserDefinedSignalLen = 19
	NrUserDefinedSignals = 8
	kLastCV              = CvUserDefinedSignalBase + NrUserDefinedSignals*UserDefinedSignalLen
)

// ErrOutOfRangeCV is returned when a CV id falls outside [0, kLastCV).
var ErrOutOfRangeCV = errors.New("calibration: CV id out of range")

// SignalAspect is the decoded per-aspect template for one signal.
type SignalAspect struct {
	NumOutputs              uint8
	Aspect                  uint8 // bit per output, 1 = 100%
	Blink                   uint8 // bit per output, 1 = blinking
	ChangeOverTime10ms      uint8
	ChangeOverTimeBlink10ms uint8
}

// InputCal is the decoded input-source configuration for one signal.
type InputCal struct {
	Type uint8 // 0=Dcc, 1=Adc, 2=Dig
	Pin  uint8
}

// OutputTarget is the decoded first-output configuration for one signal.
type OutputTarget struct {
	External bool
	Pin      uint8
	// Step is output_pin_step: the pin stride walked from Pin for each
	// subsequent output of the signal, typically +1 or -1.
	Step int8
}

// EEPROM is the persistence boundary the Store reads from and writes
// through to. Implementations must tolerate ReadByte for any id in
// [0, kLastCV).
type EEPROM interface {
	ReadByte(id uint16) byte
	WriteByte(id uint16, val byte)
}

// ROMDefaults supplies the factory-default CV image and the built-in
// signal aspect templates, both normally compiled into program memory on
// the target.
type ROMDefaults interface {
	DefaultCV(id uint16) byte
	BuiltInSignalByte(signalIndex int, offset int) byte
}

// Store is the calibration manager: an in-RAM mirror of the CV image,
// written through to EEPROM on change, with typed accessors over the
// fixed layout.
type Store struct {
	image       [kLastCV]byte
	eeprom      EEPROM
	rom         ROMDefaults
	reconfigure func(pin uint8)
}

// New creates a Store backed by eeprom and rom. reconfigure, if non-nil, is
// called with the affected pin whenever a CV write touches a signal's
// input or output configuration, mirroring CalM::configure_pins.
func New(eeprom EEPROM, rom ROMDefaults, reconfigure func(pin uint8)) *Store {
	return &Store{eeprom: eeprom, rom: rom, reconfigure: reconfigure}
}

// IsCVIDValid reports whether id addresses a byte within the image.
func (s *Store) IsCVIDValid(id uint16) bool {
	return id < kLastCV
}

// GetCV returns the CV value, or 0 if id is out of range.
func (s *Store) GetCV(id uint16) uint8 {
	if !s.IsCVIDValid(id) {
		return 0
	}
	return s.image[id]
}

// SetCV writes val to CV id, writing through to EEPROM if the value
// changed, and triggering pin reconfiguration if id falls within a
// signal's input or output configuration range. It returns
// ErrOutOfRangeCV if id is out of range.
func (s *Store) SetCV(id uint16, val uint8) error {
	if !s.IsCVIDValid(id) {
		return errors.Wrapf(ErrOutOfRangeCV, "cv %d", id)
	}
	changed := s.image[id] != val
	s.image[id] = val
	if changed {
		s.update(id)
		if s.touchesSignalWiring(id) && s.reconfigure != nil {
			s.reconfigure(val & 0x3F)
		}
	}
	return nil
}

func (s *Store) touchesSignalWiring(id uint16) bool {
	if id >= CvSignalInputBase && id < CvSignalInputBase+NrSignals {
		return true
	}
	if id >= CvSignalFirstOutputBase && id < CvSignalFirstOutputBase+NrSignals {
		return true
	}
	return false
}

func (s *Store) update(id uint16) {
	if s.eeprom != nil {
		s.eeprom.WriteByte(id, s.image[id])
	}
}

// ReadAll loads the whole image from EEPROM. It returns true if
// CvManufacturerID held a valid (previously written) value, false if the
// image had never been written and has been reset to ROM defaults.
func (s *Store) ReadAll() bool {
	for i := uint16(0); i < kLastCV; i++ {
		s.image[i] = s.eeprom.ReadByte(i)
	}
	if s.image[CvManufacturerID] == ManufacturerIDInvalid {
		s.SetDefaults()
		return false
	}
	return true
}

// WriteAll stores the whole image to EEPROM.
func (s *Store) WriteAll() {
	for i := uint16(0); i < kLastCV; i++ {
		s.eeprom.WriteByte(i, s.image[i])
	}
}

// SetDefaults overwrites the image with ROM factory defaults and writes it
// back to EEPROM.
func (s *Store) SetDefaults() {
	for i := uint16(0); i < kLastCV; i++ {
		if s.rom != nil {
			s.image[i] = s.rom.DefaultCV(i)
		} else {
			s.image[i] = 0
		}
	}
	s.WriteAll()
}

// Dump returns a copy of the whole CV image, for diagnostics.
func (s *Store) Dump() []byte {
	out := make([]byte, kLastCV)
	copy(out, s.image[:])
	return out
}

var checksumTable = crc.NewTable(crc.XMODEM)

// Checksum returns an XMODEM CRC over the whole image, for diagnostics
// only; it never gates loading.
func (s *Store) Checksum() uint16 {
	c := checksumTable.InitCrc()
	c = checksumTable.UpdateCrc(c, s.image[:])
	return checksumTable.CRC16(c)
}

const (
	firstBuiltInSignalID     = 1
	nrBuiltInSignals         = 50
	firstUserDefinedSignalID = 128
)

// GetSignalID returns the signal id (0=unused, built-in, or
// user-defined) configured for signal index idx.
func (s *Store) GetSignalID(idx uint8) uint8 {
	i := idx
	if i >= NrSignals {
		i = 0
	}
	return s.GetCV(CvSignalIDBase + uint16(i))
}

// IsBuiltIn reports whether id names a built-in signal template.
func (s *Store) IsBuiltIn(id uint8) bool {
	return id >= firstBuiltInSignalID && id < firstBuiltInSignalID+nrBuiltInSignals
}

// IsUserDefined reports whether id names a user-defined signal template.
func (s *Store) IsUserDefined(id uint8) bool {
	return id >= firstUserDefinedSignalID && id < firstUserDefinedSignalID+NrUserDefinedSignals
}

// GetSignalAspect returns the aspect template for signalID's cmd-th
// aspect. All fields are zero if signalID names neither a built-in nor a
// user-defined signal.
func (s *Store) GetSignalAspect(signalID uint8, cmd uint8) SignalAspect {
	switch {
	case s.IsUserDefined(signalID):
		idx := signalID - firstUserDefinedSignalID
		base := CvUserDefinedSignalBase + uint16(idx)*UserDefinedSignalLen
		return s.decodeAspect(func(off uint16) uint8 { return s.GetCV(base + off) }, cmd)
	case s.IsBuiltIn(signalID):
		idx := int(signalID - firstBuiltInSignalID)
		return s.decodeAspect(func(off uint16) uint8 {
			if s.rom == nil {
				return 0
			}
			return s.rom.BuiltInSignalByte(idx, int(off))
		}, cmd)
	default:
		return SignalAspect{}
	}
}

// decodeAspect reads the 19-byte template layout:
// byte 0: num_outputs (low 4 bits); bytes 1..16: 8 (aspect, blink) pairs;
// byte 17: change_over_10ms; byte 18: change_over_blink_10ms.
// cmd selects which of the 8 (aspect, blink) pairs is returned; it is not
// range-checked.
func (s *Store) decodeAspect(read func(off uint16) uint8, cmd uint8) SignalAspect {
	numOutputs := read(0) & 0x0F
	pairOffset := uint16(1) + uint16(cmd)*2
	return SignalAspect{
		NumOutputs:              numOutputs,
		Aspect:                  read(pairOffset),
		Blink:                   read(pairOffset + 1),
		ChangeOverTime10ms:      read(17),
		ChangeOverTimeBlink10ms: read(18),
	}
}

// GetInput returns the decoded input source configuration for signal
// index idx.
func (s *Store) GetInput(idx uint8) InputCal {
	v := s.GetCV(CvSignalInputBase + uint16(idx))
	return InputCal{Type: (v >> 6) & 0x03, Pin: v & 0x3F}
}

// GetFirstOutput returns the decoded first-output configuration for
// signal index idx. output_pin_step has no CV of its own in the fixed
// layout, so it is decoded from bit 2 of the signal's classifier-type CV
// (CvSignalInputClassifierTypeBase), which otherwise only uses its low 2
// bits: 0 = step +1, 1 = step -1.
func (s *Store) GetFirstOutput(idx uint8) OutputTarget {
	v := s.GetCV(CvSignalFirstOutputBase + uint16(idx))
	step := int8(1)
	if s.GetCV(CvSignalInputClassifierTypeBase+uint16(idx))&0x04 != 0 {
		step = -1
	}
	return OutputTarget{External: v&0x80 != 0, Pin: v & 0x3F, Step: step}
}

// GetClassifierLimits returns the decoded (lo, hi) interval for class
// class (0..NrClassesPerType-1) of classifier type classifierType. ok is
// false if classifierType or class is out of range, or the interval is
// unconfigured (lo and hi both zero).
func (s *Store) GetClassifierLimits(classifierType uint8, class int) (classifier.Limits, bool) {
	if int(classifierType) >= NrClassifierTypes || class < 0 || class >= NrClassesPerType {
		return classifier.Limits{}, false
	}
	base := CvClassifierCalBase + uint16(classifierType)*ClassifierCalBytes
	lo := s.GetCV(base + 1 + uint16(class))
	hi := s.GetCV(base + 1 + NrClassesPerType + uint16(class))
	if lo == 0 && hi == 0 {
		return classifier.Limits{}, false
	}
	return classifier.Limits{Lo: lo, Hi: hi}, true
}

// ClassLimits implements classifier.Calibration.
func (s *Store) ClassLimits(classifierType uint8, class int) (classifier.Limits, bool) {
	return s.GetClassifierLimits(classifierType, class)
}

// DebounceMs implements classifier.Calibration: the debounce time, in
// milliseconds, for classifier type classifierType.
func (s *Store) DebounceMs(classifierType uint8) uint16 {
	if int(classifierType) >= NrClassifierTypes {
		return 0
	}
	base := CvClassifierCalBase + uint16(classifierType)*ClassifierCalBytes
	return uint16(s.GetCV(base)) * 10
}

// OutputAddressMethod reports whether CV29 selects output-address (true)
// rather than decoder-address (false) accessory addressing.
func (s *Store) OutputAddressMethod() bool {
	return s.GetCV(CvConfiguration)&0b0100_0000 != 0
}

// DccAddressingMethod returns CV39's raw value (0=Roco quirk, 1=RCN-123);
// both currently drive the same decoder-address formula.
func (s *Store) DccAddressingMethod() uint8 {
	return s.GetCV(CvDccAddressingMethod)
}
