package calibration_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/railyard/dccsignal/calibration"
)

type memEEPROM struct {
	data map[uint16]byte
}

func newMemEEPROM() *memEEPROM { return &memEEPROM{data: map[uint16]byte{}} }

func (m *memEEPROM) ReadByte(id uint16) byte     { return m.data[id] }
func (m *memEEPROM) WriteByte(id uint16, v byte) { m.data[id] = v }

type zeroROM struct{}

func (zeroROM) DefaultCV(id uint16) byte                           { return 0 }
func (zeroROM) BuiltInSignalByte(signalIndex int, offset int) byte { return 0 }

func TestReadAllDetectsUnwrittenImageAndLoadsDefaults(t *testing.T) {
	e := newMemEEPROM()
	s := calibration.New(e, zeroROM{}, nil)
	// never written: ReadByte returns zero value, not 0xFF, so simulate
	// erased EEPROM explicitly.
	e.data[calibration.CvManufacturerID] = calibration.ManufacturerIDInvalid

	if valid := s.ReadAll(); valid {
		t.Fatalf("expected ReadAll to report an invalid (never written) image")
	}
	if got := s.GetCV(calibration.CvManufacturerID); got != 0 {
		t.Errorf("expected defaults to reset ManufacturerID to 0, got %d", got)
	}
}

func TestSetCVWritesThroughOnChangeOnly(t *testing.T) {
	e := newMemEEPROM()
	s := calibration.New(e, zeroROM{}, nil)

	if err := s.SetCV(calibration.CvDecoderAddressLSB, 42); err != nil {
		t.Fatalf("SetCV: %v", err)
	}
	if e.data[calibration.CvDecoderAddressLSB] != 42 {
		t.Fatalf("expected write-through to EEPROM")
	}
	delete(e.data, calibration.CvDecoderAddressLSB)
	if err := s.SetCV(calibration.CvDecoderAddressLSB, 42); err != nil {
		t.Fatalf("SetCV: %v", err)
	}
	if _, ok := e.data[calibration.CvDecoderAddressLSB]; ok {
		t.Errorf("expected no write-through when the value is unchanged")
	}
}

func TestSetCVOutOfRange(t *testing.T) {
	s := calibration.New(newMemEEPROM(), zeroROM{}, nil)
	if err := s.SetCV(60000, 1); err == nil {
		t.Fatalf("expected an error for an out-of-range CV id")
	}
}

func TestSetCVTriggersReconfigureOnSignalWiring(t *testing.T) {
	e := newMemEEPROM()
	var gotPin uint8
	called := false
	s := calibration.New(e, zeroROM{}, func(pin uint8) { called = true; gotPin = pin })

	if err := s.SetCV(calibration.CvSignalInputBase, 7); err != nil {
		t.Fatalf("SetCV: %v", err)
	}
	if !called {
		t.Fatalf("expected reconfigure callback for an input CV write")
	}
	if gotPin != 7 {
		t.Errorf("expected reconfigure to receive the written pin, got %d", gotPin)
	}
}

func TestGetSignalIDClampsOutOfRangeIndex(t *testing.T) {
	e := newMemEEPROM()
	s := calibration.New(e, zeroROM{}, nil)
	s.SetCV(calibration.CvSignalIDBase, 5)
	if got := s.GetSignalID(250); got != 5 {
		t.Errorf("expected out-of-range index to clamp to index 0, got %d", got)
	}
}

func TestIsBuiltInAndIsUserDefined(t *testing.T) {
	s := calibration.New(newMemEEPROM(), zeroROM{}, nil)
	if !s.IsBuiltIn(1) {
		t.Errorf("expected signal id 1 to be built-in")
	}
	if s.IsBuiltIn(128) {
		t.Errorf("expected signal id 128 to not be built-in")
	}
	if !s.IsUserDefined(128) {
		t.Errorf("expected signal id 128 to be user-defined")
	}
}

func TestGetSignalAspectUnknownIDIsZero(t *testing.T) {
	s := calibration.New(newMemEEPROM(), zeroROM{}, nil)
	aspect := s.GetSignalAspect(0, 0)
	if aspect != (calibration.SignalAspect{}) {
		t.Errorf("expected zero aspect for unknown signal id, got %+v", aspect)
	}
}

func TestOutputAddressMethodBit(t *testing.T) {
	s := calibration.New(newMemEEPROM(), zeroROM{}, nil)
	if s.OutputAddressMethod() {
		t.Fatalf("expected decoder-address method by default")
	}
	s.SetCV(calibration.CvConfiguration, 0b0100_0000)
	if !s.OutputAddressMethod() {
		t.Errorf("expected output-address method after setting CV29 bit 6")
	}
}

func TestGetClassifierLimitsResolvesAllFiveClasses(t *testing.T) {
	s := calibration.New(newMemEEPROM(), zeroROM{}, nil)
	base := uint16(calibration.CvClassifierCalBase) + uint16(calibration.ClassifierCalBytes)
	s.SetCV(base, 5) // debounce for classifier type 1
	los := []uint8{10, 20, 30, 40, 50}
	his := []uint8{19, 29, 39, 49, 59}
	for i, v := range los {
		s.SetCV(base+1+uint16(i), v)
	}
	for i, v := range his {
		s.SetCV(base+1+uint16(calibration.NrClassesPerType)+uint16(i), v)
	}

	for class := 0; class < calibration.NrClassesPerType; class++ {
		lim, ok := s.GetClassifierLimits(1, class)
		if !ok {
			t.Fatalf("class %d: expected a configured interval", class)
		}
		if lim.Lo != los[class] || lim.Hi != his[class] {
			t.Errorf("class %d: got (%d, %d), want (%d, %d)", class, lim.Lo, lim.Hi, los[class], his[class])
		}
	}
	if _, ok := s.GetClassifierLimits(1, calibration.NrClassesPerType); ok {
		t.Errorf("expected an out-of-range class to report !ok")
	}
	if _, ok := s.GetClassifierLimits(calibration.NrClassifierTypes, 0); ok {
		t.Errorf("expected an out-of-range classifier type to report !ok")
	}
}

func TestChecksumChangesWithImage(t *testing.T) {
	s := calibration.New(newMemEEPROM(), zeroROM{}, nil)
	before := s.Checksum()
	s.SetCV(calibration.CvDecoderAddressLSB, 99)
	after := s.Checksum()
	if before == after {
		t.Errorf("expected checksum to change after a CV write")
	}
}

func TestDumpRoundTripsThroughWriteAllAndReadAll(t *testing.T) {
	e := newMemEEPROM()
	s := calibration.New(e, zeroROM{}, nil)
	s.SetCV(calibration.CvDecoderAddressLSB, 7)
	s.SetCV(calibration.CvSignalIDBase+2, 200)
	want := s.Dump()

	reloaded := calibration.New(e, zeroROM{}, nil)
	reloaded.ReadAll()
	got := reloaded.Dump()

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dump after reload differs from the original image (-want +got):\n%s", diff)
	}
}
