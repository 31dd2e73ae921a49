package simconfig

import (
	"github.com/railyard/dccsignal/calibration"
)

// rom implements calibration.ROMDefaults over a Config, playing the role
// of the target's compiled-in factory defaults table.
type rom struct {
	cfg Config
}

// ROMDefaults adapts cfg into a calibration.ROMDefaults, so the
// simulator's calibration.Store can recover the same factory defaults a
// freshly flashed decoder would.
func ROMDefaults(cfg Config) calibration.ROMDefaults {
	return rom{cfg: cfg}
}

// DefaultCV returns the factory-default byte for CV id.
func (r rom) DefaultCV(id uint16) byte {
	switch {
	case id == calibration.CvManufacturerID:
		return 0x01
	case id == calibration.CvDecoderAddressLSB:
		return byte(r.cfg.DecoderAddress & 0xFF)
	case id == calibration.CvDecoderAddressMSB:
		return byte((r.cfg.DecoderAddress >> 8) & 0x3F)
	case id >= calibration.CvSignalIDBase && id < calibration.CvSignalIDBase+calibration.NrSignals:
		return r.signalID(int(id - calibration.CvSignalIDBase))
	case id >= calibration.CvSignalFirstOutputBase && id < calibration.CvSignalFirstOutputBase+calibration.NrSignals:
		return r.outputByte(int(id - calibration.CvSignalFirstOutputBase))
	case id >= calibration.CvSignalInputBase && id < calibration.CvSignalInputBase+calibration.NrSignals:
		return r.inputByte(int(id - calibration.CvSignalInputBase))
	case id >= calibration.CvClassifierCalBase && id < calibration.CvClassifierCalBase+calibration.NrClassifierTypes*calibration.ClassifierCalBytes:
		return r.classifierByte(int(id - calibration.CvClassifierCalBase))
	default:
		return 0
	}
}

func (r rom) signalID(idx int) byte {
	if idx < len(r.cfg.Signals) {
		return r.cfg.Signals[idx].ID
	}
	return 0
}

func (r rom) outputByte(idx int) byte {
	if idx >= len(r.cfg.Signals) {
		return 0
	}
	s := r.cfg.Signals[idx]
	b := s.OutputPin & 0x3F
	if s.OutputExtern {
		b |= 0x80
	}
	return b
}

func (r rom) inputByte(idx int) byte {
	if idx >= len(r.cfg.Signals) {
		return 0
	}
	s := r.cfg.Signals[idx]
	var t byte
	switch s.InputType {
	case "adc":
		t = 1
	case "dig":
		t = 2
	default:
		t = 0
	}
	return (t&0x03)<<6 | (s.InputPin & 0x3F)
}

func (r rom) classifierByte(offset int) byte {
	classifierType := offset / calibration.ClassifierCalBytes
	field := offset % calibration.ClassifierCalBytes
	for _, c := range r.cfg.Classifiers {
		if int(c.Type) != classifierType {
			continue
		}
		switch {
		case field == 0:
			return byte(c.DebounceMs / 10)
		case field >= 1 && field <= calibration.NrClassesPerType:
			class := field - 1
			if class < len(c.Lo) {
				return c.Lo[class]
			}
		case field > calibration.NrClassesPerType && field <= 2*calibration.NrClassesPerType:
			class := field - 1 - calibration.NrClassesPerType
			if class < len(c.Hi) {
				return c.Hi[class]
			}
		}
	}
	return 0
}

// BuiltInSignalByte returns 0 for every built-in template slot; this
// configuration-driven ROM only models user-defined signals, wired via
// asciicfg, not the compiled-in built-in template table.
func (r rom) BuiltInSignalByte(signalIndex int, offset int) byte {
	return 0
}
