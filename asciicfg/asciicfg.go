// Package asciicfg models the line-oriented transport boundary between
// the serial ASCII configuration protocol and the calibration store: a
// line in, a Command out, routed to calibration.Store, a Response out.
// It does not attempt a full parser for the protocol's query/copy
// surface; it recognizes exactly the three commands the core must accept
// the effects of.
package asciicfg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/railyard/dccsignal/calibration"
)

// ErrUnsupportedCommand is returned by Decode for any line whose leading
// keyword is not INIT, SET_CV, or SET_SIGNAL.
var ErrUnsupportedCommand = errors.New("asciicfg: unsupported command")

// Kind names a recognized command.
type Kind uint8

const (
	Init Kind = iota
	SetCV
	SetSignal
)

// Command is a decoded line. Only the fields relevant to Kind are
// populated.
type Command struct {
	Kind Kind

	CVID  uint16
	Value uint8

	SignalIdx    uint8
	SignalID     uint8
	OutputExtern bool
	OutputPin    uint8
	InputType    uint8 // calibration.InputCal.Type encoding: 0=Dcc, 1=Adc, 2=Dig
	InputPin     uint8
}

// Response is the line-oriented reply: "OK <message>" or "ERR <message>".
type Response struct {
	OK      bool
	Message string
}

// String renders the response in wire format.
func (r Response) String() string {
	prefix := "ERR "
	if r.OK {
		prefix = "OK "
	}
	return prefix + r.Message
}

// Codec recognizes INIT, SET_CV, and SET_SIGNAL lines.
type Codec struct{}

// Decode parses a single line (without its trailing newline) into a
// Command. It returns ErrUnsupportedCommand for anything else.
func (Codec) Decode(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrUnsupportedCommand
	}
	switch strings.ToUpper(fields[0]) {
	case "INIT":
		return Command{Kind: Init}, nil
	case "SET_CV":
		return decodeSetCV(fields[1:])
	case "SET_SIGNAL":
		return decodeSetSignal(fields[1:])
	default:
		return Command{}, ErrUnsupportedCommand
	}
}

func decodeSetCV(args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, errors.Wrap(ErrUnsupportedCommand, "SET_CV requires <id> <val>")
	}
	id, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return Command{}, errors.Wrap(err, "SET_CV id")
	}
	val, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return Command{}, errors.Wrap(err, "SET_CV val")
	}
	return Command{Kind: SetCV, CVID: uint16(id), Value: uint8(val)}, nil
}

// decodeSetSignal parses: <idx> <signal_id> <ONB|EXT> <pin> <ADC|DCC|DIG> <input_pin>
func decodeSetSignal(args []string) (Command, error) {
	if len(args) != 6 {
		return Command{}, errors.Wrap(ErrUnsupportedCommand,
			"SET_SIGNAL requires <idx> <signal_id> <ONB|EXT> <pin> <ADC|DCC|DIG> <input_pin>")
	}
	idx, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return Command{}, errors.Wrap(err, "SET_SIGNAL idx")
	}
	signalID, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return Command{}, errors.Wrap(err, "SET_SIGNAL signal_id")
	}
	var extern bool
	switch strings.ToUpper(args[2]) {
	case "ONB":
		extern = false
	case "EXT":
		extern = true
	default:
		return Command{}, errors.Wrapf(ErrUnsupportedCommand, "unknown output kind %q", args[2])
	}
	pin, err := strconv.ParseUint(args[3], 10, 8)
	if err != nil {
		return Command{}, errors.Wrap(err, "SET_SIGNAL pin")
	}
	var inputType uint8
	switch strings.ToUpper(args[4]) {
	case "DCC":
		inputType = 0
	case "ADC":
		inputType = 1
	case "DIG":
		inputType = 2
	default:
		return Command{}, errors.Wrapf(ErrUnsupportedCommand, "unknown input kind %q", args[4])
	}
	inputPin, err := strconv.ParseUint(args[5], 10, 8)
	if err != nil {
		return Command{}, errors.Wrap(err, "SET_SIGNAL input_pin")
	}
	return Command{
		Kind:         SetSignal,
		SignalIdx:    uint8(idx),
		SignalID:     uint8(signalID),
		OutputExtern: extern,
		OutputPin:    uint8(pin),
		InputType:    inputType,
		InputPin:     uint8(inputPin),
	}, nil
}

// Apply routes a decoded Command to store and returns the line-oriented
// Response.
func Apply(store *calibration.Store, cmd Command) Response {
	switch cmd.Kind {
	case Init:
		store.SetDefaults()
		return Response{OK: true, Message: "defaults restored"}
	case SetCV:
		if err := store.SetCV(cmd.CVID, cmd.Value); err != nil {
			return Response{OK: false, Message: err.Error()}
		}
		return Response{OK: true, Message: fmt.Sprintf("cv %d = %d", cmd.CVID, cmd.Value)}
	case SetSignal:
		return applySetSignal(store, cmd)
	default:
		return Response{OK: false, Message: ErrUnsupportedCommand.Error()}
	}
}

func applySetSignal(store *calibration.Store, cmd Command) Response {
	if err := store.SetCV(calibration.CvSignalIDBase+uint16(cmd.SignalIdx), cmd.SignalID); err != nil {
		return Response{OK: false, Message: err.Error()}
	}
	outputByte := cmd.OutputPin & 0x3F
	if cmd.OutputExtern {
		outputByte |= 0x80
	}
	if err := store.SetCV(calibration.CvSignalFirstOutputBase+uint16(cmd.SignalIdx), outputByte); err != nil {
		return Response{OK: false, Message: err.Error()}
	}
	inputByte := (cmd.InputType&0x03)<<6 | (cmd.InputPin & 0x3F)
	if err := store.SetCV(calibration.CvSignalInputBase+uint16(cmd.SignalIdx), inputByte); err != nil {
		return Response{OK: false, Message: err.Error()}
	}
	return Response{OK: true, Message: fmt.Sprintf("signal %d wired", cmd.SignalIdx)}
}
