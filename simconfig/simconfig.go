// Package simconfig loads the simulator's configuration: the YAML file
// naming the decoder's default CVs, signal wiring, classifier tables, and
// the network/serial endpoints the simulator binds, mirroring
// cmd/multiserver/main.go's koanf-based setupconfig/mkconf/printconf
// commands.
package simconfig

import (
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "github.com/go-yaml/yaml"
)

// DefaultFileName is the configuration file looked for in the current
// directory when none is given explicitly.
const DefaultFileName = "dccsignal-sim.yml"

// SignalConfig is one entry of Config.Signals: the signal id and the
// input/output wiring for one of the decoder's signal slots. Aspect
// templates are not configured here.
type SignalConfig struct {
	ID           uint8  `koanf:"id"`
	InputType    string `koanf:"input_type"` // dcc, adc, dig
	InputPin     uint8  `koanf:"input_pin"`
	OutputExtern bool   `koanf:"output_extern"`
	OutputPin    uint8  `koanf:"output_pin"`
}

// ClassifierConfig is one entry of Config.Classifiers: the debounce and
// class-interval table for one classifier type.
type ClassifierConfig struct {
	Type       uint8    `koanf:"type"`
	DebounceMs uint16   `koanf:"debounce_ms"`
	Lo         []uint8  `koanf:"lo"`
	Hi         []uint8  `koanf:"hi"`
}

// Config is the simulator's full configuration, unmarshaled from YAML
// over a struct-default baseline.
type Config struct {
	// DecoderAddress is the base accessory decoder address this
	// simulated instance answers to.
	DecoderAddress uint16 `koanf:"decoder_address"`

	// LinkAddr is the TCP loopback address the ASCII configuration
	// protocol listens on.
	LinkAddr string `koanf:"link_addr"`

	// DiagAddr is the address the read-only diagnostics HTTP surface
	// listens on.
	DiagAddr string `koanf:"diag_addr"`

	// EEPROMPath is the YAML snapshot file backing the simulated
	// EEPROM, persisted between runs.
	EEPROMPath string `koanf:"eeprom_path"`

	// NrOutputs is the number of simulated LED outputs the router
	// drives.
	NrOutputs int `koanf:"nr_outputs"`

	Signals     []SignalConfig     `koanf:"signals"`
	Classifiers []ClassifierConfig `koanf:"classifiers"`
}

// Default returns the struct-default configuration: the values loaded
// into koanf before any file is applied.
func Default() Config {
	return Config{
		DecoderAddress: 1,
		LinkAddr:       "127.0.0.1:9600",
		DiagAddr:       "127.0.0.1:8080",
		EEPROMPath:     "dccsignal-sim.eeprom.yml",
		NrOutputs:      8,
	}
}

// Loader owns the koanf instance the simulator's commands operate over.
type Loader struct {
	k    *koanf.Koanf
	path string
}

// NewLoader creates a Loader for the configuration file at path.
func NewLoader(path string) *Loader {
	if path == "" {
		path = DefaultFileName
	}
	return &Loader{k: koanf.New("."), path: path}
}

// Load populates the loader from struct defaults, then overlays path if
// it exists. A missing file is not an error; Default() alone is used.
func (l *Loader) Load() error {
	if err := l.k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return err
	}
	err := l.k.Load(file.Provider(l.path), yaml.Parser())
	if err != nil && !strings.Contains(err.Error(), "no such") {
		return err
	}
	return nil
}

// Config unmarshals the loader's current state into a Config.
func (l *Loader) Config() (Config, error) {
	var c Config
	err := l.k.Unmarshal("", &c)
	return c, err
}

// WriteDefault writes the struct defaults out to path, the way mkconf
// seeds a configuration file a user can then edit.
func WriteDefault(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return yml.NewEncoder(f).Encode(Default())
}

// Print writes c to w in YAML form, for the "conf" subcommand.
func Print(w *os.File, c Config) error {
	return yml.NewEncoder(w).Encode(c)
}

// Watch installs fn to be called whenever the configuration file at path
// changes on disk, exercising koanf's fsnotify-backed file provider
// watch rather than polling. fn receives the reloaded Config, or a
// non-nil err if the reload failed.
func (l *Loader) Watch(fn func(Config, error)) error {
	provider := file.Provider(l.path)
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			fn(Config{}, err)
			return
		}
		if loadErr := l.k.Load(provider, yaml.Parser()); loadErr != nil {
			fn(Config{}, loadErr)
			return
		}
		c, unmarshalErr := l.Config()
		fn(c, unmarshalErr)
	})
}
