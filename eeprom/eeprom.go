// Package eeprom provides calibration.EEPROM implementations for the
// simulator: an in-memory store for tests, and a YAML-snapshot-backed
// store that persists the CV image to disk between simulator runs, the
// way the target would persist it across power cycles.
package eeprom

import (
	"os"
	"sync"

	"gopkg.in/yaml.v2"
)

// MemStore is an in-memory calibration.EEPROM, unbacked by any file. The
// zero value is ready to use and reads as all-zero.
type MemStore struct {
	mu   sync.Mutex
	data map[uint16]byte
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[uint16]byte)}
}

// ReadByte implements calibration.EEPROM.
func (m *MemStore) ReadByte(id uint16) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[id]
}

// WriteByte implements calibration.EEPROM.
func (m *MemStore) WriteByte(id uint16, v byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[uint16]byte)
	}
	m.data[id] = v
}

// snapshot is the on-disk shape of a FileStore: a sparse map keeps the
// YAML readable and diffable, unlike a dense byte array.
type snapshot struct {
	CVs map[uint16]byte `yaml:"cvs"`
}

// FileStore is a calibration.EEPROM backed by a YAML snapshot file,
// loaded entirely into memory at Load and written back out on every
// WriteByte. It mirrors the Config/LoadYaml pattern used throughout the
// simulator's setup code, but for the CV image rather than a device list.
type FileStore struct {
	path string
	mu   sync.Mutex
	data map[uint16]byte
}

// NewFileStore creates a FileStore bound to path. It does not touch the
// filesystem until Load is called.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, data: make(map[uint16]byte)}
}

// Load reads the snapshot file at path, if it exists. A missing file is
// not an error; the store starts out reading as all-zero, not as the 0xFF
// of erased EEPROM hardware.
func (f *FileStore) Load() error {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var snap snapshot
	if err := yaml.NewDecoder(file).Decode(&snap); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if snap.CVs != nil {
		f.data = snap.CVs
	}
	return nil
}

// save writes the current image back to the snapshot file.
func (f *FileStore) save() error {
	file, err := os.Create(f.path)
	if err != nil {
		return err
	}
	defer file.Close()
	return yaml.NewEncoder(file).Encode(snapshot{CVs: f.data})
}

// ReadByte implements calibration.EEPROM.
func (f *FileStore) ReadByte(id uint16) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[id]
}

// WriteByte implements calibration.EEPROM, persisting the whole snapshot
// to disk on every call. This is not how real EEPROM wear works, but the
// simulator favors durability between runs over write-cycle realism.
func (f *FileStore) WriteByte(id uint16, v byte) {
	f.mu.Lock()
	f.data[id] = v
	f.mu.Unlock()
	f.save()
}
