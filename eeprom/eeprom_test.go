package eeprom_test

import (
	"path/filepath"
	"testing"

	"github.com/railyard/dccsignal/eeprom"
)

func TestMemStoreReadsZeroUntilWritten(t *testing.T) {
	m := eeprom.NewMemStore()
	if v := m.ReadByte(5); v != 0 {
		t.Fatalf("expected unwritten byte to read 0, got %d", v)
	}
	m.WriteByte(5, 42)
	if v := m.ReadByte(5); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestFileStoreLoadMissingFileIsNotAnError(t *testing.T) {
	f := eeprom.NewFileStore(filepath.Join(t.TempDir(), "nope.yml"))
	if err := f.Load(); err != nil {
		t.Fatalf("Load of a missing file should not error: %v", err)
	}
	if v := f.ReadByte(1); v != 0 {
		t.Fatalf("expected 0, got %d", v)
	}
}

func TestFileStorePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cvs.yml")

	f := eeprom.NewFileStore(path)
	if err := f.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	f.WriteByte(8, 0xFF)
	f.WriteByte(9, 12)

	reloaded := eeprom.NewFileStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if v := reloaded.ReadByte(8); v != 0xFF {
		t.Errorf("expected CV 8 == 0xFF after reload, got %d", v)
	}
	if v := reloaded.ReadByte(9); v != 12 {
		t.Errorf("expected CV 9 == 12 after reload, got %d", v)
	}
}
