package diag_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/railyard/dccsignal/diag"
)

type fakeCal struct {
	dump     []byte
	checksum uint16
}

func (c fakeCal) Dump() []byte     { return c.dump }
func (c fakeCal) Checksum() uint16 { return c.checksum }

type fakeSnapshotter struct {
	cal         fakeCal
	signals     []diag.SignalView
	ramps       []diag.RampView
	fifo        diag.FIFOView
	classifiers []diag.ClassifierView
}

func (f fakeSnapshotter) Calibration() diag.CalibrationView { return f.cal }
func (f fakeSnapshotter) Signals() []diag.SignalView        { return f.signals }
func (f fakeSnapshotter) Ramps() []diag.RampView            { return f.ramps }
func (f fakeSnapshotter) FIFO() diag.FIFOView                { return f.fifo }
func (f fakeSnapshotter) Classifiers() []diag.ClassifierView { return f.classifiers }

func newFixture() fakeSnapshotter {
	return fakeSnapshotter{
		cal: fakeCal{dump: []byte{1, 2, 3}, checksum: 0xBEEF},
		signals: []diag.SignalView{
			{Index: 0, CommittedAspect: 1, HasCommitted: true},
		},
		ramps: []diag.RampView{
			{Output: 0, Current: 100, Target: 200},
		},
		fifo: diag.FIFOView{Size: 2, Overflow: false},
		classifiers: []diag.ClassifierView{
			{Index: 0, Class: 3},
		},
	}
}

func TestCalibrationRoute(t *testing.T) {
	r := diag.NewRouter(newFixture(), nil)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/calibration")
	if err != nil {
		t.Fatalf("GET /calibration: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		CVs      []byte `json:"cvs"`
		Checksum uint16 `json:"checksum"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Checksum != 0xBEEF || len(body.CVs) != 3 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestFifoRoute(t *testing.T) {
	r := diag.NewRouter(newFixture(), nil)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/fifo")
	if err != nil {
		t.Fatalf("GET /fifo: %v", err)
	}
	defer resp.Body.Close()
	var body diag.FIFOView
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Size != 2 || body.Overflow {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestMaintenanceLocksNonAllowlistedPaths(t *testing.T) {
	m := diag.NewMaintenance("/fifo")
	r := diag.NewRouter(newFixture(), m)
	srv := httptest.NewServer(r)
	defer srv.Close()

	m.Lock()
	defer m.Unlock()

	resp, err := http.Get(srv.URL + "/calibration")
	if err != nil {
		t.Fatalf("GET /calibration: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusLocked {
		t.Fatalf("expected 423, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/fifo")
	if err != nil {
		t.Fatalf("GET /fifo: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected allow-listed path to stay reachable, got %d", resp.StatusCode)
	}
}

func TestMaintenanceUnlockRestoresAccess(t *testing.T) {
	m := diag.NewMaintenance()
	r := diag.NewRouter(newFixture(), m)
	srv := httptest.NewServer(r)
	defer srv.Close()

	m.Lock()
	m.Unlock()

	resp, err := http.Get(srv.URL + "/classifiers")
	if err != nil {
		t.Fatalf("GET /classifiers: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after unlock, got %d", resp.StatusCode)
	}
}
