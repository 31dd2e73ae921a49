// Package diag exposes a read-only JSON diagnostics surface over the
// running decoder's state: calibration dump and checksum, per-signal
// committed aspect, per-output ramp position, packet FIFO depth and
// overflow flag, and classifier classes. Routes are collected in a
// backend-agnostic RouteTable (mirroring the teacher's MethodPath-keyed
// table) and bound onto a github.com/go-chi/chi router.
package diag

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi"
)

// MethodPath names one HTTP method and path pair.
type MethodPath struct {
	Method string
	Path   string
}

// RouteTable maps a MethodPath to its handler, independent of the router
// backend it is eventually bound to.
type RouteTable map[MethodPath]http.HandlerFunc

// Bind registers every route in rt onto r.
func (rt RouteTable) Bind(r chi.Router) {
	for mp, h := range rt {
		r.Method(mp.Method, mp.Path, h)
	}
}

// CalibrationView supplies the calibration snapshot: every CV byte plus
// its diagnostic checksum.
type CalibrationView interface {
	Dump() []byte
	Checksum() uint16
}

// SignalView supplies one signal's committed-aspect snapshot.
type SignalView struct {
	Index           uint8 `json:"index"`
	CommittedAspect uint8 `json:"committed_aspect"`
	HasCommitted    bool  `json:"has_committed"`
}

// RampView supplies one output's ramp position snapshot.
type RampView struct {
	Output  int    `json:"output"`
	Current uint16 `json:"current"`
	Target  uint16 `json:"target"`
}

// FIFOView supplies the packet FIFO depth/overflow snapshot.
type FIFOView struct {
	Size     int  `json:"size"`
	Overflow bool `json:"overflow"`
}

// ClassifierView supplies one classifier's currently debounced class.
type ClassifierView struct {
	Index int   `json:"index"`
	Class uint8 `json:"class"`
}

// Snapshotter is the aggregate state the diagnostics server reads from,
// implemented by whatever owns the live pipeline (the simulator, or a
// future hardware-backed main loop).
type Snapshotter interface {
	Calibration() CalibrationView
	Signals() []SignalView
	Ramps() []RampView
	FIFO() FIFOView
	Classifiers() []ClassifierView
}

// Maintenance is a lock that, while held, makes every request other than
// those on an explicit allow-list fail with 423 Locked. It is adapted
// from the teacher's HTTP locker middleware.
type Maintenance struct {
	locked    atomic.Bool
	allowlist map[string]bool
}

// NewMaintenance creates an unlocked Maintenance guard. allowPaths are
// always served even while locked.
func NewMaintenance(allowPaths ...string) *Maintenance {
	m := &Maintenance{allowlist: make(map[string]bool, len(allowPaths))}
	for _, p := range allowPaths {
		m.allowlist[p] = true
	}
	return m
}

// Lock begins a maintenance window.
func (m *Maintenance) Lock() { m.locked.Store(true) }

// Unlock ends a maintenance window.
func (m *Maintenance) Unlock() { m.locked.Store(false) }

// Locked reports whether a maintenance window is active.
func (m *Maintenance) Locked() bool { return m.locked.Load() }

// Middleware wraps next, returning 423 Locked for any request whose path
// is not on the allow-list while a maintenance window is active.
func (m *Maintenance) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Locked() && !m.allowlist[r.URL.Path] {
			http.Error(w, "maintenance in progress", http.StatusLocked)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouteTable builds the read-only diagnostics RouteTable over s.
func NewRouteTable(s Snapshotter) RouteTable {
	return RouteTable{
		{http.MethodGet, "/calibration"}: func(w http.ResponseWriter, r *http.Request) {
			cal := s.Calibration()
			writeJSON(w, struct {
				CVs      []byte `json:"cvs"`
				Checksum uint16 `json:"checksum"`
			}{cal.Dump(), cal.Checksum()})
		},
		{http.MethodGet, "/signals"}: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, s.Signals())
		},
		{http.MethodGet, "/ramps"}: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, s.Ramps())
		},
		{http.MethodGet, "/fifo"}: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, s.FIFO())
		},
		{http.MethodGet, "/classifiers"}: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, s.Classifiers())
		},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// NewRouter builds a chi.Router serving the diagnostics surface over s,
// guarded by m (nil disables the maintenance guard).
func NewRouter(s Snapshotter, m *Maintenance) chi.Router {
	r := chi.NewRouter()
	if m != nil {
		r.Use(m.Middleware)
	}
	NewRouteTable(s).Bind(r)
	return r
}
