// Command dccsignal-sim hosts the decoder pipeline without real hardware:
// a synthetic or loopback-fed DCC bit-stream drives the same classifier,
// packet, signal, and LED-router packages the target firmware would run,
// with an ASCII configuration listener and a read-only diagnostics HTTP
// surface attached. Command surface mirrors cmd/multiserver/main.go:
// help, mkconf, conf, run, version.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/theckman/yacspin"

	"github.com/railyard/dccsignal/asciicfg"
	"github.com/railyard/dccsignal/bitsm"
	"github.com/railyard/dccsignal/calibration"
	"github.com/railyard/dccsignal/classifier"
	"github.com/railyard/dccsignal/dccpacket"
	"github.com/railyard/dccsignal/dcctime"
	"github.com/railyard/dccsignal/diag"
	"github.com/railyard/dccsignal/eeprom"
	"github.com/railyard/dccsignal/halfbit"
	"github.com/railyard/dccsignal/ledrouter"
	"github.com/railyard/dccsignal/packetfifo"
	"github.com/railyard/dccsignal/scheduler"
	"github.com/railyard/dccsignal/signal"
	"github.com/railyard/dccsignal/simconfig"
	"github.com/railyard/dccsignal/simgen"
)

// Version is the build version, typically injected via ldflags.
var Version = "dev"

const configFileName = simconfig.DefaultFileName

func root() {
	fmt.Println(`dccsignal-sim simulates a DCC accessory-decoder signal pipeline in software.

Usage:
	dccsignal-sim <command>

Commands:
	run
	help
	mkconf
	conf
	version`)
}

func help() {
	fmt.Println(`dccsignal-sim is configured via its .yml file. Keys are not case sensitive.
The command mkconf generates the configuration file with default values;
conf prints the effective configuration (defaults merged with the file).`)
}

func mkconf() {
	if err := simconfig.WriteDefault(configFileName); err != nil {
		log.Fatal(err)
	}
}

func printconf(l *simconfig.Loader) {
	cfg, err := l.Config()
	if err != nil {
		log.Fatal(err)
	}
	if err := simconfig.Print(os.Stdout, cfg); err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("dccsignal-sim version %v\n", Version)
}

// pipeline bundles every component the main loop drives each tick. Onboard
// and external outputs are two distinct sinks, so they get their own
// Router: a PinUpdate's External flag picks which one a given pin targets.
type pipeline struct {
	cal            *calibration.Store
	classifier     [calibration.NrClassifierTypes]*classifier.Classifier
	resolver       *signal.Resolver
	router         *ledrouter.Router
	externalRouter *ledrouter.Router
	fifo           *packetfifo.FIFO
	queue          *dcctime.EdgeQueue
	bit            bitsm.Machine
	extractor      *dccpacket.Extractor
}

func buildPipeline(cfg simconfig.Config, cal *calibration.Store) *pipeline {
	gamma := ledrouter.DefaultGammaTable()
	p := &pipeline{
		cal:            cal,
		resolver:       signal.NewResolver(cal),
		router:         ledrouter.NewRouter(cfg.NrOutputs, gamma),
		externalRouter: ledrouter.NewRouter(cfg.NrOutputs, gamma),
		fifo:           packetfifo.New(packetfifo.DefaultDepth),
		queue:          &dcctime.EdgeQueue{},
	}
	for i := range p.classifier {
		p.classifier[i] = classifier.New(uint8(i), nil)
	}
	p.extractor = dccpacket.NewExtractor(func(pkt dccpacket.Packet) {
		p.fifo.Push(pkt)
	})
	return p
}

// routerFor picks the onboard or external output sink for a PinUpdate.
func (p *pipeline) routerFor(u signal.PinUpdate) *ledrouter.Router {
	if u.External {
		return p.externalRouter
	}
	return p.router
}

// applyResolverTick re-evaluates every signal for the current cycle and
// retargets the matching output's ramp on whichever router it belongs to.
// A PinUpdate's SpeedChanged flag picks SetIntensityAndSpeed (recompute
// slope, only when change_over_time_10ms changed since the previous cycle)
// over SetIntensity (retarget only, reusing the existing slope), so a
// steady-state signal update costs no division.
func (p *pipeline) applyResolverTick(now time.Time) {
	for _, updates := range p.resolver.Tick(now) {
		for _, u := range updates {
			r := p.routerFor(u)
			if u.SpeedChanged {
				r.SetIntensityAndSpeed(int(u.Pin), u.Target, uint16(u.ChangeOverTicks), 1)
			} else {
				r.SetIntensity(int(u.Pin), u.Target)
			}
		}
	}
}

// drainEdges classifies every queued edge delta through halfbit/bitsm and
// feeds the resulting events to the packet extractor.
func (p *pipeline) drainEdges() {
	for {
		delta, ok := p.queue.Pop()
		if !ok {
			return
		}
		ev := p.bit.ExecuteDelta(halfbit.DefaultTiming, delta)
		if ev != bitsm.NoEvent {
			p.extractor.Feed(ev)
		}
	}
}

// drainPackets dispatches every queued packet's accessory command to the
// signal resolver. The resolver only buffers the command; applyResolverTick
// is what actually re-evaluates aspects and retargets ramps, since the
// change-over timer must keep advancing every cycle even when no new packet
// arrives.
func (p *pipeline) drainPackets(baseDecoderAddress uint16) {
	for {
		pkt, ok := p.fifo.Pop()
		if !ok {
			return
		}
		p.resolver.DispatchDcc(pkt, baseDecoderAddress)
	}
}

func (p *pipeline) snapshotter() diag.Snapshotter { return pipelineSnapshot{p} }

type pipelineSnapshot struct{ p *pipeline }

func (s pipelineSnapshot) Calibration() diag.CalibrationView { return s.p.cal }

func (s pipelineSnapshot) Signals() []diag.SignalView {
	out := make([]diag.SignalView, calibration.NrSignals)
	for i := range out {
		aspect, has := s.p.resolver.CommittedAspect(uint8(i))
		out[i] = diag.SignalView{Index: uint8(i), CommittedAspect: aspect, HasCommitted: has}
	}
	return out
}

// Ramps reports onboard outputs followed by external outputs, so a caller
// can distinguish the two sinks by index range (onboard: [0,
// router.Len()); external: [router.Len(), router.Len()+externalRouter.Len())).
func (s pipelineSnapshot) Ramps() []diag.RampView {
	out := make([]diag.RampView, 0, s.p.router.Len()+s.p.externalRouter.Len())
	for i := 0; i < s.p.router.Len(); i++ {
		cur, tgt, _ := s.p.router.RampState(i)
		out = append(out, diag.RampView{Output: i, Current: cur, Target: tgt})
	}
	for i := 0; i < s.p.externalRouter.Len(); i++ {
		cur, tgt, _ := s.p.externalRouter.RampState(i)
		out = append(out, diag.RampView{Output: s.p.router.Len() + i, Current: cur, Target: tgt})
	}
	return out
}

func (s pipelineSnapshot) FIFO() diag.FIFOView {
	return diag.FIFOView{Size: s.p.fifo.Size(), Overflow: s.p.fifo.Overflow()}
}

func (s pipelineSnapshot) Classifiers() []diag.ClassifierView {
	out := make([]diag.ClassifierView, len(s.p.classifier))
	for i, c := range s.p.classifier {
		out[i] = diag.ClassifierView{Index: i, Class: c.CurrentClass()}
	}
	return out
}

// serveASCII accepts line-oriented asciicfg connections on addr until ctx
// is canceled.
func serveASCII(ctx context.Context, addr string, cal *calibration.Store, m *diag.Maintenance) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	codec := asciicfg.Codec{}
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go func() {
			defer conn.Close()
			scanner := bufio.NewScanner(conn)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				cmd, err := codec.Decode(line)
				var resp asciicfg.Response
				if err != nil {
					resp = asciicfg.Response{OK: false, Message: err.Error()}
				} else {
					if m != nil {
						m.Lock()
					}
					resp = asciicfg.Apply(cal, cmd)
					if m != nil {
						m.Unlock()
					}
				}
				fmt.Fprintln(conn, resp.String())
			}
		}()
	}
}

func run() {
	spinner, _ := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[9],
		Suffix:          " loading calibration image",
		SuffixAutoColon: true,
		Message:         "booting",
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	})
	if spinner != nil {
		spinner.Start()
	}

	loader := simconfig.NewLoader(configFileName)
	if err := loader.Load(); err != nil {
		log.Fatal(err)
	}
	cfg, err := loader.Config()
	if err != nil {
		log.Fatal(err)
	}

	store := eeprom.NewFileStore(cfg.EEPROMPath)
	if err := store.Load(); err != nil {
		log.Fatal(err)
	}
	cal := calibration.New(store, simconfig.ROMDefaults(cfg), nil)
	cal.ReadAll()

	if spinner != nil {
		spinner.StopMessage("calibration image loaded")
		spinner.Stop()
	}

	p := buildPipeline(cfg, cal)

	maint := diag.NewMaintenance("/fifo")
	router := diag.NewRouter(p.snapshotter(), maint)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.Printf("diagnostics listening at %s", cfg.DiagAddr)
		log.Fatal(http.ListenAndServe(cfg.DiagAddr, router))
	}()
	go func() {
		log.Printf("ascii configuration listening at %s", cfg.LinkAddr)
		if err := serveASCII(ctx, cfg.LinkAddr, cal, maint); err != nil {
			log.Println("ascii listener stopped:", err)
		}
	}()

	gen := simgen.NewEdgeGenerator(p.queue, 2000, 64)
	go func() {
		for {
			if err := gen.EmitPacket(ctx, []byte{0xFF, 0x00, 0xFF}); err != nil {
				return
			}
		}
	}()

	var sched scheduler.Scheduler
	sched.Add(0, 10*time.Millisecond, runnableFunc{func() {
		p.drainEdges()
		p.drainPackets(cfg.DecoderAddress)
	}})
	sched.Add(0, 10*time.Millisecond, runnableFunc{func() { p.applyResolverTick(time.Now()) }})
	sched.Add(0, 10*time.Millisecond, runnableFunc{func() {
		p.router.Tick()
		p.externalRouter.Tick()
	}})

	sched.Init(time.Now())
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for now := range tick.C {
		sched.Tick(now)
	}
}

type runnableFunc struct{ fn func() }

func (r runnableFunc) Init() {}
func (r runnableFunc) Run()  { r.fn() }

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	loader := simconfig.NewLoader(configFileName)
	if err := loader.Load(); err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	switch strings.ToLower(args[1]) {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf(loader)
	case "run":
		run()
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
