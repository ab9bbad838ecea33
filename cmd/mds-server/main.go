// Command mds-server is the router image (§4.D): it owns the listening
// socket for one display, accepts and routes client connections, and
// re-execs itself in place on a signal to pick up a new binary without
// dropping any connection (§4.F).
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maandree/mds-sub000/internal/cli"
	"github.com/maandree/mds-sub000/internal/metrics"
	"github.com/maandree/mds-sub000/internal/minilog"
	"github.com/maandree/mds-sub000/internal/reexec"
	"github.com/maandree/mds-sub000/internal/router"
	"github.com/maandree/mds-sub000/internal/state"
	"github.com/maandree/mds-sub000/internal/supervisor"
)

var log = minilog.Named("mds-server")

const banner = `mds-server, the micro display server router core.`

// reexecSignal is the designated real-time signal that triggers §4.F; it
// is distinct from DangerSignal and from SIGUSR1/SIGUSR2 (VT module).
const reexecSignal = syscall.Signal(34) // SIGRTMIN on Linux

func main() {
	fs := flag.NewFlagSet("mds-server", flag.ExitOnError)
	shared := cli.Register(fs)
	metricsSocket := fs.String("metrics-socket", "", "if set, serve Prometheus metrics on this Unix-domain socket path")
	fs.Usage = cli.Usage(fs, "mds-server", banner)
	fs.Parse(os.Args[1:])

	if err := shared.Validate(); err != nil {
		log.Fatal("%v", err)
	}
	if err := shared.SetupLogging(); err != nil {
		log.Fatal("%v", err)
	}

	if shared.OnInitFork {
		forked, err := supervisor.Daemonize()
		if err != nil {
			log.Fatal("%v", err)
		}
		if forked {
			return
		}
	}

	collector := metrics.New()
	prometheus.MustRegister(collector)
	if *metricsSocket != "" {
		go serveMetrics(*metricsSocket)
	}

	clock := clockwork.NewRealClock()

	var r *router.Router
	var ln net.Listener

	if shared.ReExec {
		r, ln = resume(clock, collector, shared.SocketFD)
	} else {
		r = router.New(clock, collector)
		var err error
		ln, err = supervisor.InheritedListener(shared.SocketFD)
		if err != nil {
			log.Fatal("inheriting listener: %v", err)
		}
	}

	if shared.AlarmSec > 0 {
		time.AfterFunc(time.Duration(shared.AlarmSec)*time.Second, func() {
			log.Fatal("alarm ceiling of %ds reached, aborting", shared.AlarmSec)
		})
	}

	ctrl := &reexec.Controller{
		Quiesce:          r.Quiesce,
		Unquiesce:        r.Unquiesce,
		ClearCloseOnExec: r.ClearCloseOnExec,
		Marshal: func() []byte {
			w := state.NewWriter()
			r.Marshal(w)
			return w.Bytes()
		},
		Argv0: os.Args,
	}

	exePath, err := supervisor.ResolveExe()
	if err != nil {
		log.Fatal("resolving own executable: %v", err)
	}

	sig := make(chan os.Signal, 16)
	signal.Notify(sig, reexecSignal, syscall.SIGTERM, syscall.SIGINT, supervisor.DangerSignal)
	go func() {
		for s := range sig {
			switch s {
			case reexecSignal:
				if err := ctrl.Trigger(exePath); err != nil {
					log.Error("re-exec attempt failed: %v", err)
				}
			case syscall.SIGTERM, syscall.SIGINT:
				log.Info("caught %v, shutting down", s)
				r.Shutdown()
				ln.Close()
				os.Exit(0)
			case supervisor.DangerSignal:
				log.Warn("low-memory signal received")
			}
		}
	}()

	mem := supervisor.NewMemoryMonitor(10, 5*time.Second, func(avail float64) {
		if !shared.Immortal {
			log.Fatal("available memory %.1f%% critical and --immortal not set, aborting", avail)
		}
	})
	go mem.Run()
	defer mem.Stop()

	if shared.OnInitSh != "" {
		if err := exec.Command("sh", "-c", shared.OnInitSh).Start(); err != nil {
			log.Error("on-init-sh: %v", err)
		}
	}
	supervisor.NotifyReady()

	if shared.Console {
		console := &supervisor.Console{
			Dump:   minilog.Dump,
			Reload: func() error { return ctrl.Trigger(exePath) },
			Quit: func() {
				r.Shutdown()
				ln.Close()
				os.Exit(0)
			},
		}
		go func() {
			if err := console.Run(os.Stdout); err != nil {
				log.Error("console: %v", err)
			}
		}()
	}

	log.Info("accepting connections")
	acceptLoop(r, ln)
}

func resume(clock clockwork.Clock, collector *metrics.Collector, fallbackFD int) (*router.Router, net.Listener) {
	blob, err := reexec.Resume()
	if err != nil {
		log.Fatal("resuming from re-exec blob: %v", err)
	}

	reader := state.NewReader(blob)

	fdConns := make(map[int]net.Conn)
	reattach := func(fd int) (net.Conn, bool) {
		if c, ok := fdConns[fd]; ok {
			return c, true
		}
		f := os.NewFile(uintptr(fd), fmt.Sprintf("reattached-fd-%d", fd))
		conn, err := net.FileConn(f)
		if err != nil {
			log.Error("reattaching fd %d: %v", fd, err)
			return nil, false
		}
		fdConns[fd] = conn
		return conn, true
	}

	r := router.Unmarshal(reader, clock, collector, reattach)
	if r == nil {
		log.Fatal("state-unmarshal failure after re-exec: %v", reader.Err())
	}
	r.Resume()

	ln, err := supervisor.InheritedListener(fallbackFD)
	if err != nil {
		log.Fatal("inheriting listener after re-exec: %v", err)
	}
	return r, ln
}

func acceptLoop(r *router.Router, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if r.Terminating() {
				return
			}
			log.Error("accept: %v", err)
			continue
		}
		r.Accept(conn)
	}
}

// serveMetrics serves Prometheus metrics over a Unix-domain socket at
// path, keeping the substrate's transport local-socket-only (§4 / §1
// Non-goals: no network transport beyond local Unix sockets).
func serveMetrics(path string) {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		log.Error("metrics socket: %v", err)
		return
	}
	defer ln.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.Serve(ln, mux); err != nil {
		log.Error("metrics server: %v", err)
	}
}
