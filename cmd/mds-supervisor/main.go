// Command mds-supervisor is the bootstrap process (§4.E): it resolves a
// display, creates the runtime/storage directories and the listening
// socket, drops privileges, and spawns (and respawns) the mds-server
// router image, passing it the listening socket as an inherited fd.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/maandree/mds-sub000/internal/cli"
	"github.com/maandree/mds-sub000/internal/minilog"
	"github.com/maandree/mds-sub000/internal/supervisor"
)

var log = minilog.Named("mds-supervisor")

const banner = `mds-supervisor, the micro display server bootstrap process.`

func main() {
	fs := flag.NewFlagSet("mds-supervisor", flag.ExitOnError)
	shared := cli.Register(fs)
	runtimeDir := fs.String("runtime-dir", "/run/mds", "directory holding N.pid and N.socket files")
	storageRoot := fs.String("storage-root", "/var/lib/mds", "directory holding per-display storage")
	maxDisplay := fs.Int("max-display", 63, "display indices below this value are tried, lowest free one first")
	routerExe := fs.String("router-exe", "", "path to the mds-server binary; defaults to mds-server next to this binary")
	fs.Usage = cli.Usage(fs, "mds-supervisor", banner)
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

	exe := *routerExe
	if exe == "" {
		self, err := supervisor.ResolveExe()
		if err != nil {
			log.Fatal("resolving own executable: %v", err)
		}
		exe = filepath.Join(filepath.Dir(self), "mds-server")
	}

	if !shared.Respawn {
		if path, err := supervisor.FindInitrc(); err != nil {
			log.Info("no initrc found: %v", err)
		} else if err := supervisor.RunInitrc(path); err != nil {
			log.Error("%v", err)
		}
	}

	cfg := supervisor.Config{
		RuntimeDir:  *runtimeDir,
		StorageRoot: *storageRoot,
		MaxDisplay:  *maxDisplay,
		RouterExe:   exe,
		RouterArgs:  routerArgs(shared),
		Immortal:    shared.Immortal,
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 4)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-sig
		log.Info("caught %v, cancelling spawn/respawn loop", s)
		cancel()
	}()

	if err := supervisor.Bootstrap(ctx, cfg); err != nil {
		log.Fatal("%v", err)
	}
}

// routerArgs builds the mds-server argv given the inherited socket fd
// and whether this attempt is a respawn, forwarding the subset of this
// process's own flags the router image should see (§6.3 lists these as
// substrate-wide, not bootstrap-only).
func routerArgs(shared *cli.SharedFlags) func(socketFD int, respawn bool) []string {
	return func(socketFD int, respawn bool) []string {
		args := []string{
			"--socket-fd", strconv.Itoa(socketFD),
			"--level", shared.LogLevel,
		}
		if shared.LogFile != "" {
			args = append(args, "--logfile", shared.LogFile)
		}
		if respawn {
			args = append(args, "--respawn")
		} else {
			args = append(args, "--initial-spawn")
		}
		if shared.Immortal {
			args = append(args, "--immortal")
		}
		if shared.AlarmSec > 0 {
			args = append(args, "--alarm", strconv.Itoa(shared.AlarmSec))
		}
		if shared.Console {
			args = append(args, "--console")
		}
		return args
	}
}
