// Package cli declares the CLI flag surface shared by both substrate
// binaries (§6.3) and the logging flags every binary in this module
// exposes the same way, grounded on minimega/main.go's flag-variable
// block and usage() banner.
package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/maandree/mds-sub000/internal/minilog"
)

// SharedFlags holds every flag §6.3 says the substrate recognizes,
// regardless of which binary (router image or supervisor) is parsing
// argv; a binary that does not act on a given flag simply ignores it.
type SharedFlags struct {
	InitialSpawn bool
	Respawn      bool
	ReExec       bool
	SocketFD     int
	AlarmSec     int
	OnInitFork   bool
	OnInitSh     string
	Immortal     bool
	Console      bool

	LogLevel string
	LogFile  string
	Stderr   bool
}

// Register adds every shared flag to fs, returning a SharedFlags whose
// fields are populated once fs.Parse has run.
func Register(fs *flag.FlagSet) *SharedFlags {
	f := &SharedFlags{}
	fs.BoolVar(&f.InitialSpawn, "initial-spawn", false, "first-time start, mutually exclusive with --respawn")
	fs.BoolVar(&f.Respawn, "respawn", false, "restart after a crash")
	fs.BoolVar(&f.ReExec, "re-exec", false, "reload state from the shared-memory region left by the previous image")
	fs.IntVar(&f.SocketFD, "socket-fd", -1, "inherited listening or connected file descriptor")
	fs.IntVar(&f.AlarmSec, "alarm", 0, "schedule SIGALRM as a forced-abort ceiling in seconds, capped at 60")
	fs.BoolVar(&f.OnInitFork, "on-init-fork", false, "fork to background once initialized")
	fs.StringVar(&f.OnInitSh, "on-init-sh", "", "run CMD via the shell once initialized")
	fs.BoolVar(&f.Immortal, "immortal", false, "ignore low-memory self-termination")
	fs.BoolVar(&f.Console, "console", false, "run a foreground operator console (dump, reload, quit); mutually exclusive with --on-init-fork")

	fs.StringVar(&f.LogLevel, "level", "info", "set log level: [debug, info, warn, error, fatal]")
	fs.StringVar(&f.LogFile, "logfile", "", "also log to file")
	fs.BoolVar(&f.Stderr, "v", true, "log on stderr")
	return f
}

// Validate applies the §6.3 mutual-exclusion rule and caps AlarmSec at 60.
func (f *SharedFlags) Validate() error {
	if f.InitialSpawn && f.Respawn {
		return fmt.Errorf("cli: --initial-spawn and --respawn are mutually exclusive")
	}
	if f.Console && f.OnInitFork {
		return fmt.Errorf("cli: --console and --on-init-fork are mutually exclusive")
	}
	if f.AlarmSec > 60 {
		f.AlarmSec = 60
	}
	return nil
}

// SetupLogging wires minilog from the parsed shared flags.
func (f *SharedFlags) SetupLogging() error {
	level, err := minilog.ParseLevel(f.LogLevel)
	if err != nil {
		return fmt.Errorf("cli: %w", err)
	}
	return minilog.Setup(minilog.Options{
		Level:   level,
		Stderr:  f.Stderr,
		Logfile: f.LogFile,
		RingLen: 512,
	})
}

// Usage prints banner followed by flag.PrintDefaults for fs, matching
// minimega's usage() shape.
func Usage(fs *flag.FlagSet, program, banner string) func() {
	return func() {
		fmt.Fprintln(os.Stderr, banner)
		fmt.Fprintf(os.Stderr, "usage: %s [option]...\n", program)
		fs.PrintDefaults()
	}
}
