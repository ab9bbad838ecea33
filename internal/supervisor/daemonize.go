package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// daemonizedEnv marks a process as the already-detached child of a prior
// Daemonize call, so Daemonize does not recurse.
const daemonizedEnv = "MDS_DAEMONIZED"

// Daemonize implements --on-init-fork (§6.3): it relaunches the current
// process with the same argv and environment in a new session, detached
// from the controlling terminal, and returns true in the parent once the
// child has started; the caller then exits the parent. Callers run this
// before doing any of the work --on-init-fork is meant to background,
// typically right after flag parsing. It is a no-op (returns false, nil)
// when called from the already-detached child, so the caller can tell
// which side of the fork it is on.
func Daemonize() (forked bool, err error) {
	if os.Getenv(daemonizedEnv) != "" {
		return false, nil
	}

	exe, err := ResolveExe()
	if err != nil {
		return false, fmt.Errorf("supervisor: daemonize: %w", err)
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return false, fmt.Errorf("supervisor: daemonize: opening %s: %w", os.DevNull, err)
	}
	defer devnull.Close()

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonizedEnv+"=1")
	cmd.Stdin, cmd.Stdout, cmd.Stderr = devnull, devnull, devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("supervisor: daemonize: starting detached child: %w", err)
	}
	log.Info("forked to background as pid=%d", cmd.Process.Pid)
	return true, nil
}
