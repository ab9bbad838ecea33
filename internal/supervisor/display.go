// Package supervisor implements the bootstrap/respawn process (§4.E): the
// process that resolves a free display index, creates the runtime socket
// and per-display storage directory, drops privileges, spawns the router
// image, and respawns it on a crash that wasn't immediate.
package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/maandree/mds-sub000/internal/minilog"
)

var log = minilog.Named("supervisor")

// ResolveDisplay implements §4.E step 1: scan <runtime>/N.pid for the
// lowest N whose file is absent or names a PID that is no longer alive.
// maxDisplay bounds the scan so a runaway directory full of garbage files
// cannot loop forever.
func ResolveDisplay(runtimeDir string, maxDisplay int) (int, error) {
	for n := 0; n < maxDisplay; n++ {
		path := pidFilePath(runtimeDir, n)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return n, nil
		}
		if err != nil {
			return 0, fmt.Errorf("supervisor: reading %s: %w", path, err)
		}
		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil || !pidAlive(pid) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("supervisor: no free display index below %d", maxDisplay)
}

func pidFilePath(runtimeDir string, n int) string {
	return filepath.Join(runtimeDir, fmt.Sprintf("%d.pid", n))
}

func socketPath(runtimeDir string, n int) string {
	return filepath.Join(runtimeDir, fmt.Sprintf("%d.socket", n))
}

func storageDir(storageRoot string, n int) string {
	return filepath.Join(storageRoot, fmt.Sprintf("%d.data", n))
}

// pidAlive reports whether pid names a live process, per the
// kill(pid, 0) liveness idiom original_source/src/mds-respawn.c uses to
// decide whether a recorded PID file can be reused.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err != syscall.ESRCH
}

// WritePIDFile writes the supervisor's own PID to <runtime>/N.pid, mode
// 0644 per §6.4.
func WritePIDFile(runtimeDir string, n, pid int) error {
	path := pidFilePath(runtimeDir, n)
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0644)
}

func RemovePIDFile(runtimeDir string, n int) error {
	err := os.Remove(pidFilePath(runtimeDir, n))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
