// Package reexec implements the signal-driven in-place reload sequence
// (§4.F): quiesce every client reader, marshal all component state into a
// shared-memory blob, exec the same on-disk image with --re-exec, and have
// the new process image restore from the blob before resuming traffic.
package reexec

import (
	"fmt"
	"os"
	"sync/atomic"
	"syscall"

	"github.com/maandree/mds-sub000/internal/minilog"
	"github.com/maandree/mds-sub000/internal/state"
)

var log = minilog.Named("reexec")

// Controller coordinates one re-exec attempt. The caller provides hooks
// that pause and resume the blocking reader tasks, an optional hook that
// clears close-on-exec on client fds, and the marshal function that
// serializes every component's state into one buffer (§4.B "marshal-size
// of all state").
type Controller struct {
	reexecing int32 // atomic flag, §4.F step 1

	// Quiesce stops accepting new work and returns once every per-client
	// reader task has observed the flag and exited, leaving client
	// structures intact for marshalling (§4.F step 2).
	Quiesce func()

	// Unquiesce restarts reader tasks on the same connections Quiesce
	// paused. Called only when Trigger fails before reaching exec, so
	// this process keeps serving its clients under the old image.
	Unquiesce func()

	// ClearCloseOnExec strips FD_CLOEXEC from every live client
	// connection so syscall.Exec inherits them instead of the kernel
	// closing them out from under the new image. Optional: a nil value
	// skips the step, which is only safe when no client has ever
	// connected through this process's own net.Listener.Accept.
	ClearCloseOnExec func() error

	// Marshal serializes every component's live state.
	Marshal func() []byte

	// Argv0 is the process's own argv, preserved verbatim across exec
	// except for the appended --re-exec flag (§4.F step 4).
	Argv0 []string
}

// Reexecing reports whether a re-exec is in progress; blocking suspension
// points check this after an interrupted wait to distinguish a re-exec
// wakeup from a spurious one (§5 "Cancellation and timeouts").
func (c *Controller) Reexecing() bool {
	return atomic.LoadInt32(&c.reexecing) != 0
}

// Trigger runs §4.F steps 1 through 4: set the flag, quiesce every
// client, marshal state into a PID-named shared-memory blob, and exec the
// resolved on-disk image with --re-exec appended. On success this
// function does not return — the process image is replaced. On failure it
// clears the flag and returns the error so the caller can decide whether
// to keep running under the old image or abort.
func (c *Controller) Trigger(exePath string) error {
	if !atomic.CompareAndSwapInt32(&c.reexecing, 0, 1) {
		return fmt.Errorf("reexec: already in progress")
	}

	log.Info("re-exec triggered, quiescing client readers")
	c.Quiesce()

	if c.ClearCloseOnExec != nil {
		if err := c.ClearCloseOnExec(); err != nil {
			c.abort()
			return fmt.Errorf("reexec: clearing close-on-exec: %w", err)
		}
	}

	blob := c.Marshal()
	pid := os.Getpid()
	if err := state.WriteBlob(pid, blob); err != nil {
		c.abort()
		return fmt.Errorf("reexec: writing state blob: %w", err)
	}

	argv := append(append([]string{}, c.Argv0...), "--re-exec")
	log.Info("exec %s %v", exePath, argv)

	if err := syscall.Exec(exePath, argv, os.Environ()); err != nil {
		c.abort()
		return fmt.Errorf("reexec: exec: %w", err)
	}
	panic("unreachable: syscall.Exec only returns on error")
}

// abort recovers from a Trigger failure that occurred after Quiesce but
// before exec: clear the flag and resume reading on the same connections
// so this process image keeps serving the clients it already has.
func (c *Controller) abort() {
	atomic.StoreInt32(&c.reexecing, 0)
	if c.Unquiesce != nil {
		c.Unquiesce()
	}
}

// Resume implements §4.F step 5's tail: once called with --re-exec, a new
// process image reads the shm blob its predecessor wrote, unlinks it, and
// returns the raw bytes for each component's Unmarshal step to consume.
// syscall.Exec replaces the process image in place without forking, so
// the blob is named after this same process's PID — there is no parent
// PID to be told about separately. Restore (internal/state.Restore)
// should wrap the unmarshal steps so a partial failure reports every
// failing component rather than just the first (§7).
func Resume() ([]byte, error) {
	blob, err := state.ReadBlob(os.Getpid())
	if err != nil {
		return nil, fmt.Errorf("reexec: reading state blob: %w", err)
	}
	return blob, nil
}
