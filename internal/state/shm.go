package state

import (
	"fmt"
	"io"
	"os"
)

// shmPath names the re-exec state blob after the writing process's PID, per
// §4.B "a shared-memory object whose name encodes the process ID". Linux
// exposes POSIX shared memory as ordinary files under /dev/shm, which is
// what this package opens directly — no ecosystem library wraps shm_open
// for Go, so this is a deliberate standard-library boundary crossing
// (os/syscall), not an omission.
func shmPath(pid int) string {
	return fmt.Sprintf("/dev/shm/mds-reexec-%d", pid)
}

// WriteBlob creates (or truncates) the shm object for pid and writes data
// into it, leaving it linked for the new image to open. ReadBlob removes it
// after a successful read-back.
func WriteBlob(pid int, data []byte) error {
	f, err := os.OpenFile(shmPath(pid), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("state: create re-exec blob: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("state: write re-exec blob: %w", err)
	}
	return nil
}

// ReadBlob opens the shm object named after pid, reads it in one pass, and
// unlinks it — §4.B "the new image opens it read-only, reads the full
// contents in one pass, then unlinks it". Failure to open is fatal to the
// caller's re-exec attempt.
func ReadBlob(pid int) ([]byte, error) {
	path := shmPath(pid)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("state: open re-exec blob: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("state: read re-exec blob: %w", err)
	}

	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("state: unlink re-exec blob: %w", err)
	}

	return data, nil
}
