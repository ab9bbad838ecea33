package supervisor

import (
	"fmt"
	"os"
)

// PrepareDirectories implements §4.E step 2: create the root-owned runtime
// directory (mode 0755) and the invoking user's storage directory (mode
// 0700), both idempotently.
func PrepareDirectories(runtimeDir, storageRoot string) error {
	if err := os.MkdirAll(runtimeDir, 0755); err != nil {
		return fmt.Errorf("supervisor: creating runtime dir: %w", err)
	}
	if err := os.MkdirAll(storageRoot, 0700); err != nil {
		return fmt.Errorf("supervisor: creating storage dir: %w", err)
	}
	return nil
}

// PrepareDisplayStorage creates the per-display storage subtree named in
// §6.4 (`<storage>/N.data/`).
func PrepareDisplayStorage(storageRoot string, n int) (string, error) {
	dir := storageDir(storageRoot, n)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("supervisor: creating display storage: %w", err)
	}
	return dir, nil
}

// Cleanup implements §4.E step 7: remove the socket file (closing the
// listener is left to the caller), remove
// the PID file, recursively remove the display's storage subtree, and
// rmdir the shared runtime/storage directories, tolerating "not empty"
// since other displays may still be using them.
func Cleanup(runtimeDir, storageRoot string, n int) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := os.Remove(socketPath(runtimeDir, n)); err != nil && !os.IsNotExist(err) {
		record(fmt.Errorf("removing socket: %w", err))
	}
	record(RemovePIDFile(runtimeDir, n))
	if err := os.RemoveAll(storageDir(storageRoot, n)); err != nil {
		record(fmt.Errorf("removing display storage: %w", err))
	}

	for _, dir := range []string{runtimeDir, storageRoot} {
		if err := os.Remove(dir); err != nil && !isNotEmpty(err) && !os.IsNotExist(err) {
			record(fmt.Errorf("rmdir %s: %w", dir, err))
		}
	}
	return firstErr
}

func isNotEmpty(err error) bool {
	pe, ok := err.(*os.PathError)
	if !ok {
		return false
	}
	return pe.Err.Error() == "directory not empty"
}
