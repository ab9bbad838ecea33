package supervisor

import (
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/net/netutil"
)

// maxClients bounds the number of simultaneously accepted connections so a
// runaway client count cannot exhaust file descriptors before the
// low-memory path has a chance to react (§9 "Client listener hardening").
const maxClients = 4096

// CreateSocket implements §4.E step 3: a Unix-domain stream socket at
// <runtime>/N.socket, mode 0700, owned by uid with group gid ("nobody-
// equivalent" is whatever gid the caller resolves and passes in). It
// returns both the hardened listener this process keeps and the
// underlying *os.File, since that is what gets handed to the spawned
// router image as an inherited fd.
func CreateSocket(runtimeDir string, n, uid, gid int) (net.Listener, *os.File, error) {
	path := socketPath(runtimeDir, n)
	_ = os.Remove(path) // stale socket from an unclean previous run

	raw, err := net.Listen("unix", path)
	if err != nil {
		return nil, nil, fmt.Errorf("supervisor: listening on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0700); err != nil {
		raw.Close()
		return nil, nil, fmt.Errorf("supervisor: chmod socket: %w", err)
	}
	if err := os.Chown(path, uid, gid); err != nil {
		raw.Close()
		return nil, nil, fmt.Errorf("supervisor: chown socket: %w", err)
	}

	unixLn, ok := raw.(*net.UnixListener)
	if !ok {
		raw.Close()
		return nil, nil, fmt.Errorf("supervisor: unexpected listener type %T", raw)
	}
	file, err := unixLn.File()
	if err != nil {
		raw.Close()
		return nil, nil, fmt.Errorf("supervisor: extracting socket fd: %w", err)
	}

	return netutil.LimitListener(raw, maxClients), file, nil
}

// InheritedListener implements the --socket-fd=N half of §6.3: when the
// process was handed a listening socket by a service manager (systemd
// socket activation) or by its own supervisor across a re-exec, wrap it
// rather than creating a fresh one.
func InheritedListener(fd int) (net.Listener, error) {
	files := activation.Files(false)
	for _, f := range files {
		if int(f.Fd()) == fd {
			ln, err := net.FileListener(f)
			if err != nil {
				return nil, fmt.Errorf("supervisor: inheriting fd %d: %w", fd, err)
			}
			return netutil.LimitListener(ln, maxClients), nil
		}
	}
	// Not one of systemd's activation fds: it was handed down directly by
	// an exec'ing parent (re-exec, or --socket-fd passed by the spawning
	// supervisor), so wrap the fd as-is.
	f := os.NewFile(uintptr(fd), fmt.Sprintf("inherited-socket-fd-%d", fd))
	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("supervisor: inheriting fd %d: %w", fd, err)
	}
	return netutil.LimitListener(ln, maxClients), nil
}

// LookupNobodyGroup resolves the "nobody-equivalent" group §4.E step 3
// asks the socket be owned by, falling back to the invoking user's
// primary group if no such group exists on this system.
func LookupNobodyGroup(fallbackGID int) int {
	for _, name := range []string{"nogroup", "nobody"} {
		if g, err := user.LookupGroup(name); err == nil {
			if gid, err := strconv.Atoi(g.Gid); err == nil {
				return gid
			}
		}
	}
	return fallbackGID
}

// NotifyReady announces readiness to a service manager once the socket is
// listening; callers invoke it just before entering the router's accept
// loop or the spawn loop (§9 "Socket activation / readiness").
func NotifyReady() {
	notifySystemd(daemon.SdNotifyReady)
}

// NotifyStopping announces the start of shutdown.
func NotifyStopping() {
	notifySystemd(daemon.SdNotifyStopping)
}

// NotifyWatchdog pings the service manager's watchdog on the interval it
// advertised via WATCHDOG_USEC, if any.
func NotifyWatchdog(interval time.Duration) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				notifySystemd(daemon.SdNotifyWatchdog)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Debug("sd_notify %q failed: %v", state, err)
		return
	}
	if !sent {
		log.Debug("sd_notify %q: no NOTIFY_SOCKET, not under systemd", state)
	}
}

// DropPrivileges implements §4.E step 4: exec of any child happens only
// after permissions drop to the target uid/gid, since directory and
// socket creation are the only steps that need elevation.
func DropPrivileges(uid, gid int) error {
	if err := syscall.Setgid(gid); err != nil {
		return fmt.Errorf("supervisor: setgid: %w", err)
	}
	if err := syscall.Setuid(uid); err != nil {
		return fmt.Errorf("supervisor: setuid: %w", err)
	}
	return nil
}
