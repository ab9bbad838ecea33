package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// Config gathers everything Bootstrap needs to take a process from "just
// started as root" to "router image running and this process waiting on
// it" (§4.E).
type Config struct {
	RuntimeDir  string
	StorageRoot string
	MaxDisplay  int
	RouterExe   string
	// RouterArgs builds the router image's argv given the inherited
	// socket fd and whether this is a respawn.
	RouterArgs func(socketFD int, respawn bool) []string
	Immortal   bool
}

// Bootstrap runs §4.E steps 1 through 6: resolve a display, create the
// runtime/storage directories and the listening socket, drop privileges,
// export the display environment, and run the spawn/respawn loop until
// the router image exits cleanly or is abandoned.
func Bootstrap(ctx context.Context, cfg Config) error {
	if err := PrepareDirectories(cfg.RuntimeDir, cfg.StorageRoot); err != nil {
		return err
	}

	n, err := ResolveDisplay(cfg.RuntimeDir, cfg.MaxDisplay)
	if err != nil {
		return err
	}
	log.Info("resolved display :%d", n)

	if _, err := PrepareDisplayStorage(cfg.StorageRoot, n); err != nil {
		return err
	}

	uid, gid, err := invokingUser()
	if err != nil {
		return err
	}
	socketGID := LookupNobodyGroup(gid)

	ln, sockFile, err := CreateSocket(cfg.RuntimeDir, n, uid, socketGID)
	if err != nil {
		return err
	}
	defer ln.Close()
	defer sockFile.Close()

	if err := WritePIDFile(cfg.RuntimeDir, n, os.Getpid()); err != nil {
		return err
	}
	defer RemovePIDFile(cfg.RuntimeDir, n)
	defer Cleanup(cfg.RuntimeDir, cfg.StorageRoot, n)

	if err := DropPrivileges(uid, gid); err != nil {
		return err
	}

	if err := syscall.Setpgid(0, 0); err != nil {
		log.Warn("setpgid: %v", err)
	}
	pgid, err := syscall.Getpgid(0)
	if err != nil {
		return fmt.Errorf("supervisor: getpgid: %w", err)
	}

	spawner := NewSpawner(cfg.RouterExe, cfg.RouterArgs, sockFile)
	spawner.Env = DisplayEnv(n, pgid)

	NotifyReady()
	defer NotifyStopping()

	return spawner.Run(ctx)
}

// invokingUser resolves the real uid/gid that privilege should drop to:
// SUDO_UID/SUDO_GID when present (the common case of a setuid-root
// bootstrap invoked via sudo), falling back to the process's own real
// ids otherwise.
func invokingUser() (uid, gid int, err error) {
	if s := os.Getenv("SUDO_UID"); s != "" {
		if u, err := strconv.Atoi(s); err == nil {
			uid = u
		}
	} else {
		uid = os.Getuid()
	}
	if s := os.Getenv("SUDO_GID"); s != "" {
		if g, err := strconv.Atoi(s); err == nil {
			gid = g
		}
	} else {
		gid = os.Getgid()
	}
	if uid != 0 {
		return uid, gid, nil
	}
	// still root: resolve the current user from the user database. When
	// the process really runs as root without SUDO_UID, this yields root's
	// own ids, so no privilege is dropped.
	u, err := user.Current()
	if err != nil {
		return 0, 0, fmt.Errorf("supervisor: resolving invoking user: %w", err)
	}
	uid, _ = strconv.Atoi(u.Uid)
	gid, _ = strconv.Atoi(u.Gid)
	return uid, gid, nil
}
