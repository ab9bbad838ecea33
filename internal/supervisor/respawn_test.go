package supervisor

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func devNullFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("open %s: %v", os.DevNull, err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestSpawnerCleanExitStopsLoop(t *testing.T) {
	s := &Spawner{
		Exe:       "/bin/sh",
		Args:      func(fd int, respawn bool) []string { return []string{"-c", "exit 0"} },
		Clock:     clockwork.NewRealClock(),
		MinLife:   MinLifetime,
		ExtraFile: devNullFile(t),
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSpawnerAbandonsFastCrash(t *testing.T) {
	fake := clockwork.NewFakeClock()
	s := &Spawner{
		Exe:       "/bin/sh",
		Args:      func(fd int, respawn bool) []string { return []string{"-c", "exit 1"} },
		Clock:     fake,
		MinLife:   MinLifetime,
		ExtraFile: devNullFile(t),
	}

	// the fake clock never advances, so every attempt "lived" 0s, well
	// under MinLife: the very first crash should be abandoned, not
	// respawned.
	err := s.Run(context.Background())
	if err == nil {
		t.Fatalf("Run should report an error for a crash within the minimum lifetime")
	}
}

func TestSpawnerRespawnsAfterMinLifetime(t *testing.T) {
	attempts := 0
	s := &Spawner{
		Exe: "/bin/sh",
		Args: func(fd int, respawn bool) []string {
			attempts++
			if attempts >= 2 {
				return []string{"-c", "exit 0"}
			}
			// sleeps past the (deliberately tiny) minimum lifetime before
			// crashing, so the first crash looks like it lived long enough
			// to warrant a respawn rather than an abandon.
			return []string{"-c", "sleep 0.05; exit 1"}
		},
		Clock:     clockwork.NewRealClock(),
		MinLife:   10 * time.Millisecond,
		ExtraFile: devNullFile(t),
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2 (one crash, one clean respawn)", attempts)
	}
}

func TestResolveExeReturnsPath(t *testing.T) {
	// ResolveExe itself reads /proc/self/exe, which has no " (deleted)"
	// suffix during a normal test run; this just exercises the call path.
	path, err := ResolveExe()
	if err != nil {
		t.Fatalf("ResolveExe: %v", err)
	}
	if path == "" {
		t.Fatalf("ResolveExe returned empty path")
	}
}
