package supervisor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindInitrcPrefersXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	rcDir := filepath.Join(dir, "mds")
	if err := os.MkdirAll(rcDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	rcPath := filepath.Join(rcDir, "initrc")
	if err := os.WriteFile(rcPath, []byte("#!/bin/sh\ntrue\n"), 0755); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_CONFIG_DIRS", "")
	t.Setenv("HOME", t.TempDir())

	got, err := FindInitrc()
	if err != nil {
		t.Fatalf("FindInitrc: %v", err)
	}
	if got != rcPath {
		t.Fatalf("FindInitrc = %q, want %q", got, rcPath)
	}
}

func TestFindInitrcErrorsWhenNoneExist(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_DIRS", "")
	t.Setenv("HOME", t.TempDir())

	if _, err := FindInitrc(); err == nil {
		t.Fatalf("FindInitrc should fail when no candidate exists")
	}
}

func TestRunInitrcStartsAndDoesNotBlock(t *testing.T) {
	dir := t.TempDir()
	rcPath := filepath.Join(dir, "initrc")
	if err := os.WriteFile(rcPath, []byte("#!/bin/sh\nsleep 0.05\n"), 0755); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := RunInitrc(rcPath); err != nil {
		t.Fatalf("RunInitrc: %v", err)
	}
}
