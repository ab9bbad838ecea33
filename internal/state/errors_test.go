package state

import (
	"errors"
	"strings"
	"testing"
)

func TestRestoreAggregatesAllFailures(t *testing.T) {
	errA := errors.New("component A failed")
	errB := errors.New("component B failed")

	err := Restore(
		func() error { return nil },
		func() error { return errA },
		func() error { return nil },
		func() error { return errB },
	)
	if err == nil {
		t.Fatalf("Restore should report an error when any step fails")
	}
	msg := err.Error()
	if !strings.Contains(msg, errA.Error()) || !strings.Contains(msg, errB.Error()) {
		t.Fatalf("Restore error %q does not mention both failures", msg)
	}
}

func TestRestoreNilWhenEverythingSucceeds(t *testing.T) {
	err := Restore(
		func() error { return nil },
		func() error { return nil },
	)
	if err != nil {
		t.Fatalf("Restore = %v, want nil when every step succeeds", err)
	}
}
