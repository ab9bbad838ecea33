package cli

import (
	"flag"
	"testing"
)

func TestValidateRejectsInitialSpawnAndRespawnTogether(t *testing.T) {
	f := Register(flag.NewFlagSet("t", flag.ContinueOnError))
	f.InitialSpawn = true
	f.Respawn = true
	if err := f.Validate(); err == nil {
		t.Fatalf("expected error for --initial-spawn + --respawn")
	}
}

func TestValidateRejectsConsoleAndOnInitForkTogether(t *testing.T) {
	f := Register(flag.NewFlagSet("t", flag.ContinueOnError))
	f.Console = true
	f.OnInitFork = true
	if err := f.Validate(); err == nil {
		t.Fatalf("expected error for --console + --on-init-fork")
	}
}

func TestValidateCapsAlarmAt60(t *testing.T) {
	f := Register(flag.NewFlagSet("t", flag.ContinueOnError))
	f.AlarmSec = 120
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if f.AlarmSec != 60 {
		t.Fatalf("AlarmSec = %d, want capped to 60", f.AlarmSec)
	}
}

func TestValidateAcceptsPlainFlags(t *testing.T) {
	f := Register(flag.NewFlagSet("t", flag.ContinueOnError))
	f.Respawn = true
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
