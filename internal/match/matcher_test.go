package match

import (
	"testing"

	"github.com/maandree/mds-sub000/internal/state"
	"github.com/maandree/mds-sub000/internal/wire"
)

func TestAddOrUpdateKeepsModifyingFirst(t *testing.T) {
	var l List
	l.AddOrUpdate("Command: ping", 0, false)
	l.AddOrUpdate("Command", 10, true)

	conds := l.Conditions()
	if len(conds) != 2 {
		t.Fatalf("len = %d, want 2", len(conds))
	}
	if !conds[0].Modifying {
		t.Fatalf("first condition is not modifying: %+v", conds[0])
	}
}

func TestAddOrUpdateOverwritesExisting(t *testing.T) {
	var l List
	l.AddOrUpdate("Command: ping", 0, false)
	l.AddOrUpdate("Command: ping", 5, true)

	if l.Len() != 1 {
		t.Fatalf("len = %d, want 1", l.Len())
	}
	c := l.Conditions()[0]
	if c.Priority != 5 || !c.Modifying {
		t.Fatalf("condition not updated: %+v", c)
	}
}

func TestRemove(t *testing.T) {
	var l List
	l.AddOrUpdate("Command: ping", 0, false)
	l.Remove("Command: ping")
	if l.Len() != 0 {
		t.Fatalf("len = %d, want 0", l.Len())
	}
}

func TestQueryMatchesByKind(t *testing.T) {
	var l List
	l.AddOrUpdate("Command: ping", 0, false)

	matched, _, modifying := l.Query(wire.Headers{{Name: "Command", Value: "ping"}})
	if !matched || modifying {
		t.Fatalf("matched=%v modifying=%v, want true/false", matched, modifying)
	}

	matched, _, _ = l.Query(wire.Headers{{Name: "Command", Value: "pong"}})
	if matched {
		t.Fatal("unexpected match on differing value")
	}
}

func TestQueryCatchAll(t *testing.T) {
	var l List
	l.AddOrUpdate("", 0, false)

	matched, _, _ := l.Query(wire.Headers{{Name: "Anything", Value: "x"}})
	if !matched {
		t.Fatal("catch-all condition did not match")
	}
}

func TestQueryReturnsFirstMatchWhichIsModifyingIfAny(t *testing.T) {
	var l List
	l.AddOrUpdate("Command", 0, false)
	l.AddOrUpdate("Command: ping", 10, true)

	matched, priority, modifying := l.Query(wire.Headers{{Name: "Command", Value: "ping"}})
	if !matched || !modifying || priority != 10 {
		t.Fatalf("matched=%v modifying=%v priority=%d, want true/true/10", matched, modifying, priority)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	var l List
	l.AddOrUpdate("Command", 10, true)
	l.AddOrUpdate("Command: ping", 0, false)

	w := state.NewWriter()
	l.Marshal(w)

	r := state.NewReader(w.Bytes())
	got := Unmarshal(r)
	if r.Err() != nil {
		t.Fatalf("unmarshal error: %v", r.Err())
	}
	if got.Len() != l.Len() {
		t.Fatalf("len = %d, want %d", got.Len(), l.Len())
	}
	for i, c := range got.Conditions() {
		if c.Pattern != l.Conditions()[i].Pattern {
			t.Fatalf("condition %d pattern = %q, want %q", i, c.Pattern, l.Conditions()[i].Pattern)
		}
	}
}
