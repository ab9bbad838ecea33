package state

import "testing"

func TestRemapBindResolve(t *testing.T) {
	r := NewRemap[string]()
	id := NewObjectID()

	if _, ok := r.Resolve(id); ok {
		t.Fatalf("unbound id resolved successfully")
	}

	r.Bind(id, "client-object")
	got, ok := r.Resolve(id)
	if !ok || got != "client-object" {
		t.Fatalf("Resolve = (%q, %v), want (\"client-object\", true)", got, ok)
	}
}

func TestNewObjectIDsAreUnique(t *testing.T) {
	a := NewObjectID()
	b := NewObjectID()
	if a == b {
		t.Fatalf("NewObjectID produced two identical ids")
	}
}
