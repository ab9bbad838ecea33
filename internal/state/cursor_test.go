package state

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.PutUint32(7)
	w.PutInt64(-42)
	w.PutBool(true)
	w.PutString("hello")
	w.PutBytes([]byte{1, 2, 3})

	r := NewReader(w.Bytes())
	if got := r.GetUint32(); got != 7 {
		t.Fatalf("GetUint32 = %d, want 7", got)
	}
	if got := r.GetInt64(); got != -42 {
		t.Fatalf("GetInt64 = %d, want -42", got)
	}
	if got := r.GetBool(); got != true {
		t.Fatalf("GetBool = %v, want true", got)
	}
	if got := r.GetString(); got != "hello" {
		t.Fatalf("GetString = %q, want hello", got)
	}
	if got := r.GetBytes(); !cmp.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("GetBytes = %v, want [1 2 3]", got)
	}
	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}
	if r.Remaining() != 0 {
		t.Fatalf("Remaining = %d, want 0", r.Remaining())
	}
}

func TestEnvelopeCompatibility(t *testing.T) {
	w := NewWriter()
	w.Envelope(MakeVersion(1, 3), func(w *Writer) {
		w.PutString("payload")
	})

	r := NewReader(w.Bytes())
	var got string
	r.Envelope(MakeVersion(1, 0), func(r *Reader) {
		got = r.GetString()
	})
	if r.Err() != nil {
		t.Fatalf("expected minor-version skew to be accepted, got: %v", r.Err())
	}
	if got != "payload" {
		t.Fatalf("payload = %q, want %q", got, "payload")
	}
}

func TestEnvelopeMajorMismatchFails(t *testing.T) {
	w := NewWriter()
	w.Envelope(MakeVersion(2, 0), func(w *Writer) {
		w.PutString("payload")
	})

	r := NewReader(w.Bytes())
	r.Envelope(MakeVersion(1, 0), func(r *Reader) {
		r.GetString()
	})
	if r.Err() == nil {
		t.Fatal("expected major-version mismatch to fail")
	}
}

func TestRemap(t *testing.T) {
	remap := NewRemap[string]()
	id := NewObjectID()
	remap.Bind(id, "client-object")

	got, ok := remap.Resolve(id)
	if !ok || got != "client-object" {
		t.Fatalf("Resolve = (%q, %v), want (client-object, true)", got, ok)
	}

	if _, ok := remap.Resolve(NewObjectID()); ok {
		t.Fatal("unbound id resolved")
	}
}
