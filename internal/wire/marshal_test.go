package wire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/maandree/mds-sub000/internal/state"
)

func TestMessageMarshalRoundTrip(t *testing.T) {
	m := &Message{
		Headers: Headers{
			{Name: "Command", Value: "ping"},
			{Name: "Client ID", Value: "1:1"},
		},
		Payload: []byte("hello"),
	}

	w := state.NewWriter()
	Marshal(w, m)
	if w.Len() != MarshalSize(m) {
		t.Fatalf("MarshalSize mismatch: wrote %d, computed %d", w.Len(), MarshalSize(m))
	}

	r := state.NewReader(w.Bytes())
	got := Unmarshal(r)
	if r.Err() != nil {
		t.Fatalf("unmarshal error: %v", r.Err())
	}
	if !cmp.Equal(got, m) {
		t.Fatalf("round trip mismatch: %s", cmp.Diff(got, m))
	}
}

func TestReaderStateMarshalRoundTripMidPayload(t *testing.T) {
	orig := NewReader()
	outcome := orig.Feed([]byte("Length: 10\n\nhel"))
	if outcome != NeedMore {
		t.Fatalf("outcome = %v, want NeedMore", outcome)
	}

	w := state.NewWriter()
	MarshalReaderState(w, orig)

	r := state.NewReader(w.Bytes())
	restored := UnmarshalReaderState(r)
	if r.Err() != nil {
		t.Fatalf("unmarshal error: %v", r.Err())
	}

	outcome = restored.Feed([]byte("lo again"))
	if outcome != Complete {
		t.Fatalf("outcome after restore = %v, want Complete", outcome)
	}
	want := "hel" + "lo again"[:7]
	if got := string(restored.Message().Payload); got != want {
		t.Fatalf("payload = %q, want %q", got, want)
	}
}
