package router

import (
	"testing"
	"time"

	"github.com/maandree/mds-sub000/internal/wire"
)

// Scenario-adjacent: Quiesce stops delivery without severing the
// connection, and Unquiesce resumes it on the same socket (§4.F step 2).
func TestQuiesceStopsReadingWithoutClosing(t *testing.T) {
	r := newTestRouter(t)

	serverA, clientA := dialPair(t)
	a := r.Accept(serverA)
	a.mu.Lock()
	a.subs.AddOrUpdate("Command: ping", 0, false)
	a.mu.Unlock()

	serverB, clientB := dialPair(t)
	r.Accept(serverB)

	r.Quiesce()

	// sent while quiesced: no reader task is running to dispatch it
	send(t, clientB, &wire.Message{Headers: wire.Headers{{Name: "Command", Value: "ping"}}})
	expectNoMessage(t, clientA)

	// the connection itself is still open, not torn down
	if n, err := clientA.Write([]byte{}); err != nil && n != 0 {
		t.Fatalf("clientA connection appears closed after Quiesce: %v", err)
	}

	r.Unquiesce()

	// give the freshly restarted reader goroutine a moment, then resend
	time.Sleep(20 * time.Millisecond)
	send(t, clientB, &wire.Message{Headers: wire.Headers{{Name: "Command", Value: "ping"}}})

	got := recv(t, clientA)
	if v, _ := got.Headers.Last("Command"); v != "ping" {
		t.Fatalf("after Unquiesce, A received %+v, want Command: ping", got.Headers)
	}
}
