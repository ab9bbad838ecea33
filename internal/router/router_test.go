package router

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/maandree/mds-sub000/internal/wire"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	return New(clockwork.NewRealClock(), nil)
}

// dialPair returns two ends of a real Unix domain socket connection so the
// registry's fd-keyed table (netfd.GetFdFromConn) has a genuine fd to
// extract, the way an accepted client connection would.
func dialPair(t *testing.T) (server, client net.Conn) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s.sock")

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	acceptedCh := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			acceptedCh <- c
		}
	}()

	client, err = net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	server = <-acceptedCh

	t.Cleanup(func() {
		server.Close()
		client.Close()
		os.Remove(path)
	})
	return server, client
}

func send(t *testing.T, conn net.Conn, m *wire.Message) {
	t.Helper()
	if _, err := conn.Write(wire.Compose(m, nil)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn net.Conn) *wire.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := wire.NewReader()
	for {
		switch r.ReadFrom(conn) {
		case wire.Complete:
			return r.Message()
		case wire.NeedMore:
			continue
		default:
			t.Fatalf("recv: connection closed or malformed before a full message arrived")
			return nil
		}
	}
}

// waitForCondition polls cond (expected to take its own locks internally)
// until it reports true or a short deadline passes, for assertions against
// state mutated asynchronously by a reader goroutine.
func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not satisfied before deadline")
}

// expectNoMessage asserts that conn does not receive anything within a
// short deadline.
func expectNoMessage(t *testing.T, conn net.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	if n != 0 || err == nil {
		t.Fatalf("expected no data, got %d bytes err=%v", n, err)
	}
}

// Scenario 1: assign-id round trip (§8).
func TestAssignIDRoundTrip(t *testing.T) {
	r := newTestRouter(t)

	serverA, clientA := dialPair(t)
	r.Accept(serverA)
	send(t, clientA, &wire.Message{Headers: wire.Headers{{Name: "Command", Value: "assign-id"}}})

	replyA := recv(t, clientA)
	idA, ok := replyA.Headers.Last("ID assignment")
	if !ok || idA != "1:1" {
		t.Fatalf("first client ID assignment = %q (ok=%v), want 1:1", idA, ok)
	}

	serverB, clientB := dialPair(t)
	r.Accept(serverB)
	send(t, clientB, &wire.Message{Headers: wire.Headers{{Name: "Command", Value: "assign-id"}}})

	replyB := recv(t, clientB)
	idB, ok := replyB.Headers.Last("ID assignment")
	if !ok || idB != "1:2" {
		t.Fatalf("second client ID assignment = %q (ok=%v), want 1:2", idB, ok)
	}
}

// Scenario 2: a plain message with no special headers reaches every client
// whose subscription matches, and no one else.
func TestSimpleMulticast(t *testing.T) {
	r := newTestRouter(t)

	serverA, clientA := dialPair(t)
	a := r.Accept(serverA)
	a.mu.Lock()
	a.subs.AddOrUpdate("Command: ping", 0, false)
	a.mu.Unlock()

	serverB, clientB := dialPair(t)
	b := r.Accept(serverB)
	b.mu.Lock()
	b.subs.AddOrUpdate("Command: pong", 0, false)
	b.mu.Unlock()

	serverC, clientC := dialPair(t)
	r.Accept(serverC)
	send(t, clientC, &wire.Message{Headers: wire.Headers{{Name: "Command", Value: "ping"}}})

	gotA := recv(t, clientA)
	if v, _ := gotA.Headers.Last("Command"); v != "ping" {
		t.Fatalf("A received %+v, want Command: ping", gotA.Headers)
	}
	expectNoMessage(t, clientB)
}

// Scenario 3: a modifying subscriber rewrites the payload before the next
// target sees it.
func TestModifyRewrite(t *testing.T) {
	r := newTestRouter(t)

	serverMod, clientMod := dialPair(t)
	modClient := r.Accept(serverMod)
	modClient.mu.Lock()
	modClient.subs.AddOrUpdate("Command: ping", 10, true)
	modClient.mu.Unlock()

	serverB, clientB := dialPair(t)
	b := r.Accept(serverB)
	b.mu.Lock()
	b.subs.AddOrUpdate("Command: ping", 0, false)
	b.mu.Unlock()

	serverC, clientC := dialPair(t)
	r.Accept(serverC)
	send(t, clientC, &wire.Message{
		Headers: wire.Headers{{Name: "Command", Value: "ping"}, {Name: "Length", Value: "8"}},
		Payload: []byte("original"),
	})

	incoming := recv(t, clientMod)
	ticket, ok := incoming.Headers.Last("Modify ID")
	if !ok {
		t.Fatalf("modifying subscriber did not receive a Modify ID header: %+v", incoming.Headers)
	}

	reply := &wire.Message{
		Headers: wire.Headers{
			{Name: "Modify ID", Value: ticket},
			{Name: "Modifying", Value: "yes"},
			{Name: "Modify", Value: "yes"},
			{Name: "Length", Value: "9"},
		},
		Payload: []byte("rewritten"),
	}
	send(t, clientMod, reply)

	final := recv(t, clientB)
	if string(final.Payload) != "rewritten" {
		t.Fatalf("final payload = %q, want %q", final.Payload, "rewritten")
	}
	if final.Headers.Has("Modify ID") {
		t.Fatalf("non-modifying target should not see Modify ID: %+v", final.Headers)
	}
}

// Scenario 4: consume — a modifying subscriber replies with an empty
// payload and later targets never see the message.
func TestConsume(t *testing.T) {
	r := newTestRouter(t)

	serverMod, clientMod := dialPair(t)
	modClient := r.Accept(serverMod)
	modClient.mu.Lock()
	modClient.subs.AddOrUpdate("Command: ping", 10, true)
	modClient.mu.Unlock()

	serverB, clientB := dialPair(t)
	b := r.Accept(serverB)
	b.mu.Lock()
	b.subs.AddOrUpdate("Command: ping", 0, false)
	b.mu.Unlock()

	serverC, clientC := dialPair(t)
	r.Accept(serverC)
	send(t, clientC, &wire.Message{Headers: wire.Headers{{Name: "Command", Value: "ping"}}})

	incoming := recv(t, clientMod)
	ticket, _ := incoming.Headers.Last("Modify ID")

	send(t, clientMod, &wire.Message{Headers: wire.Headers{
		{Name: "Modify ID", Value: ticket},
		{Name: "Modifying", Value: "yes"},
		{Name: "Modify", Value: "yes"},
	}})

	expectNoMessage(t, clientB)
}

// Scenario 5: when a client disconnects, the router broadcasts a synthetic
// "Client closed" notification that other subscribers observe.
func TestClientClosedFanout(t *testing.T) {
	r := newTestRouter(t)

	serverA, clientA := dialPair(t)
	a := r.Accept(serverA)
	send(t, clientA, &wire.Message{Headers: wire.Headers{{Name: "Command", Value: "assign-id"}}})
	recv(t, clientA) // drain the ID assignment reply

	serverWatcher, clientWatcher := dialPair(t)
	watcher := r.Accept(serverWatcher)
	watcher.mu.Lock()
	watcher.subs.AddOrUpdate("Client closed", 0, false)
	watcher.mu.Unlock()

	clientA.Close()

	notice := recv(t, clientWatcher)
	if v, ok := notice.Headers.Last("Client closed"); !ok || v != a.ID.String() {
		t.Fatalf("notice Client closed = %q (ok=%v), want %q", v, ok, a.ID.String())
	}
}
