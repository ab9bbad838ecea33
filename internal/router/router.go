// Package router implements the message-routing core (§4.D): client
// registration and ID assignment, subscription dispatch, multicast fan-out
// with the modify-rewrite/consume rendezvous protocol, and the naming-
// service seed that lets the router observe its own client lifecycle
// events through the same subscription mechanism every other client uses.
package router

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/maandree/mds-sub000/internal/metrics"
	"github.com/maandree/mds-sub000/internal/minilog"
	"github.com/maandree/mds-sub000/internal/wire"
)

var log = minilog.Named("router")

// Router owns every connected Client, the ID/ticket allocators, and the
// modify-rendezvous table. One Router serves one display; it is rebuilt
// (via Unmarshal) across a re-exec rather than surviving in place.
type Router struct {
	reg   *registry
	ids   *IDAllocator
	rv    *rendezvous
	clock clockwork.Clock

	self *Client

	closeOnce sync.Once
	done      chan struct{}

	// quiescing and readerWG implement the re-exec quiesce step (§4.F
	// step 2): Quiesce interrupts every reader task's blocking read
	// without closing the connection, then waits for each to exit.
	quiescing int32
	readerWG  sync.WaitGroup

	metrics *metrics.Collector
}

// New creates a Router for a fresh (non-re-exec) start: it seeds the
// naming-service self-client (§4.D.5) and returns ready to accept
// connections.
func New(clock clockwork.Clock, m *metrics.Collector) *Router {
	r := &Router{
		reg:     newRegistry(),
		ids:     NewIDAllocator(),
		rv:      newRendezvous(),
		clock:   clock,
		done:    make(chan struct{}),
		metrics: m,
	}
	r.seedSelf()
	return r
}

// selfID is the router's own pseudo-client identifier. It is a reserved
// sentinel rather than a draw from the visible client-ID counter, so
// seeding it never shifts the ID the first real client receives (§8
// Scenario 1: the first assign-id request gets "1:1").
var selfID = ID{High: ^uint32(0), Low: ^uint32(0)}

// seedSelf registers the router's own pseudo-client and subscribes it to a
// single condition, "Client closed", so it observes client-closed
// notifications (§4.D.5). No request asking domain modules to re-announce
// their protocol registration is sent.
func (r *Router) seedSelf() {
	self := newSelfClient(selfID, r.handleSelfMessage)
	self.subs.AddOrUpdate("Client closed", 0, false)
	r.reg.bySelfPseudo(self)
	r.self = self
	go r.runMulticastLoop(self)
}

// handleSelfMessage reacts to a message delivered to the router's own
// pseudo-client. The only control message a bare core reacts to is a
// client-closed notification, which it logs; closeClient has already
// removed the closed client from the registry by then.
func (r *Router) handleSelfMessage(m *wire.Message) {
	closedID, ok := m.Headers.Last("Client closed")
	if !ok {
		return
	}
	log.Debug("observed client closed: %s", closedID)
}

// Terminating reports whether Shutdown has been called; in-flight modify
// waits treat this as an abandon signal.
func (r *Router) Terminating() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Shutdown marks the router as terminating, waking every in-flight modify
// wait so process exit is not blocked on a stalled subscriber. A re-exec
// does not call it; it pauses readers through Quiesce instead.
func (r *Router) Shutdown() {
	r.closeOnce.Do(func() { close(r.done) })
}

// Accept registers a freshly accepted, not-yet-identified connection and
// starts its reader and multicast tasks (§4.D.1).
func (r *Router) Accept(conn net.Conn) *Client {
	c := newClient(ID{}, conn, fdOf(conn))
	r.reg.addAnonymous(c)
	if r.metrics != nil {
		r.metrics.ClientConnected()
	}

	go r.runWriter(c)
	go r.runMulticastLoop(c)
	r.startReader(c)
	return c
}

// startReader launches c's reader task tracked under readerWG, so Quiesce
// can wait for it to actually exit rather than just signaling it to.
func (r *Router) startReader(c *Client) {
	r.readerWG.Add(1)
	go func() {
		defer r.readerWG.Done()
		r.runReader(c)
	}()
}

// Quiesce implements §4.F step 2: every non-self client's reader task is
// interrupted out of its blocking read via an expired deadline (not a
// close, so the connection and its fd survive for marshal/reattach) and
// this call blocks until every one of them has actually exited.
func (r *Router) Quiesce() {
	atomic.StoreInt32(&r.quiescing, 1)
	for _, c := range r.reg.snapshot() {
		if c.isSelf() || c.conn == nil {
			continue
		}
		_ = c.conn.SetReadDeadline(time.Now())
	}
	r.readerWG.Wait()
}

// Unquiesce restarts a reader task for every currently registered
// non-self client. It is used both to resume normal operation in this
// same process when a triggered re-exec attempt failed before exec, and
// by the new process image after a successful re-exec restore.
func (r *Router) Unquiesce() {
	atomic.StoreInt32(&r.quiescing, 0)
	for _, c := range r.reg.snapshot() {
		if c.isSelf() {
			continue
		}
		r.startReader(c)
	}
}

func (r *Router) runWriter(c *Client) {
	for buf := range c.outbound {
		if c.conn == nil {
			continue
		}
		if _, err := c.conn.Write(buf); err != nil {
			log.Debug("write to client %s failed: %v", c.ID, err)
			return
		}
	}
}

// closeClient marks c closed, stops its queues, removes it from the
// registry, and broadcasts the synthetic "Client closed" notification
// (§4.D.1) so subscribers (including the router's own self-client) can
// react.
func (r *Router) closeClient(c *Client) {
	if c.isSelf() {
		return
	}
	c.markClosed()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	r.reg.remove(c)
	if r.metrics != nil {
		r.metrics.ClientDisconnected()
	}
	close(c.outbound)
	close(c.multicastQueue)

	notice := &wire.Message{Headers: wire.Headers{
		{Name: "Client closed", Value: c.ID.String()},
	}}
	r.Multicast(r.self, notice)
}

func (r *Router) runReader(c *Client) {
	reader := wire.NewReader()
	for {
		outcome := reader.ReadFrom(c.conn)
		switch outcome {
		case wire.NeedMore:
			continue
		case wire.Complete:
			m := reader.Message()
			r.Dispatch(c, m)
		case wire.Malformed:
			log.Debug("client %s sent a malformed message, closing", c.ID)
			r.closeClient(c)
			return
		case wire.Closed:
			r.closeClient(c)
			return
		case wire.Interrupted:
			if atomic.LoadInt32(&r.quiescing) != 0 {
				log.Debug("client %s reader quiescing for re-exec", c.ID)
				return
			}
			// a stray deadline fired outside a quiesce: clear it and
			// keep reading rather than treat it as a close.
			_ = c.conn.SetReadDeadline(time.Time{})
			continue
		}
		if r.Terminating() {
			return
		}
	}
}

func (r *Router) runMulticastLoop(c *Client) {
	for job := range c.multicastQueue {
		r.deliverMulticast(c, job)
	}
}

// waitForModifyReply blocks c (as originator) until a reply for ticket
// arrives on modCh, the router starts terminating, or one second elapses
// with neither — on a bare timeout it loops again, since §4.D.4 only
// treats the *combination* of timeout and shutdown as abandonment.
func (r *Router) waitForModifyReply(c *Client) (*wire.Message, bool) {
	for {
		select {
		case reply := <-c.modCh:
			return reply, false
		case <-r.done:
			return nil, true
		case <-r.clock.After(time.Second):
			if r.Terminating() {
				return nil, true
			}
		}
	}
}
