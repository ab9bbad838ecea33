package router

import (
	"net"

	"github.com/jonboulle/clockwork"

	"github.com/maandree/mds-sub000/internal/match"
	"github.com/maandree/mds-sub000/internal/metrics"
	"github.com/maandree/mds-sub000/internal/state"
)

// EnvelopeVersion is the marshal-record version tag for the whole router.
var EnvelopeVersion = state.MakeVersion(1, 0)

// Marshal writes every piece of state a re-exec must reconstruct: the ID
// and ticket counters, and each client's identity, subscriptions, and raw
// fd (so the new image can match a restored Client back to the same fd,
// which it inherits across exec, per §4.B "component marshal/unmarshal"
// and §9's address-as-identity replacement).
func (r *Router) Marshal(w *state.Writer) {
	w.Envelope(EnvelopeVersion, func(w *state.Writer) {
		nextClient, nextTicket := r.ids.Snapshot()
		w.PutUint64(nextClient)
		w.PutUint64(nextTicket)

		// snapshot already includes the self pseudo-client: bySelfPseudo
		// registers it in the same byID table ordinary clients live in, so
		// it participates in multicast matching like any other subscriber.
		clients := r.reg.snapshot()

		w.PutUint32(uint32(len(clients)))
		for _, c := range clients {
			w.PutString(string(c.objectID))
			w.PutUint32(c.ID.High)
			w.PutUint32(c.ID.Low)
			w.PutBool(c.isSelf())
			w.PutUint32(uint32(c.fd))
			c.mu.Lock()
			c.subs.Marshal(w)
			c.mu.Unlock()
		}
	})
}

// Reattach resolves a marshalled client's raw fd to a net.Conn in the new
// process image. The fd survives exec because ClearCloseOnExec cleared its
// close-on-exec flag before the old image exec'd. A miss means the client's
// socket did not survive re-exec and it is dropped, matching a real client
// disconnect rather than aborting the whole restore.
type Reattach func(fd int) (net.Conn, bool)

// Unmarshal reconstructs a Router from a record written by Marshal. The
// self pseudo-client is re-seeded with a fresh reaction closure (its
// subscriptions are still restored from the record); reattach resolves
// each ordinary client's original fd to its new net.Conn.
func Unmarshal(r *state.Reader, clock clockwork.Clock, m *metrics.Collector, reattach Reattach) *Router {
	router := &Router{
		reg:     newRegistry(),
		ids:     NewIDAllocator(),
		rv:      newRendezvous(),
		clock:   clock,
		done:    make(chan struct{}),
		metrics: m,
	}

	r.Envelope(EnvelopeVersion, func(r *state.Reader) {
		nextClient := r.GetUint64()
		nextTicket := r.GetUint64()
		router.ids.Restore(nextClient, nextTicket)

		n := r.GetUint32()
		for i := uint32(0); i < n; i++ {
			objectID := state.ObjectID(r.GetString())
			high := r.GetUint32()
			low := r.GetUint32()
			isSelf := r.GetBool()
			fd := int(int32(r.GetUint32()))
			subs := match.Unmarshal(r)
			id := ID{High: high, Low: low}

			if isSelf {
				self := newSelfClient(id, router.handleSelfMessage)
				self.objectID = objectID
				self.subs.Restore(subs.Conditions())
				router.reg.bySelfPseudo(self)
				router.self = self
				continue
			}

			conn, ok := reattach(fd)
			if !ok {
				log.Debug("client %s (fd %d) dropped: socket did not survive re-exec", id, fd)
				continue
			}

			c := newClient(id, conn, fd)
			c.objectID = objectID
			c.subs.Restore(subs.Conditions())
			router.reg.addAnonymous(c)
			if !id.IsAnonymous() {
				router.reg.assignID(c)
			}
		}
	})
	if r.Err() != nil {
		return nil
	}
	return router
}

// Resume starts the reader/writer/multicast goroutines for every client
// restored by Unmarshal. Split from Unmarshal so a caller can finish
// restoring every other component (and decide the restore as a whole
// succeeded) before any client traffic starts flowing again.
func (router *Router) Resume() {
	go router.runMulticastLoop(router.self)
	for _, c := range router.reg.snapshot() {
		if c.isSelf() {
			continue
		}
		go router.runWriter(c)
		go router.runMulticastLoop(c)
	}
	router.Unquiesce()
}
