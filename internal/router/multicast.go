package router

import (
	"sort"
	"strconv"

	"github.com/maandree/mds-sub000/internal/wire"
)

// target is one multicast recipient, already decorated with the priority
// and modifying flag its own matching subscription carried.
type target struct {
	client    *Client
	priority  int64
	modifying bool
}

// multicastJob is one message working its way through every matching
// target, in priority order, on its originator's dedicated multicast
// goroutine.
type multicastJob struct {
	message *wire.Message
	targets []target
}

// Multicast implements §4.D.3: snapshot every other connected client
// (the router's own pseudo-client is also a candidate for the notices it
// originates), query each one's subscription list under its own lock, sort
// the matches by descending priority (ties broken by registry snapshot
// order: ID-assigned clients by ascending ID, then anonymous clients in
// connection order — §9 open question), and hand the resulting job to
// origin's own multicast goroutine so delivery for this origin is
// strictly ordered relative to any other message it has already sent.
func (r *Router) Multicast(origin *Client, m *wire.Message) {
	clients := r.reg.snapshot()

	matches := make([]target, 0, len(clients))
	for _, c := range clients {
		if (c == origin && !c.isSelf()) || !c.isOpen() {
			continue
		}
		c.mu.Lock()
		matched, priority, modifying := c.subs.Query(m.Headers)
		c.mu.Unlock()
		if matched {
			matches = append(matches, target{client: c, priority: priority, modifying: modifying})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].priority > matches[j].priority })

	job := &multicastJob{message: m, targets: matches}
	if r.metrics != nil {
		r.metrics.MulticastQueued()
	}

	select {
	case origin.multicastQueue <- job:
	case <-r.done:
	}
}

// deliverMulticast drives one job to completion: deliver to each target in
// order, and when a target's subscription is modifying, stall on the
// modify-rendezvous protocol (§4.D.4) before moving to the next target.
func (r *Router) deliverMulticast(origin *Client, job *multicastJob) {
	if r.metrics != nil {
		defer r.metrics.MulticastDequeued()
	}

	msg := job.message
	for _, t := range job.targets {
		if !t.client.isOpen() {
			continue
		}

		if !t.modifying {
			t.client.enqueueOutbound(msg.WithoutHeader("Modify ID"))
			continue
		}

		ticket, err := r.ids.AllocateTicket()
		if err != nil {
			log.Fatal("modify ticket counter exhausted: %v", err)
		}
		outgoing := msg.WithoutHeader("Modify ID").WithHeaderPrepended(wire.Header{
			Name: "Modify ID", Value: strconv.FormatUint(ticket, 10),
		})

		r.rv.register(ticket, origin)
		if r.metrics != nil {
			r.metrics.TicketOpened()
		}
		t.client.enqueueOutbound(outgoing)

		reply, abandoned := r.waitForModifyReply(origin)
		r.rv.remove(ticket)
		if r.metrics != nil {
			r.metrics.TicketClosed()
		}

		if abandoned {
			log.Debug("modify wait for ticket %d abandoned (shutdown)", ticket)
			return
		}

		modifyFlag, _ := reply.Headers.Last("Modify")
		if modifyFlag != "yes" {
			continue
		}
		if len(reply.Payload) == 0 {
			// Consume (§4.D.4 item 4): stop delivering to any later target.
			return
		}
		// Keep the header block, but declare the new payload's length so
		// later targets read the rewritten payload whole.
		rewritten := msg.WithPayload(reply.Payload)
		rewritten.Headers = make(wire.Headers, 0, len(msg.Headers)+1)
		hasLength := false
		for _, h := range msg.Headers {
			if h.Name == "Length" {
				h.Value = strconv.Itoa(len(reply.Payload))
				hasLength = true
			}
			rewritten.Headers = append(rewritten.Headers, h)
		}
		if !hasLength {
			rewritten.Headers = append(rewritten.Headers, wire.Header{Name: "Length", Value: strconv.Itoa(len(reply.Payload))})
		}
		msg = rewritten
	}
}
