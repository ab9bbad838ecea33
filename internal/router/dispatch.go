package router

import (
	"strconv"
	"strings"

	"github.com/maandree/mds-sub000/internal/wire"
)

// Dispatch implements §4.D.2: inspect a freshly read message's control
// headers and either act on it directly (assign-id, intercept, modify
// reply) or forward it into the ordinary multicast path.
func (r *Router) Dispatch(origin *Client, m *wire.Message) {
	var command, modifying, modifyID string
	var hasCommand, hasModifying, hasModifyID bool
	wire.Pick(m.Headers,
		wire.Field{Name: "Command", Out: &command, Found: &hasCommand},
		wire.Field{Name: "Modifying", Out: &modifying, Found: &hasModifying},
		wire.Field{Name: "Modify ID", Out: &modifyID, Found: &hasModifyID},
	)

	switch {
	case hasCommand && command == "intercept":
		r.handleIntercept(origin, m)
		return

	case hasCommand && command == "assign-id":
		r.handleAssignID(origin, m)
		// falls through to multicast below, per §4.D.2 "regardless, continue"

	case hasModifying && modifying == "yes" && hasModifyID:
		r.handleModifyReply(modifyID, m)
		return
	}

	r.Multicast(origin, m)
}

// handleAssignID implements §4.D.2's assign-id branch: allocate an ID the
// first time a client asks (idempotent afterwards), register a self-
// targeting subscription so replies addressed "To: <id>" reach it, and
// reply directly — bypassing multicast entirely, since this reply is for
// origin alone.
func (r *Router) handleAssignID(origin *Client, m *wire.Message) {
	if origin.ID.IsAnonymous() {
		id, err := r.ids.AllocateClientID()
		if err != nil {
			log.Fatal("client id counter exhausted: %v", err)
		}
		origin.ID = id

		origin.mu.Lock()
		origin.subs.AddOrUpdate("To: "+id.String(), 0, false)
		origin.mu.Unlock()

		r.reg.assignID(origin)
	}

	reply := &wire.Message{Headers: wire.Headers{
		{Name: "ID assignment", Value: origin.ID.String()},
	}}
	if msgID, ok := m.Headers.Last("Message ID"); ok {
		reply.Headers = append(reply.Headers, wire.Header{Name: "In response to", Value: msgID})
	}
	origin.enqueueOutbound(reply)
}

// handleIntercept implements §4.C/§4.D.2: each non-empty line of the
// payload is a pattern; Priority/Modifying/Stop headers decorate all of
// them uniformly. An empty payload means the single catch-all pattern.
// "Stop: yes" removes the listed patterns instead of adding them.
func (r *Router) handleIntercept(origin *Client, m *wire.Message) {
	var priorityStr, modifyingStr, stopStr string
	wire.Pick(m.Headers,
		wire.Field{Name: "Priority", Out: &priorityStr},
		wire.Field{Name: "Modifying", Out: &modifyingStr},
		wire.Field{Name: "Stop", Out: &stopStr},
	)
	priority, _ := strconv.ParseInt(priorityStr, 10, 64)
	modifying := modifyingStr == "yes"
	stop := stopStr == "yes"

	patterns := splitPatterns(m.Payload)

	origin.mu.Lock()
	defer origin.mu.Unlock()
	for _, p := range patterns {
		if stop {
			origin.subs.Remove(p)
		} else {
			origin.subs.AddOrUpdate(p, priority, modifying)
		}
	}
}

func splitPatterns(payload []byte) []string {
	if len(payload) == 0 {
		return []string{""}
	}
	lines := strings.Split(string(payload), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// handleModifyReply implements the modify-rendezvous reply half of
// §4.D.4: look up the originator awaiting ticket and hand it the reply.
// A ticket with no registered originator means the wait already timed out
// or the originator disconnected; the reply is dropped, logged, nothing
// more.
func (r *Router) handleModifyReply(modifyID string, m *wire.Message) {
	ticket, err := strconv.ParseUint(modifyID, 10, 64)
	if err != nil {
		log.Debug("malformed Modify ID %q in reply, dropping", modifyID)
		return
	}
	originator, ok := r.rv.resolve(ticket)
	if !ok {
		log.Debug("modify reply for unknown/expired ticket %d, dropping", ticket)
		return
	}
	select {
	case originator.modCh <- m:
	default:
		log.Debug("modify reply for ticket %d arrived with one already pending, dropping", ticket)
	}
}
