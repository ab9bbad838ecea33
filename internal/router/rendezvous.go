package router

import "sync"

// rendezvous maps an in-flight modify ticket to the originator awaiting its
// reply (§4.D.4). A ticket is registered immediately before the modifying
// target is sent the message and removed as soon as that wait resolves, so
// at most one entry exists per concurrently-stalled multicast.
type rendezvous struct {
	mu      sync.Mutex
	pending map[uint64]*Client
}

func newRendezvous() *rendezvous {
	return &rendezvous{pending: make(map[uint64]*Client)}
}

func (rv *rendezvous) register(ticket uint64, originator *Client) {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	rv.pending[ticket] = originator
}

func (rv *rendezvous) resolve(ticket uint64) (*Client, bool) {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	c, ok := rv.pending[ticket]
	return c, ok
}

func (rv *rendezvous) remove(ticket uint64) {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	delete(rv.pending, ticket)
}
