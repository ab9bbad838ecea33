package router

import (
	"net"
	"sync"

	"github.com/maandree/mds-sub000/internal/match"
	"github.com/maandree/mds-sub000/internal/state"
	"github.com/maandree/mds-sub000/internal/wire"
)

// Client is one connected peer: its assigned ID, its subscription list, and
// the two queues a writer task and a dedicated multicast task drain
// independently (§4.D.1).
type Client struct {
	objectID state.ObjectID // marshal-time identity, stable across re-exec

	ID   ID
	conn net.Conn
	fd   int // -1 for the router's own pseudo-client

	mu   sync.Mutex
	subs match.List
	open bool

	outbound       chan []byte
	multicastQueue chan *multicastJob

	// modCh carries a modify-rendezvous reply addressed to this client as
	// originator. Buffered 1: §4.D.4 only ever has one ticket in flight per
	// originator, since a multicast waits for each modifying target's reply
	// before moving to the next.
	modCh chan *wire.Message

	// selfSink, if non-nil, marks this as the router's own pseudo-client
	// (§4.D.5): deliveries matching its subscriptions are handed to selfSink
	// instead of written to a socket.
	selfSink func(*wire.Message)
}

func newClient(id ID, conn net.Conn, fd int) *Client {
	return &Client{
		ID:             id,
		conn:           conn,
		fd:             fd,
		objectID:       state.NewObjectID(),
		open:           true,
		outbound:       make(chan []byte, 64),
		multicastQueue: make(chan *multicastJob, 64),
		modCh:          make(chan *wire.Message, 1),
	}
}

func newSelfClient(id ID, sink func(*wire.Message)) *Client {
	c := newClient(id, nil, -1)
	c.selfSink = sink
	return c
}

func (c *Client) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Client) isSelf() bool { return c.selfSink != nil }

// enqueueOutbound hands m to the client's writer (or self sink). It never
// blocks forever: the outbound channel is large enough that a slow client
// backs up its own queue rather than stalling the deliverer, matching
// §4.D.4's requirement that one stalled target must not starve the others
// once its own modify wait (if any) has been satisfied.
func (c *Client) enqueueOutbound(m *wire.Message) {
	if c.isSelf() {
		c.selfSink(m)
		return
	}
	buf := wire.Compose(m, make([]byte, 0, wire.ComposeSize(m)))
	select {
	case c.outbound <- buf:
	default:
		// Queue full: drop the oldest rather than block the deliverer
		// indefinitely, then retry once.
		select {
		case <-c.outbound:
		default:
		}
		c.outbound <- buf
	}
}

func (c *Client) markClosed() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}
