package router

import (
	"net"
	"sort"
	"sync"

	"github.com/higebu/netfd"
)

// registry tracks every connected Client, indexed both by assigned ID and
// by the raw socket fd (§4.D.1's fd-keyed table, grounded on netfd's
// GetFdFromConn so the router can look a client up the way the C
// implementation's epoll loop did, by fd, rather than only by Go's opaque
// net.Conn).
type registry struct {
	mu   sync.Mutex
	byID map[ID]*Client
	byFD map[int]*Client
	anon []*Client // clients that have not yet requested an ID
}

func newRegistry() *registry {
	return &registry{
		byID: make(map[ID]*Client),
		byFD: make(map[int]*Client),
	}
}

func fdOf(conn net.Conn) int {
	if conn == nil {
		return -1
	}
	return netfd.GetFdFromConn(conn)
}

func (reg *registry) addAnonymous(c *Client) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.anon = append(reg.anon, c)
	if c.fd >= 0 {
		reg.byFD[c.fd] = c
	}
}

// assignID moves a client from the anonymous set into the ID-indexed table.
func (reg *registry) assignID(c *Client) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.byID[c.ID] = c
	for i, a := range reg.anon {
		if a == c {
			reg.anon = append(reg.anon[:i], reg.anon[i+1:]...)
			break
		}
	}
}

func (reg *registry) bySelfPseudo(c *Client) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.byID[c.ID] = c
}

func (reg *registry) remove(c *Client) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.byID, c.ID)
	if c.fd >= 0 {
		delete(reg.byFD, c.fd)
	}
	for i, a := range reg.anon {
		if a == c {
			reg.anon = append(reg.anon[:i], reg.anon[i+1:]...)
			break
		}
	}
}

func (reg *registry) lookupFD(fd int) (*Client, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	c, ok := reg.byFD[fd]
	return c, ok
}

func (reg *registry) lookupID(id ID) (*Client, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	c, ok := reg.byID[id]
	return c, ok
}

// snapshot returns every client currently registered (ID-assigned and
// anonymous), in a stable order, for the multicast matching scan (§4.D.3).
// Stable order matters only for tie-broken priority sort downstream; the
// scan itself treats the slice as a set.
func (reg *registry) snapshot() []*Client {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	out := make([]*Client, 0, len(reg.byID)+len(reg.anon))
	ids := make([]ID, 0, len(reg.byID))
	for id := range reg.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].High != ids[j].High {
			return ids[i].High < ids[j].High
		}
		return ids[i].Low < ids[j].Low
	})
	for _, id := range ids {
		out = append(out, reg.byID[id])
	}
	out = append(out, reg.anon...)
	return out
}
