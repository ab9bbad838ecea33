package router

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ID is a client's 64-bit assigned identifier, displayed as two 32-bit
// halves "high:low" on the wire (§3, §6.2 "Client ID: <high>:<low>").
// The zero value is the anonymous ID ("0:0").
type ID struct {
	High uint32
	Low  uint32
}

func (id ID) String() string { return fmt.Sprintf("%d:%d", id.High, id.Low) }

func (id ID) IsAnonymous() bool { return id.High == 0 && id.Low == 0 }

// ParseID parses a "high:low" wire identifier.
func ParseID(s string) (ID, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ID{}, fmt.Errorf("router: malformed id %q", s)
	}
	high, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return ID{}, fmt.Errorf("router: malformed id %q: %w", s, err)
	}
	low, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return ID{}, fmt.Errorf("router: malformed id %q: %w", s, err)
	}
	return ID{High: uint32(high), Low: uint32(low)}, nil
}

// IDAllocator hands out client IDs and modify-rendezvous ticket IDs from
// two independent monotonic 64-bit counters (§3). The client counter is
// seeded at 1<<32 | 1 so the first allocation displays as "1:1" and only the
// low half advances under ordinary operation; a full wrap of the 64-bit
// counter (client or ticket) is the fatal invariant violation §3 and §7
// call for.
type IDAllocator struct {
	mu         sync.Mutex
	nextClient uint64
	nextTicket uint64
}

func NewIDAllocator() *IDAllocator {
	return &IDAllocator{nextClient: 1<<32 | 1, nextTicket: 1}
}

var ErrCounterOverflow = fmt.Errorf("router: id counter overflow")

// AllocateClientID returns the next client ID. ErrCounterOverflow is fatal
// per §3 ("Overflow is a fatal invariant violation").
func (a *IDAllocator) AllocateClientID() (ID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.nextClient == 0 {
		return ID{}, ErrCounterOverflow
	}
	v := a.nextClient
	a.nextClient++
	return ID{High: uint32(v >> 32), Low: uint32(v)}, nil
}

// AllocateTicket returns the next modify-rendezvous ticket ID. Multicasts
// from different originators may allocate concurrently; the counter is
// guarded by the allocator's mutex, so every ticket is distinct.
func (a *IDAllocator) AllocateTicket() (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.nextTicket == 0 {
		return 0, ErrCounterOverflow
	}
	v := a.nextTicket
	a.nextTicket++
	return v, nil
}

// Restore sets both counters directly, used when unmarshalling after re-exec.
func (a *IDAllocator) Restore(nextClient, nextTicket uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextClient = nextClient
	a.nextTicket = nextTicket
}

// Snapshot returns the current counter values, for marshalling.
func (a *IDAllocator) Snapshot() (nextClient, nextTicket uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nextClient, a.nextTicket
}
