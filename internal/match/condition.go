// Package match implements the subscription/interception condition list
// (§4.C): per-client patterns with priority and a modifying flag, kept
// with modifying conditions first so "does any modifier match?" is
// answerable by inspecting the first hit.
package match

import (
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/maandree/mds-sub000/internal/wire"
)

// Kind distinguishes the three pattern shapes a condition can hold.
type Kind int

const (
	// KindAll matches every message (pattern == "").
	KindAll Kind = iota
	// KindName matches any message containing a header named Name.
	KindName
	// KindNameValue matches a message with an exact "Name: value" header line.
	KindNameValue
)

// Condition is one subscription: a pattern plus routing metadata.
type Condition struct {
	Pattern   string
	Kind      Kind
	Name      string // for KindName / KindNameValue
	Value     string // for KindNameValue
	Priority  int64
	Modifying bool
	hash      [32]byte
}

// NewCondition classifies pattern into a Kind and precomputes its hash, per
// §3/§4.C: "" matches everything, "Name" matches any header named Name, and
// "Name: value" matches an exact header line. The hash accelerates Query's
// scan by letting it skip a byte comparison on a hash mismatch.
func NewCondition(pattern string, priority int64, modifying bool) Condition {
	c := Condition{Pattern: pattern, Priority: priority, Modifying: modifying}

	switch {
	case pattern == "":
		c.Kind = KindAll
	default:
		if i := strings.Index(pattern, ": "); i >= 0 {
			c.Kind = KindNameValue
			c.Name = pattern[:i]
			c.Value = pattern[i+2:]
		} else {
			c.Kind = KindName
			c.Name = pattern
		}
	}

	c.hash = blake2b.Sum256([]byte(pattern))
	return c
}

// candidateHashes computes, for one header, the hash of the two pattern
// forms it could satisfy ("Name" and "Name: value"), so Query can reject a
// condition with a single hash comparison before falling back to the exact
// byte comparison the spec requires as the matching authority.
func candidateHashes(h wire.Header) (nameHash, nameValueHash [32]byte) {
	return blake2b.Sum256([]byte(h.Name)), blake2b.Sum256([]byte(h.Name + ": " + h.Value))
}

// matches reports whether the condition matches a message's headers.
func (c Condition) matches(hs wire.Headers) bool {
	switch c.Kind {
	case KindAll:
		return true
	case KindName:
		for _, h := range hs {
			nameHash, _ := candidateHashes(h)
			if nameHash == c.hash && h.Name == c.Name {
				return true
			}
		}
		return false
	case KindNameValue:
		for _, h := range hs {
			_, nameValueHash := candidateHashes(h)
			if nameValueHash == c.hash && h.Name == c.Name && h.Value == c.Value {
				return true
			}
		}
		return false
	}
	return false
}
