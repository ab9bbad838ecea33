// Package wire implements the frame codec: the text-headers-plus-binary-
// payload message format clients and the router exchange over a Unix
// domain connection, and the incremental reader that assembles one from an
// arbitrary sequence of socket reads.
//
// Framing rules (grounded on mds-message.c): each header is an ASCII line
// "Name: value" terminated by LF, followed by a blank line, followed by
// exactly N payload bytes where N comes from a "Length:" header (0 if
// absent). No CR is ever emitted or expected.
package wire

// Header is a single "Name: value" line, split for router inspection while
// the original line ordering and opaque forwarding semantics are preserved.
type Header struct {
	Name  string
	Value string
}

// Line renders the header back to its wire form, without the trailing LF.
func (h Header) Line() string {
	return h.Name + ": " + h.Value
}

// Headers is an ordered list of headers, duplicates allowed. Only the
// router's control headers (Command, Message ID, Client ID, To, In
// response to, Length, Modify ID, Modifying, Stop, Priority, Modify) are
// ever interpreted; everything else is opaque cargo forwarded byte for
// byte in the order it arrived.
type Headers []Header

// First returns the value of the first header named name. Later
// occurrences override earlier ones only in the router's own control-
// header lookups, which call Last instead (§4.A "later headers override
// earlier ones only for router-interpreted control headers").
func (hs Headers) First(name string) (string, bool) {
	for _, h := range hs {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// Last returns the value of the last header named name. Router dispatch
// uses this for control headers so a client may correct itself by
// repeating a header later in the same message.
func (hs Headers) Last(name string) (string, bool) {
	value, ok := "", false
	for _, h := range hs {
		if h.Name == name {
			value, ok = h.Value, true
		}
	}
	return value, ok
}

// Has reports whether any header is named name.
func (hs Headers) Has(name string) bool {
	_, ok := hs.First(name)
	return ok
}

// Field is one (name, out) pair for Pick: the generalized cherry-pick
// helper replacing the source's per-variant variadic scans (§9, "Varargs
// header cherry-pick"). Found is set true iff the header was present.
type Field struct {
	Name  string
	Out   *string
	Found *bool
}

// Pick extracts the last occurrence of each named field from hs in a
// single linear pass. Header lists in this protocol are small (O(1) to
// O(10) per §2's sizing note), so a single scan beats building an index.
func Pick(hs Headers, fields ...Field) {
	for i := range fields {
		if fields[i].Found != nil {
			*fields[i].Found = false
		}
	}
	for _, h := range hs {
		for i := range fields {
			if h.Name == fields[i].Name {
				*fields[i].Out = h.Value
				if fields[i].Found != nil {
					*fields[i].Found = true
				}
			}
		}
	}
}

// Message is one framed message: ordered headers plus an exact-length
// payload.
type Message struct {
	Headers Headers
	Payload []byte
}

// Length returns the message's declared/implied payload length.
func (m *Message) Length() int {
	return len(m.Payload)
}

// WithoutHeader returns a copy of m with every header named name removed,
// used when stripping the router-injected "Modify ID:" prefix before
// delivery to a non-modifying subscriber (§4.D.4).
func (m *Message) WithoutHeader(name string) *Message {
	out := &Message{Payload: m.Payload}
	for _, h := range m.Headers {
		if h.Name != name {
			out.Headers = append(out.Headers, h)
		}
	}
	return out
}

// WithHeaderPrepended returns a copy of m with h inserted as the first header.
func (m *Message) WithHeaderPrepended(h Header) *Message {
	out := &Message{
		Headers: make(Headers, 0, len(m.Headers)+1),
		Payload: m.Payload,
	}
	out.Headers = append(out.Headers, h)
	out.Headers = append(out.Headers, m.Headers...)
	return out
}

// WithPayload returns a copy of m with its payload replaced, headers
// (including any Length:) left exactly as they were — §4.D.4 says "the
// header block before the payload is preserved" on a modify-rewrite; the
// caller is responsible for also patching Length:, since Compose writes the
// headers exactly as stored.
func (m *Message) WithPayload(p []byte) *Message {
	return &Message{Headers: m.Headers, Payload: p}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
