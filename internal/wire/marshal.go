package wire

import "github.com/maandree/mds-sub000/internal/state"

// EnvelopeVersion is the marshal-record version tag for a Message,
// including the partial in-progress read buffer of a Reader.
var EnvelopeVersion = state.MakeVersion(1, 0)

// MarshalSize returns the number of bytes Marshal will write for m.
func MarshalSize(m *Message) int {
	w := state.NewWriter()
	Marshal(w, m)
	return w.Len()
}

// Marshal appends m's versioned marshal record to w.
func Marshal(w *state.Writer, m *Message) {
	w.Envelope(EnvelopeVersion, func(w *state.Writer) {
		w.PutUint32(uint32(len(m.Headers)))
		for _, h := range m.Headers {
			w.PutString(h.Name)
			w.PutString(h.Value)
		}
		w.PutBytes(m.Payload)
	})
}

// Unmarshal reads a Message marshalled by Marshal.
func Unmarshal(r *state.Reader) *Message {
	m := &Message{}
	r.Envelope(EnvelopeVersion, func(r *state.Reader) {
		n := r.GetUint32()
		m.Headers = make(Headers, 0, n)
		for i := uint32(0); i < n; i++ {
			name := r.GetString()
			value := r.GetString()
			m.Headers = append(m.Headers, Header{Name: name, Value: value})
		}
		m.Payload = r.GetBytes()
	})
	return m
}

// MarshalReaderState appends the partial read state of an in-flight Reader
// (its pending bytes and parse stage) so a connection mid-frame at re-exec
// time resumes exactly where it left off instead of losing the partial
// message (§4.A "marshal-size / marshal / unmarshal (message) — for
// re-exec, including the partial read buffer").
func MarshalReaderState(w *state.Writer, r *Reader) {
	w.Envelope(EnvelopeVersion, func(w *state.Writer) {
		w.PutUint32(uint32(r.stage))
		w.PutBytes(r.buf)
		w.PutUint32(uint32(len(r.headers)))
		for _, h := range r.headers {
			w.PutString(h.Name)
			w.PutString(h.Value)
		}
		w.PutUint32(uint32(r.payloadLen))
		w.PutUint32(uint32(r.payloadSeen))
		w.PutBytes(r.payload)
	})
}

// UnmarshalReaderState reconstructs a Reader from bytes written by
// MarshalReaderState.
func UnmarshalReaderState(r *state.Reader) *Reader {
	out := &Reader{}
	r.Envelope(EnvelopeVersion, func(r *state.Reader) {
		out.stage = int(r.GetUint32())
		out.buf = r.GetBytes()
		n := r.GetUint32()
		out.headers = make(Headers, 0, n)
		for i := uint32(0); i < n; i++ {
			name := r.GetString()
			value := r.GetString()
			out.headers = append(out.headers, Header{Name: name, Value: value})
		}
		out.payloadLen = int(r.GetUint32())
		out.payloadSeen = int(r.GetUint32())
		out.payload = r.GetBytes()
	})
	return out
}
