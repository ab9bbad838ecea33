// Package state implements the versioned byte-level marshalling substrate
// (§4.B) shared by every component that must survive a re-exec: a typed
// cursor over a growing buffer on the write side and over a fixed slice on
// the read side, plus the shared-memory transport used to hand the
// marshalled blob from the old process image to the new one.
//
// Encoding is little-endian on every host; the only requirement (§4.B) is
// that it be stable across the re-exec of a single running binary, which a
// fixed byte order trivially satisfies.
package state

import (
	"encoding/binary"
	"fmt"
)

// Writer appends typed fields to a growing byte buffer.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }

func (w *Writer) PutUint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutInt64(v int64) { w.PutUint64(uint64(v)) }

func (w *Writer) PutBool(v bool) {
	if v {
		w.PutUint8(1)
	} else {
		w.PutUint8(0)
	}
}

// PutBytes writes a length-prefixed byte slice.
func (w *Writer) PutBytes(v []byte) {
	w.PutUint32(uint32(len(v)))
	w.buf = append(w.buf, v...)
}

// PutString writes a length-prefixed UTF-8 string.
func (w *Writer) PutString(v string) {
	w.PutBytes([]byte(v))
}

// Envelope writes a versioned envelope tag, then invokes body to write the
// payload, per §4.B "every composite type emits a 32-bit version tag
// first". Version tags are packed `major<<16 | minor` so Reader.Envelope
// can apply go-version's forward-compatible-minor-bump policy (§7).
func (w *Writer) Envelope(version uint32, body func(*Writer)) {
	w.PutUint32(version)
	body(w)
}

// Reader reads typed fields off a fixed byte slice, advancing as it goes.
type Reader struct {
	buf []byte
	pos int
	err error
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Err returns the first error encountered, if any (short read, bad bounds).
func (r *Reader) Err() error { return r.err }

// Remaining reports how many bytes are left unread.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("state: short read: need %d bytes, have %d", n, len(r.buf)-r.pos)
		return false
	}
	return true
}

func (r *Reader) GetUint8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *Reader) GetUint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

func (r *Reader) GetUint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v
}

func (r *Reader) GetInt64() int64 { return int64(r.GetUint64()) }

func (r *Reader) GetBool() bool { return r.GetUint8() != 0 }

func (r *Reader) GetBytes() []byte {
	n := r.GetUint32()
	if !r.need(int(n)) {
		return nil
	}
	v := make([]byte, n)
	copy(v, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return v
}

func (r *Reader) GetString() string { return string(r.GetBytes()) }

// Envelope reads the version tag and hands the remaining reader to body iff
// compat accepts the tag found against want; otherwise it records an error
// and does not invoke body.
func (r *Reader) Envelope(want uint32, body func(*Reader)) {
	got := r.GetUint32()
	if r.err != nil {
		return
	}
	if err := CheckCompatible(want, got); err != nil {
		r.err = err
		return
	}
	body(r)
}
