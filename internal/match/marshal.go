package match

import "github.com/maandree/mds-sub000/internal/state"

// EnvelopeVersion is the marshal-record version tag for a condition list.
var EnvelopeVersion = state.MakeVersion(1, 0)

// Marshal appends l's conditions to w. Conditions are re-derived (Kind,
// Name, Value, hash) from Pattern on unmarshal via NewCondition rather than
// stored field-by-field, since they're a pure function of Pattern.
func (l *List) Marshal(w *state.Writer) {
	w.Envelope(EnvelopeVersion, func(w *state.Writer) {
		w.PutUint32(uint32(len(l.conditions)))
		for _, c := range l.conditions {
			w.PutString(c.Pattern)
			w.PutInt64(c.Priority)
			w.PutBool(c.Modifying)
		}
	})
}

// Unmarshal reconstructs a condition list written by Marshal.
func Unmarshal(r *state.Reader) *List {
	l := &List{}
	r.Envelope(EnvelopeVersion, func(r *state.Reader) {
		n := r.GetUint32()
		l.conditions = make([]Condition, 0, n)
		for i := uint32(0); i < n; i++ {
			pattern := r.GetString()
			priority := r.GetInt64()
			modifying := r.GetBool()
			l.conditions = append(l.conditions, NewCondition(pattern, priority, modifying))
		}
	})
	return l
}
