package match

import "github.com/maandree/mds-sub000/internal/wire"

// List is one client's ordered condition list, kept with every modifying
// condition before every non-modifying one (§3 per-client invariant).
// Not safe for concurrent use; callers (internal/router) guard it with the
// owning client's own mutex.
type List struct {
	conditions []Condition
}

// AddOrUpdate implements §4.C: overwrite priority/modifying if pattern is
// already present, otherwise append; then restore the modifying-first
// invariant if the touched condition is now out of place.
func (l *List) AddOrUpdate(pattern string, priority int64, modifying bool) {
	for i := range l.conditions {
		if l.conditions[i].Pattern == pattern {
			l.conditions[i].Priority = priority
			l.conditions[i].Modifying = modifying
			l.fixInvariant(i)
			return
		}
	}

	l.conditions = append(l.conditions, NewCondition(pattern, priority, modifying))
	l.fixInvariant(len(l.conditions) - 1)
}

// fixInvariant moves the condition at idx ahead of the first non-modifying
// condition if idx is modifying and conditions before it are not.
func (l *List) fixInvariant(idx int) {
	if !l.conditions[idx].Modifying {
		return
	}
	for i := 0; i < idx; i++ {
		if !l.conditions[i].Modifying {
			l.conditions[i], l.conditions[idx] = l.conditions[idx], l.conditions[i]
			return
		}
	}
}

// Remove drops the condition matching pattern exactly, if any.
func (l *List) Remove(pattern string) {
	for i := range l.conditions {
		if l.conditions[i].Pattern == pattern {
			l.conditions = append(l.conditions[:i], l.conditions[i+1:]...)
			return
		}
	}
}

// Query returns the first matching condition's priority and modifying flag.
// Because modifying conditions always precede non-modifying ones, a true
// modifying result here means "some modifying subscription matches",
// answering §4.C's "any modifier matches?" question without a second scan.
func (l *List) Query(hs wire.Headers) (matched bool, priority int64, modifying bool) {
	for _, c := range l.conditions {
		if !c.matches(hs) {
			continue
		}
		return true, c.Priority, c.Modifying
	}
	return false, 0, false
}

// Len reports how many conditions are registered.
func (l *List) Len() int { return len(l.conditions) }

// Conditions returns the live condition list, for marshalling.
func (l *List) Conditions() []Condition { return l.conditions }

// Restore replaces the condition list wholesale, used when unmarshalling a
// client after re-exec.
func (l *List) Restore(cs []Condition) { l.conditions = cs }
