package state

import "github.com/rs/xid"

// ObjectID is the small stable identifier assigned to an object at marshal
// time, replacing the C implementation's use of the object's memory address
// as its identity (§9, "marshal with address-as-identity"). It survives
// re-exec unchanged even though the Go object it names does not.
type ObjectID string

// NewObjectID mints a fresh marshal-time identity.
func NewObjectID() ObjectID {
	return ObjectID(xid.New().String())
}

// Remap tracks, for one unmarshal pass, the mapping from the ObjectIDs
// written by the old image to the freshly-allocated objects of the new
// image. A structure that referenced an object by ObjectID can be rewritten
// through this table once all objects have been reconstructed. The router's
// own Unmarshal does not use it: it restores clients by ID and fd.
type Remap[T any] struct {
	byID map[ObjectID]T
}

func NewRemap[T any]() *Remap[T] {
	return &Remap[T]{byID: make(map[ObjectID]T)}
}

// Bind records that id now identifies obj in the new image.
func (r *Remap[T]) Bind(id ObjectID, obj T) {
	r.byID[id] = obj
}

// Resolve looks up the new-image object for an ObjectID written by the old
// image. ok is false if id was never bound, which is an unmarshal defect
// (a reference into a table whose owning object never bound), not one this
// package recovers from.
func (r *Remap[T]) Resolve(id ObjectID) (obj T, ok bool) {
	obj, ok = r.byID[id]
	return
}
