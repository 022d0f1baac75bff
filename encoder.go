package archecs

// ActionEncoder is the handle passed into component hooks (OnDrop,
// OnReplace) and into query bodies that hold only a shared borrow of the
// World: it lets that code request structural changes (spawn, despawn,
// insert, remove) without needing exclusive access itself, by recording an
// Action to run later. It is the Go analogue of edict's ActionEncoder /
// LocalActionEncoder split, collapsed into one type that either writes into
// a private buffer (construct via NewActionEncoder) or forwards straight
// into a shared ActionChannel (construct via NewChannelActionEncoder), since
// Go's channels already give the MPSC behaviour edict's is_local flag exists
// to distinguish.
type ActionEncoder struct {
	buf *ActionBuffer
	ch  *ActionSender
}

// NewActionEncoder returns an encoder that records into buf.
func NewActionEncoder(buf *ActionBuffer) *ActionEncoder {
	return &ActionEncoder{buf: buf}
}

// NewChannelActionEncoder returns an encoder that forwards every action
// straight into ch, safe to share across goroutines.
func NewChannelActionEncoder(ch *ActionSender) *ActionEncoder {
	return &ActionEncoder{ch: ch}
}

// Push queues a deferred action.
func (e *ActionEncoder) Push(a Action) {
	if e == nil {
		return
	}
	if e.ch != nil {
		e.ch.Send(a)
		return
	}
	e.buf.Push(a)
}

// Spawn queues the creation of a new entity built from bundle, which must be
// one of the Bundle1..Bundle4/DynamicBundle values. It returns the id the
// entity will receive once the action executes (ids are pre-reserved via the
// World's EntitySet, so callers may reference it immediately in further
// queued actions even though storage does not exist yet).
func (e *ActionEncoder) Spawn(w *World, bundle bundleSpec) EntityID {
	loc := w.entities.Alloc()
	e.Push(func(w *World) {
		w.materializeReserved(loc.ID, bundle)
	})
	return loc.ID
}

// Despawn queues the removal of id.
func (e *ActionEncoder) Despawn(id EntityID) {
	e.Push(func(w *World) {
		w.Despawn(id)
	})
}

// Insert queues inserting bundle's components onto id.
func (e *ActionEncoder) Insert(id EntityID, bundle bundleSpec) {
	e.Push(func(w *World) {
		w.insertBundle(id, bundle, e)
	})
}

// Remove queues dropping the component identified by compID from id.
func (e *ActionEncoder) Remove(id EntityID, compID ComponentID) {
	e.Push(func(w *World) {
		w.removeComponent(id, compID, e)
	})
}

// Closure queues an arbitrary World mutation, for callers whose deferred
// work doesn't fit the spawn/insert/remove shape.
func (e *ActionEncoder) Closure(f func(w *World)) {
	e.Push(f)
}

// EncoderInsertRelation queues recording that origin relates to target via rel.
func EncoderInsertRelation[R Relation](e *ActionEncoder, origin EntityID, rel R, target EntityID) {
	e.Push(func(w *World) {
		InsertRelation(w, origin, rel, target)
	})
}

// EncoderDropRelation queues removing origin's instance of R.
func EncoderDropRelation[R Relation](e *ActionEncoder, origin EntityID) {
	e.Push(func(w *World) {
		RemoveRelation[R](w, origin)
	})
}

// EncoderInsertResource queues installing value as the Sync resource of type T.
func EncoderInsertResource[T any](e *ActionEncoder, value T) {
	e.Push(func(w *World) {
		InsertResource(w, value)
	})
}

// EncoderDropResource queues removing the Sync resource of type T.
func EncoderDropResource[T any](e *ActionEncoder) {
	e.Push(func(w *World) {
		RemoveResource[T](w)
	})
}

// LocalActionEncoder is a convenience wrapper pairing an ActionBuffer with
// the ActionEncoder view onto it, for call sites (like a system closure
// retained across frames) that want to own their buffer rather than thread
// an *ActionEncoder through separately.
type LocalActionEncoder struct {
	Buffer  *ActionBuffer
	Encoder *ActionEncoder
}

// NewLocalActionEncoder returns a fresh, empty local encoder.
func NewLocalActionEncoder() *LocalActionEncoder {
	buf := NewActionBuffer()
	return &LocalActionEncoder{Buffer: buf, Encoder: NewActionEncoder(buf)}
}
