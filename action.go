package archecs

// Action is a single deferred structural mutation: a closure over the exact
// change to apply, run later against a fully exclusive *World. This is the
// Go rendering of spec.md's ActionBuffer: the teacher's world (and Rust's
// edict) sometimes inline small tagged variants to dodge an allocation, but
// in Go a closure is already a single allocation regardless of what it
// captures, so a plain function value carries no extra cost over a
// hand-rolled enum and is far less code to maintain.
type Action func(w *World)

// ActionBuffer accumulates Actions for later replay. It is not safe for
// concurrent use; concurrent producers should each hold their own
// ActionBuffer (via LocalActionEncoder) or send through an ActionChannel.
type ActionBuffer struct {
	actions []Action
}

// NewActionBuffer returns an empty buffer.
func NewActionBuffer() *ActionBuffer {
	return &ActionBuffer{}
}

// Push appends a deferred action.
func (b *ActionBuffer) Push(a Action) {
	b.actions = append(b.actions, a)
}

// Len reports how many actions are queued.
func (b *ActionBuffer) Len() int { return len(b.actions) }

// Drain removes and returns every queued action as an independent snapshot,
// resetting the buffer to empty with a fresh backing array. Callers that want
// nested actions recorded during replay to run in the same pass should use
// Execute instead: Drain alone cannot see further Pushes made while its
// result is being replayed.
func (b *ActionBuffer) Drain() []Action {
	out := b.actions
	b.actions = nil
	return out
}

// Execute runs every queued action against w, in FIFO order, until the buffer
// is empty, then leaves it empty. Actions that themselves Push further
// actions (e.g. an OnDrop hook recording another despawn through an
// ActionEncoder) are appended to the same buffer and are therefore executed
// within this same pass, never deferred to a later Execute call — this is
// the one place a snapshot-then-range would be wrong, since the snapshot's
// backing array must never alias the live buffer still being appended to.
func (b *ActionBuffer) Execute(w *World) {
	for len(b.actions) > 0 {
		a := b.actions[0]
		b.actions = b.actions[1:]
		a(w)
	}
	b.actions = nil
}
