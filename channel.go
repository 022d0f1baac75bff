package archecs

// ActionChannel is a multi-producer, single-consumer queue of deferred
// Actions, letting any number of goroutines holding only a shared borrow of
// the World queue structural changes concurrently. edict backs this with a
// hand-rolled atomically-swapped ring buffer ("FlipQueue") because Rust has
// no built-in MPSC primitive in its core/alloc-only API; Go's native chan
// already is an MPSC queue with blocking and buffering built in, so
// ActionChannel is a thin, idiomatic wrapper rather than a reimplementation.
type ActionChannel struct {
	actions chan Action
}

// NewActionChannel returns a channel buffered for capacity pending actions
// before a Send blocks. A capacity of 0 makes Send synchronous with Drain.
func NewActionChannel(capacity int) *ActionChannel {
	return &ActionChannel{actions: make(chan Action, capacity)}
}

// Sender returns a handle producers use to push actions; it carries no
// receive capability, matching the MPSC shape (many senders, one drainer).
func (c *ActionChannel) Sender() *ActionSender {
	return &ActionSender{ch: c.actions}
}

// Drain removes and returns every action currently queued without blocking.
// Actions sent concurrently with a Drain call may or may not be included;
// none are lost.
func (c *ActionChannel) Drain() []Action {
	var out []Action
	for {
		select {
		case a := <-c.actions:
			out = append(out, a)
		default:
			return out
		}
	}
}

// Execute drains and immediately runs every pending action against w.
func (c *ActionChannel) Execute(w *World) {
	for _, a := range c.Drain() {
		a(w)
	}
}

// ActionSender is the producer handle for an ActionChannel.
type ActionSender struct {
	ch chan<- Action
}

// Send queues a, blocking only if the channel's buffer is full.
func (s *ActionSender) Send(a Action) {
	s.ch <- a
}
