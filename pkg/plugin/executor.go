package plugin

import "github.com/kmdouglass/kpal/pkg/value"

// RequestQueueDepth bounds the per-peripheral request channel. A full queue
// backpressures the dispatch layer's request-handler goroutine rather than
// growing without bound.
const RequestQueueDepth = 32

// Executor owns one plugin instance exclusively and is the only goroutine
// ever allowed to call into it. It reads requests off its channel in order,
// processes each to completion, and answers on the reply channel carried in
// the request before moving to the next one.
type Executor struct {
	invoker Invoker
	attrs   map[uint32]value.Tag // attribute id -> declared variant, fixed at construction
	reqs    chan Request
	done    chan struct{}
}

// NewExecutor returns an Executor bound to invoker and spawns its worker
// goroutine. attrs must contain the declared variant for every attribute ID
// the plugin reported at discovery time; it never changes after construction
// since the plugin's attribute set is fixed once instantiated.
func NewExecutor(invoker Invoker, attrs map[uint32]value.Tag) *Executor {
	e := &Executor{
		invoker: invoker,
		attrs:   attrs,
		reqs:    make(chan Request, RequestQueueDepth),
		done:    make(chan struct{}),
	}
	go e.run()
	return e
}

// Transmitter returns the sending endpoint of this executor's request
// channel, the value the dispatch layer records in its transmitter map.
func (e *Executor) Transmitter() Transmitter { return e.reqs }

// Send enqueues req on the executor's channel. Requests are processed FIFO;
// Send itself never blocks on the reply.
func (e *Executor) Send(req Request) { e.reqs <- req }

// Close closes the request channel, signalling the executor to free its
// plugin instance and exit once any already-queued requests have drained.
// Close does not wait for the executor to finish; callers that need to
// observe completion should wait on Done.
func (e *Executor) Close() { close(e.reqs) }

// Done returns a channel that is closed once the executor has called
// Plugin.free and exited its run loop.
func (e *Executor) Done() <-chan struct{} { return e.done }

// run is the executor's worker loop: the only place plugin_data is ever
// touched. It processes every request serially and frees the plugin exactly
// once, whether exit is triggered by a Shutdown request or by the channel
// being closed out from under it.
func (e *Executor) run() {
	defer close(e.done)
	defer e.invoker.Free()

	for req := range e.reqs {
		switch req.Kind {
		case KindGetAttribute:
			e.handleGetAttribute(req)
		case KindGetAttributes:
			e.handleGetAttributes(req)
		case KindSetAttribute:
			e.handleSetAttribute(req)
		case KindShutdown:
			e.reply(req, Reply{})
			return
		}
	}
}

func (e *Executor) handleGetAttribute(req Request) {
	v, err := e.invoker.AttributeValue(req.AttributeID)
	if err != nil {
		e.reply(req, Reply{Err: err})
		return
	}
	e.reply(req, Reply{Attribute: AttributeSnapshot{ID: req.AttributeID, Value: v}})
}

func (e *Executor) handleGetAttributes(req Request) {
	out := make([]AttributeSnapshot, 0, len(e.attrs))
	for id := range e.attrs {
		v, err := e.invoker.AttributeValue(id)
		if err != nil {
			e.reply(req, Reply{Err: err})
			return
		}
		out = append(out, AttributeSnapshot{ID: id, Value: v})
	}
	e.reply(req, Reply{Attributes: out})
}

func (e *Executor) handleSetAttribute(req Request) {
	if declared, ok := e.attrs[req.AttributeID]; !ok {
		e.reply(req, Reply{Err: &Error{Code: CodeAttributeDoesNotExist, Message: "no such attribute"}})
		return
	} else if req.checkExpected && declared != req.Value.Tag {
		e.reply(req, Reply{Err: &Error{Code: CodeAttributeTypeMismatch, Message: "value variant does not match attribute's declared variant"}})
		return
	}

	if err := e.invoker.SetAttributeValue(req.AttributeID, req.Value); err != nil {
		e.reply(req, Reply{Err: err})
		return
	}

	// Post-condition observation: the caller sees what the hardware
	// accepted, not the value it asked for.
	v, err := e.invoker.AttributeValue(req.AttributeID)
	if err != nil {
		e.reply(req, Reply{Err: err})
		return
	}
	e.reply(req, Reply{Attribute: AttributeSnapshot{ID: req.AttributeID, Value: v}})
}

// reply answers req exactly once. Reply channels are required to be
// buffered with capacity 1 (see NewReplyChan), so this send never blocks the
// executor regardless of whether the original caller is still listening: a
// caller that gave up simply never drains the buffer, and the channel and
// its one queued value are reclaimed once it goes out of scope.
func (e *Executor) reply(req Request, r Reply) {
	if req.Reply == nil {
		return
	}
	req.Reply <- r
}
