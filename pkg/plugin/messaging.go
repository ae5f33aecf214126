package plugin

import "github.com/kmdouglass/kpal/pkg/value"

// Kind identifies which operation a Request carries.
type Kind int

const (
	// KindGetAttribute fetches one attribute's current value by ID.
	KindGetAttribute Kind = iota
	// KindGetAttributes fetches every attribute's current value.
	KindGetAttributes
	// KindSetAttribute writes a value to one attribute by ID.
	KindSetAttribute
	// KindShutdown asks the executor to free its plugin instance and exit.
	// It is the only request kind with no meaningful reply payload.
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindGetAttribute:
		return "get_attribute"
	case KindGetAttributes:
		return "get_attributes"
	case KindSetAttribute:
		return "set_attribute"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Request is one unit of work sent to a peripheral's executor. Reply is a
// one-shot channel the executor answers on exactly once before moving to
// the next queued request; if nothing ever receives from it, the executor
// still completes the work and the reply is silently discarded.
type Request struct {
	Kind           Kind
	AttributeID    uint32
	Value          value.Value
	ExpectedTag    value.Tag
	checkExpected  bool
	Reply          chan<- Reply
}

// NewGetAttribute builds a request for one attribute's current value.
func NewGetAttribute(id uint32, reply chan<- Reply) Request {
	return Request{Kind: KindGetAttribute, AttributeID: id, Reply: reply}
}

// NewGetAttributes builds a request for every attribute's current value.
func NewGetAttributes(reply chan<- Reply) Request {
	return Request{Kind: KindGetAttributes, Reply: reply}
}

// NewSetAttribute builds a write request. expected is the attribute's
// declared variant as the caller knows it and is carried as ExpectedTag; the
// executor checks v's variant against the variant it recorded for the
// attribute at discovery before it ever calls into the plugin.
func NewSetAttribute(id uint32, v value.Value, expected value.Tag, reply chan<- Reply) Request {
	return Request{Kind: KindSetAttribute, AttributeID: id, Value: v, ExpectedTag: expected, checkExpected: true, Reply: reply}
}

// NewShutdown builds a shutdown request. reply may be nil: shutdown's
// completion is observed by the caller via the executor's done channel, not
// via a reply value.
func NewShutdown(reply chan<- Reply) Request {
	return Request{Kind: KindShutdown, Reply: reply}
}

// Reply carries exactly one of a result or an error back to the caller that
// sent a Request.
type Reply struct {
	Attribute  AttributeSnapshot
	Attributes []AttributeSnapshot
	Err        error
}

// AttributeSnapshot is the value the executor returns for a GetAttribute,
// GetAttributes, or SetAttribute reply: id, current value, and variant as
// observed on this call. Unlike the registry's cached metadata, this is
// always the result of a fresh plugin call.
type AttributeSnapshot struct {
	ID    uint32
	Value value.Value
}

// Transmitter is the sending endpoint of a peripheral's request channel,
// the cheap value type the dispatch layer clones into its transmitter map.
type Transmitter chan<- Request

// NewReplyChan returns a reply channel for a single request. It must be
// buffered with capacity 1: the executor's reply send must never block, even
// if the caller that issued the request has already given up waiting.
func NewReplyChan() chan Reply { return make(chan Reply, 1) }
