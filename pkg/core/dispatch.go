package core

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/kmdouglass/kpal/pkg/metrics"
	"github.com/kmdouglass/kpal/pkg/plugin"
	"github.com/kmdouglass/kpal/pkg/value"
)

// Dispatcher resolves peripheral ids against the registries and routes
// attribute operations to the right executor via its transmitter, blocking
// the calling goroutine on the reply. List and metadata queries are
// answered directly from the registries and never touch the transmitter
// map.
type Dispatcher struct {
	libraries   *LibraryRegistry
	peripherals *PeripheralRegistry

	mu           sync.RWMutex
	transmitters map[uint32]plugin.Transmitter
}

// NewDispatcher returns a Dispatcher bound to the given registries.
func NewDispatcher(libraries *LibraryRegistry, peripherals *PeripheralRegistry) *Dispatcher {
	return &Dispatcher{
		libraries:    libraries,
		peripherals:  peripherals,
		transmitters: make(map[uint32]plugin.Transmitter),
	}
}

// Register records t as the transmitter for peripheralID. It is inserted
// exactly once per peripheral, at creation time, and never removed.
func (d *Dispatcher) Register(peripheralID uint32, t plugin.Transmitter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transmitters[peripheralID] = t
}

func (d *Dispatcher) transmitter(peripheralID uint32) (plugin.Transmitter, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.transmitters[peripheralID]
	return t, ok
}

// GetAttribute resolves peripheralID and attributeID, then blocks on the
// owning executor's reply. ctx, if it carries a deadline, is honored as a
// dispatch-level timeout: the request remains queued in the executor (it is
// never cancelled), but the caller gets back ErrTimeout instead of waiting
// indefinitely.
func (d *Dispatcher) GetAttribute(ctx context.Context, peripheralID, attributeID uint32) (value.Value, error) {
	if _, ok := d.peripherals.Get(peripheralID); !ok {
		return value.Value{}, ErrNotFound
	}
	t, ok := d.transmitter(peripheralID)
	if !ok {
		return value.Value{}, ErrNotFound
	}

	defer observe(peripheralID, plugin.KindGetAttribute, time.Now())

	reply := plugin.NewReplyChan()
	t <- plugin.NewGetAttribute(attributeID, reply)

	r, err := awaitReply(ctx, reply)
	if err != nil {
		recordStatus(peripheralID, plugin.KindGetAttribute, err)
		return value.Value{}, err
	}
	recordStatus(peripheralID, plugin.KindGetAttribute, r.Err)
	return r.Attribute.Value, r.Err
}

// GetAttributes resolves peripheralID and returns every attribute's current
// value, blocking on the owning executor.
func (d *Dispatcher) GetAttributes(ctx context.Context, peripheralID uint32) ([]plugin.AttributeSnapshot, error) {
	if _, ok := d.peripherals.Get(peripheralID); !ok {
		return nil, ErrNotFound
	}
	t, ok := d.transmitter(peripheralID)
	if !ok {
		return nil, ErrNotFound
	}

	defer observe(peripheralID, plugin.KindGetAttributes, time.Now())

	reply := plugin.NewReplyChan()
	t <- plugin.NewGetAttributes(reply)

	r, err := awaitReply(ctx, reply)
	if err != nil {
		recordStatus(peripheralID, plugin.KindGetAttributes, err)
		return nil, err
	}
	recordStatus(peripheralID, plugin.KindGetAttributes, r.Err)
	return r.Attributes, r.Err
}

// SetAttribute resolves peripheralID and attributeID, sends v together with
// the attribute's declared variant to the owning executor (which rejects a
// mismatched variant before entering the plugin), and blocks on its reply.
// The reply carries the post-write value the plugin reported, not v itself.
func (d *Dispatcher) SetAttribute(ctx context.Context, peripheralID, attributeID uint32, v value.Value) (value.Value, error) {
	p, ok := d.peripherals.Get(peripheralID)
	if !ok {
		return value.Value{}, ErrNotFound
	}
	attr, ok := p.AttributeByID(attributeID)
	if !ok {
		return value.Value{}, ErrNotFound
	}
	t, ok := d.transmitter(peripheralID)
	if !ok {
		return value.Value{}, ErrNotFound
	}

	defer observe(peripheralID, plugin.KindSetAttribute, time.Now())

	reply := plugin.NewReplyChan()
	t <- plugin.NewSetAttribute(attributeID, v, attr.Variant, reply)

	r, err := awaitReply(ctx, reply)
	if err != nil {
		recordStatus(peripheralID, plugin.KindSetAttribute, err)
		return value.Value{}, err
	}
	recordStatus(peripheralID, plugin.KindSetAttribute, r.Err)
	return r.Attribute.Value, r.Err
}

// Shutdown asks every registered peripheral's executor to free its plugin
// instance and exit. It does not wait for them to finish; callers that need
// to join wait on each Executor's Done channel, as Engine.Stop does.
func (d *Dispatcher) Shutdown() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, t := range d.transmitters {
		close(t)
	}
}

// ErrTimeout is returned when a dispatch-level deadline elapses before the
// owning executor replies. The request is not cancelled: it remains queued
// and the executor still runs it to completion, discarding the reply.
var ErrTimeout = errors.New("dispatch: timed out waiting for executor reply")

// awaitReply blocks on reply until it fires or ctx is done. A nil or
// deadline-less ctx behaves as an unbounded wait, matching the default
// no-deadline policy in the dispatch contract.
func awaitReply(ctx context.Context, reply <-chan plugin.Reply) (plugin.Reply, error) {
	if ctx == nil {
		return <-reply, nil
	}
	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return plugin.Reply{}, ErrTimeout
	}
}

// observe records dispatch latency for one request. It is always deferred
// immediately before the send to the executor so it captures the full
// queue-plus-processing time the caller actually experiences.
func observe(peripheralID uint32, kind plugin.Kind, start time.Time) {
	metrics.RequestDuration.WithLabelValues(strconv.FormatUint(uint64(peripheralID), 10), kind.String()).
		Observe(time.Since(start).Seconds())
}

// recordStatus increments the request counter with the outcome of one
// dispatch call: timeout, plugin error, or success.
func recordStatus(peripheralID uint32, kind plugin.Kind, err error) {
	status := metrics.StatusOK
	switch {
	case errors.Is(err, ErrTimeout):
		status = metrics.StatusTimeout
	case err != nil:
		status = metrics.StatusError
	}
	metrics.RequestCount.WithLabelValues(strconv.FormatUint(uint64(peripheralID), 10), kind.String(), status).Inc()
}
