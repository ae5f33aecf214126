package plugin

import (
	"fmt"

	"github.com/kmdouglass/kpal/pkg/value"
)

// Instance is the fully materialized result of instantiating a peripheral:
// the running Executor plus the attribute metadata snapshot the registry
// stores alongside the Peripheral record. Current values are never served
// from this snapshot after construction — every subsequent read goes through
// the Executor.
type Instance struct {
	Executor   *Executor
	Attributes []AttributeDescriptor
}

// Factory instantiates peripherals against a library registry. It is the
// only path by which a plugin instance comes into existence inside the
// daemon: every error path in New after kpal_plugin_new succeeds frees the
// plugin instance before returning, so a partially constructed peripheral
// never leaks one.
type Factory struct {
	libraries *Libraries
}

// NewFactory returns a Factory that resolves library IDs against libraries.
func NewFactory(libraries *Libraries) *Factory {
	return &Factory{libraries: libraries}
}

// New instantiates a peripheral against libraryID with the given pre-init
// attribute values, discovers its attribute set, and spawns its executor.
// The returned Instance's Executor is already running; the caller is
// responsible for recording its Transmitter in the dispatch layer's
// transmitter map and the Attributes snapshot in the peripheral registry.
func (f *Factory) New(libraryID uint32, preinit []PreInitValue) (*Instance, error) {
	lib, ok := f.libraries.Get(libraryID)
	if !ok {
		return nil, fmt.Errorf("plugin: library %d not found", libraryID)
	}

	invoker, err := lib.NewInvoker(preinit)
	if err != nil {
		return nil, err
	}

	attrs, declared, err := discoverAttributes(invoker)
	if err != nil {
		invoker.Free()
		return nil, err
	}

	executor := NewExecutor(invoker, declared)
	return &Instance{Executor: executor, Attributes: attrs}, nil
}

// discoverAttributes calls attribute_count, attribute_ids, then for each id
// attribute_name, attribute_value, attribute_pre_init, materializing the
// descriptors the registry caches and the id->variant map the executor uses
// to fast-reject mistyped writes.
func discoverAttributes(invoker Invoker) ([]AttributeDescriptor, map[uint32]value.Tag, error) {
	ids, err := invoker.AttributeIDs()
	if err != nil {
		return nil, nil, err
	}

	descriptors := make([]AttributeDescriptor, 0, len(ids))
	declared := make(map[uint32]value.Tag, len(ids))

	for _, id := range ids {
		name, err := invoker.AttributeName(id)
		if err != nil {
			return nil, nil, err
		}
		v, err := invoker.AttributeValue(id)
		if err != nil {
			return nil, nil, err
		}
		preInit, err := invoker.AttributePreInit(id)
		if err != nil {
			return nil, nil, err
		}

		descriptors = append(descriptors, AttributeDescriptor{
			ID:      id,
			Name:    name,
			Variant: v.Tag,
			Value:   v,
			PreInit: preInit,
		})
		declared[id] = v.Tag
	}

	return descriptors, declared, nil
}
