package core

import (
	"context"
	"testing"
	"time"

	"github.com/kmdouglass/kpal/pkg/plugin"
	"github.com/kmdouglass/kpal/pkg/value"
)

// fakeTransmitterTarget drains requests sent to a transmitter and answers
// them the way an executor would, without spinning up the real plugin
// package's Executor — dispatch tests only need to exercise routing and
// the ctx-deadline path, not executor semantics (covered in pkg/plugin).
func newFakeTransmitterTarget(t *testing.T, attrValue value.Value) plugin.Transmitter {
	t.Helper()
	reqs := make(chan plugin.Request, 8)
	go func() {
		for req := range reqs {
			switch req.Kind {
			case plugin.KindGetAttribute:
				req.Reply <- plugin.Reply{Attribute: plugin.AttributeSnapshot{ID: req.AttributeID, Value: attrValue}}
			case plugin.KindSetAttribute:
				req.Reply <- plugin.Reply{Attribute: plugin.AttributeSnapshot{ID: req.AttributeID, Value: req.Value}}
			case plugin.KindGetAttributes:
				req.Reply <- plugin.Reply{Attributes: []plugin.AttributeSnapshot{{ID: 1, Value: attrValue}}}
			}
		}
	}()
	return reqs
}

func setupDispatcher(t *testing.T, attr Attribute, attrValue value.Value) (*Dispatcher, uint32) {
	t.Helper()
	peripherals := NewPeripheralRegistry()
	p := &Peripheral{Name: "thermostat", Attributes: []Attribute{attr}}
	id := peripherals.Insert(p)

	d := NewDispatcher(NewLibraryRegistry(), peripherals)
	d.Register(id, newFakeTransmitterTarget(t, attrValue))
	return d, id
}

func TestDispatcherGetAttribute(t *testing.T) {
	d, id := setupDispatcher(t, Attribute{ID: 1, Name: "temperature", Variant: value.Double}, value.NewDouble(21.5))

	v, err := d.GetAttribute(context.Background(), id, 1)
	if err != nil {
		t.Fatalf("GetAttribute() error = %v", err)
	}
	if v.Double != 21.5 {
		t.Errorf("GetAttribute() = %v, want 21.5", v)
	}
}

func TestDispatcherGetAttributeUnknownPeripheral(t *testing.T) {
	d, _ := setupDispatcher(t, Attribute{ID: 1, Variant: value.Double}, value.NewDouble(0))

	if _, err := d.GetAttribute(context.Background(), 9999, 1); err != ErrNotFound {
		t.Errorf("GetAttribute() error = %v, want ErrNotFound", err)
	}
}

func TestDispatcherSetAttribute(t *testing.T) {
	d, id := setupDispatcher(t, Attribute{ID: 1, Name: "setpoint", Variant: value.Double}, value.NewDouble(0))

	v, err := d.SetAttribute(context.Background(), id, 1, value.NewDouble(30))
	if err != nil {
		t.Fatalf("SetAttribute() error = %v", err)
	}
	if v.Double != 30 {
		t.Errorf("SetAttribute() = %v, want 30", v)
	}
}

func TestDispatcherSetAttributeUnknownAttribute(t *testing.T) {
	d, id := setupDispatcher(t, Attribute{ID: 1, Variant: value.Double}, value.NewDouble(0))

	if _, err := d.SetAttribute(context.Background(), id, 99, value.NewDouble(1)); err != ErrNotFound {
		t.Errorf("SetAttribute() error = %v, want ErrNotFound", err)
	}
}

func TestDispatcherContextDeadlineTimesOut(t *testing.T) {
	peripherals := NewPeripheralRegistry()
	p := &Peripheral{Name: "slow", Attributes: []Attribute{{ID: 1, Variant: value.Double}}}
	id := peripherals.Insert(p)

	d := NewDispatcher(NewLibraryRegistry(), peripherals)
	// A transmitter that never answers: the executor is "busy" forever.
	reqs := make(chan plugin.Request, 1)
	d.Register(id, reqs)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := d.GetAttribute(ctx, id, 1); err != ErrTimeout {
		t.Errorf("GetAttribute() error = %v, want ErrTimeout", err)
	}
}
