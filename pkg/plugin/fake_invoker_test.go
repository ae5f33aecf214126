package plugin

import (
	"sync"

	"github.com/kmdouglass/kpal/pkg/value"
)

// fakeInvoker is a pure-Go Invoker double standing in for a loaded C plugin
// instance in tests, mirroring the mock vtable the original implementation's
// executor test suite swaps in place of a real plugin's extern "C" function
// pointers. It never touches cgo.
type fakeInvoker struct {
	mu       sync.Mutex
	attrs    map[uint32]*fakeAttribute
	order    []uint32
	freed    bool
	freeCalls int
	setCalls int

	// failSet, when non-nil, is returned by SetAttributeValue instead of
	// performing the write.
	failSet error
}

type fakeAttribute struct {
	name    string
	value   value.Value
	preInit bool
}

func newFakeInvoker(attrs []AttributeDescriptor) *fakeInvoker {
	f := &fakeInvoker{attrs: make(map[uint32]*fakeAttribute, len(attrs))}
	for _, a := range attrs {
		f.attrs[a.ID] = &fakeAttribute{name: a.Name, value: a.Value, preInit: a.PreInit}
		f.order = append(f.order, a.ID)
	}
	return f
}

func (f *fakeInvoker) AttributeCount() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attrs), nil
}

func (f *fakeInvoker) AttributeIDs() ([]uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint32, len(f.order))
	copy(out, f.order)
	return out, nil
}

func (f *fakeInvoker) AttributeName(id uint32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attrs[id]
	if !ok {
		return "", &Error{Code: CodeAttributeDoesNotExist, Message: "no such attribute"}
	}
	return a.name, nil
}

func (f *fakeInvoker) AttributeValue(id uint32) (value.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attrs[id]
	if !ok {
		return value.Value{}, &Error{Code: CodeAttributeDoesNotExist, Message: "no such attribute"}
	}
	return a.value, nil
}

func (f *fakeInvoker) SetAttributeValue(id uint32, v value.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.failSet != nil {
		return f.failSet
	}
	a, ok := f.attrs[id]
	if !ok {
		return &Error{Code: CodeAttributeDoesNotExist, Message: "no such attribute"}
	}
	if a.value.Tag != v.Tag {
		return &Error{Code: CodeAttributeTypeMismatch, Message: "variant mismatch"}
	}
	a.value = v
	return nil
}

func (f *fakeInvoker) AttributePreInit(id uint32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attrs[id]
	if !ok {
		return false, &Error{Code: CodeAttributeDoesNotExist, Message: "no such attribute"}
	}
	return a.preInit, nil
}

func (f *fakeInvoker) Free() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freed = true
	f.freeCalls++
}

var _ Invoker = (*fakeInvoker)(nil)
