package plugin

/*
#include <stdlib.h>
#include "abi_bridge.h"
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/kmdouglass/kpal/pkg/value"
)

// AttributeDescriptor is a daemon-native copy of one kpal_attribute_t: the
// information a plugin reports about an attribute at instantiation time.
type AttributeDescriptor struct {
	ID      uint32
	Name    string
	Variant value.Tag
	Value   value.Value
	PreInit bool
}

// PreInitValue is a caller-supplied value for an attribute the plugin marked
// pre_init, passed into Library.NewInvoker before the instance exists.
type PreInitValue struct {
	ID    uint32
	Value value.Value
}

// Invoker is the Go-native boundary every caller above this package programs
// against. Everything on the far side of it is a C-ABI plugin instance;
// nothing outside this package ever touches a C type or cgo directly. The
// production implementation is cgoInvoker; tests substitute fakeInvoker.
type Invoker interface {
	// AttributeCount returns the number of attributes this instance exposes.
	AttributeCount() (int, error)

	// AttributeIDs returns the IDs of every attribute this instance exposes,
	// in the plugin's own enumeration order.
	AttributeIDs() ([]uint32, error)

	// AttributeName returns the name of the attribute with the given ID.
	AttributeName(id uint32) (string, error)

	// AttributeValue returns the current value of the attribute with the
	// given ID by calling into the plugin; it never returns a cached value.
	AttributeValue(id uint32) (value.Value, error)

	// SetAttributeValue writes v to the attribute with the given ID. The
	// caller is responsible for verifying v's variant matches the
	// attribute's own before calling this — the plugin itself also checks
	// and returns CodeAttributeTypeMismatch on mismatch.
	SetAttributeValue(id uint32, v value.Value) error

	// AttributePreInit reports whether the attribute with the given ID must
	// be supplied a value at instantiation time, via kpal_plugin_new's
	// preinit slice, rather than set afterwards.
	AttributePreInit(id uint32) (bool, error)

	// Free releases the plugin instance. After Free returns, no other
	// method may be called on this Invoker.
	Free()
}

// cgoInvoker is the production Invoker, backed by the function pointer
// vtable a library handed back from kpal_plugin_new.
type cgoInvoker struct {
	data unsafe.Pointer
	vt   C.kpal_vtable_t
}

var _ Invoker = (*cgoInvoker)(nil)

func (c *cgoInvoker) AttributeCount() (int, error) {
	n := C.call_attribute_count(c.vt.attribute_count, c.data)
	return int(n), nil
}

func (c *cgoInvoker) AttributeIDs() ([]uint32, error) {
	n, err := c.AttributeCount()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]C.uint32_t, n)
	code := C.call_attribute_ids(c.vt.attribute_ids, c.data, (*C.uint32_t)(unsafe.Pointer(&buf[0])), C.size_t(n))
	if code != C.int32_t(CodeOK) {
		return nil, c.wrapError(int32(code))
	}
	ids := make([]uint32, n)
	for i, v := range buf {
		ids[i] = uint32(v)
	}
	return ids, nil
}

func (c *cgoInvoker) AttributeName(id uint32) (string, error) {
	buf := make([]C.uchar, AttributeNameBufferLength)
	code := C.call_attribute_name(c.vt.attribute_name, c.data, C.uint32_t(id), &buf[0], C.size_t(len(buf)))
	if code != C.int32_t(CodeOK) {
		return "", c.wrapError(int32(code))
	}
	return C.GoString((*C.char)(unsafe.Pointer(&buf[0]))), nil
}

func (c *cgoInvoker) AttributeValue(id uint32) (value.Value, error) {
	var out C.kpal_value_t
	code := C.call_attribute_value(c.vt.attribute_value, c.data, C.uint32_t(id), &out)
	if code != C.int32_t(CodeOK) {
		return value.Value{}, c.wrapError(int32(code))
	}
	return fromCValue(out), nil
}

func (c *cgoInvoker) SetAttributeValue(id uint32, v value.Value) error {
	cv, cleanup, err := toCValue(v)
	if err != nil {
		return err
	}
	defer cleanup()
	code := C.call_set_attribute_value(c.vt.set_attribute_value, c.data, C.uint32_t(id), &cv)
	if code != C.int32_t(CodeOK) {
		return c.wrapError(int32(code))
	}
	return nil
}

func (c *cgoInvoker) AttributePreInit(id uint32) (bool, error) {
	var out C.bool
	code := C.call_attribute_pre_init(c.vt.attribute_pre_init, c.data, C.uint32_t(id), &out)
	if code != C.int32_t(CodeOK) {
		return false, c.wrapError(int32(code))
	}
	return bool(out), nil
}

func (c *cgoInvoker) Free() {
	if c.data == nil {
		return
	}
	C.call_free(c.vt.free, c.data)
	c.data = nil
}

// wrapError resolves a non-zero ABI code into the library's own error text
// via its error_message vtable entry.
func (c *cgoInvoker) wrapError(code int32) error {
	msg := "unknown plugin error"
	if c.vt.error_message != nil {
		cstr := C.call_error_message(c.vt.error_message, C.int32_t(code))
		if cstr != nil {
			msg = C.GoString(cstr)
		}
	}
	return &Error{Code: code, Message: msg}
}

// fromCValue converts a C kpal_value_t read out of a plugin into a
// value.Value. String payloads are copied immediately: the C memory backing
// them is owned by the plugin and is not guaranteed to outlive this call.
func fromCValue(cv C.kpal_value_t) value.Value {
	switch value.Tag(cv.tag) {
	case value.Int:
		return value.NewInt(int32(*(*C.int32_t)(unsafe.Pointer(&cv.payload[0]))))
	case value.Uint:
		return value.NewUint(uint32(*(*C.uint32_t)(unsafe.Pointer(&cv.payload[0]))))
	case value.Double:
		return value.NewDouble(float64(*(*C.double)(unsafe.Pointer(&cv.payload[0]))))
	case value.String:
		cstr := *(**C.char)(unsafe.Pointer(&cv.payload[0]))
		return value.NewString(C.GoString(cstr))
	default:
		return value.Value{}
	}
}

// toCValue converts a value.Value into a C kpal_value_t. The returned
// cleanup func must run after the C call returns; it frees any C-heap
// allocation made for a string payload.
func toCValue(v value.Value) (C.kpal_value_t, func(), error) {
	var cv C.kpal_value_t
	noop := func() {}
	switch v.Tag {
	case value.Int:
		cv = C.make_int_value(C.int32_t(v.Int))
		return cv, noop, nil
	case value.Uint:
		cv = C.make_uint_value(C.uint32_t(v.Uint))
		return cv, noop, nil
	case value.Double:
		cv = C.make_double_value(C.double(v.Double))
		return cv, noop, nil
	case value.String:
		cstr := C.CString(v.Str)
		cv = C.make_string_value(cstr)
		return cv, func() { C.free(unsafe.Pointer(cstr)) }, nil
	default:
		return cv, noop, fmt.Errorf("plugin: cannot encode value with unknown tag %d", v.Tag)
	}
}
