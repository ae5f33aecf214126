// Package plugin implements the daemon's side of the KPAL plugin C-ABI: a
// per-library loader that resolves a shared object's exported symbols, and a
// per-peripheral executor that serializes every call across the FFI boundary
// to the instance it owns. Everything above this package talks to plugins
// exclusively through the Invoker interface in invoker.go — this file,
// invoker.go, and loader.go are the only places cgo appears.
package plugin

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include "abi_bridge.h"
*/
import "C"

// ABIVersion is the C-ABI version this daemon build requires from every
// library it loads. A library reporting a different version is rejected by
// the loader before kpal_library_init is ever called.
const ABIVersion int32 = 1

// AttributeNameBufferLength bounds the daemon-owned out-buffer passed to
// attribute_name. It is carried over from the plugin crate's
// ATTRIBUTE_NAME_BUFFER_LENGTH constant.
const AttributeNameBufferLength = 256

// requiredSymbols must all resolve before a library is considered loaded.
// LoadFile resolves every one before calling any of them, then calls
// kpal_plugin_abi_version first: an ABI mismatch means the other two may
// not even have compatible signatures, so nothing else in this list is
// invoked until the version check passes.
var requiredSymbols = []string{
	"kpal_plugin_abi_version",
	"kpal_library_init",
	"kpal_plugin_new",
}
