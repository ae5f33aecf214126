package plugin

/*
#include <stdlib.h>
#include <dlfcn.h>
#include "abi_bridge.h"
*/
import "C"

import (
	"fmt"
	"path/filepath"
	"runtime"
	"unsafe"
)

// libraryExtension returns the shared-object suffix for the running OS. KPAL
// plugins are only ever C-ABI shared libraries, never Go plugin-package
// objects, so this has nothing to do with runtime.GOOS == "windows" checks
// elsewhere in this codebase's history: windows is unsupported here too,
// since dlopen has no equivalent without cgo's windows build constraints,
// but the daemon does not attempt to special-case it beyond this suffix.
func libraryExtension() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}

// FileLoader discovers and loads KPAL plugin libraries from the filesystem.
// It is the daemon's only entry point into dlopen.
type FileLoader struct{}

// NewFileLoader returns a loader ready to load libraries by path.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// SupportedExtensions reports the shared-library suffixes this loader will
// attempt to open for the running OS.
func (l *FileLoader) SupportedExtensions() []string {
	return []string{libraryExtension()}
}

// LoadFile dlopen()s the shared object at path, verifies its reported ABI
// version, and runs kpal_library_init. The returned handle is never closed
// by the daemon: KPAL libraries are assumed loaded for the lifetime of the
// process, matching the original plugin crate's no-unload design.
func (l *FileLoader) LoadFile(path string) (*handle, error) {
	ext := filepath.Ext(path)
	if ext != libraryExtension() {
		return nil, fmt.Errorf("plugin: unsupported library extension %q", ext)
	}

	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	h := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_LOCAL)
	if h == nil {
		return nil, fmt.Errorf("plugin: dlopen %s: %s", path, C.GoString(C.dlerror()))
	}

	syms := make(map[string]unsafe.Pointer, len(requiredSymbols))
	for _, name := range requiredSymbols {
		sym, err := resolveSymbol(h, name)
		if err != nil {
			C.dlclose(h)
			return nil, err
		}
		syms[name] = sym
	}

	version := int32(C.call_plugin_abi_version(C.kpal_plugin_abi_version_fn(syms["kpal_plugin_abi_version"])))
	if version != ABIVersion {
		C.dlclose(h)
		return nil, fmt.Errorf("plugin: %s reports ABI version %d, daemon requires %d", path, version, ABIVersion)
	}

	if code := int32(C.call_library_init(C.kpal_library_init_fn(syms["kpal_library_init"]))); code != CodeOK {
		C.dlclose(h)
		return nil, &Error{Code: code, Message: "kpal_library_init failed"}
	}

	return &handle{
		path:       path,
		dl:         h,
		abiVersion: version,
		newFn:      syms["kpal_plugin_new"],
	}, nil
}

// handle is the resolved, initialized state of one loaded library: its
// dlopen handle and the kpal_plugin_new symbol used to instantiate
// peripherals against it. It lives for the life of the process.
type handle struct {
	path       string
	dl         unsafe.Pointer
	abiVersion int32
	newFn      unsafe.Pointer
}

func resolveSymbol(h unsafe.Pointer, name string) (unsafe.Pointer, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	C.dlerror() // clear any existing error per dlsym(3)
	sym := C.dlsym(h, cname)
	if sym == nil {
		if errStr := C.dlerror(); errStr != nil {
			return nil, fmt.Errorf("plugin: resolve %s: %s", name, C.GoString(errStr))
		}
	}
	return sym, nil
}

// newInvoker instantiates a peripheral against this library, passing preinit
// as the plugin's pre_init attribute values, and returns an Invoker bound to
// the resulting instance.
func (h *handle) newInvoker(preinit []PreInitValue) (Invoker, error) {
	cPreinit := make([]C.kpal_attribute_t, len(preinit))
	cleanups := make([]func(), 0, len(preinit))
	defer func() {
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	for i, p := range preinit {
		cv, cleanup, err := toCValue(p.Value)
		if err != nil {
			return nil, err
		}
		cleanups = append(cleanups, cleanup)
		cPreinit[i] = C.kpal_attribute_t{
			id:       C.uint32_t(p.ID),
			variant:  C.uint32_t(p.Value.Tag),
			value:    cv,
			pre_init: C.bool(true),
		}
	}

	var data unsafe.Pointer
	var vt C.kpal_vtable_t

	var preinitPtr *C.kpal_attribute_t
	if len(cPreinit) > 0 {
		preinitPtr = &cPreinit[0]
	}

	code := C.call_plugin_new(
		C.kpal_plugin_new_fn(h.newFn),
		preinitPtr, C.size_t(len(cPreinit)),
		&data, &vt,
	)
	if code != C.int32_t(CodeOK) {
		return nil, &Error{Code: int32(code), Message: "kpal_plugin_new failed"}
	}

	return &cgoInvoker{data: data, vt: vt}, nil
}
