package plugin

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// Library is a loaded KPAL plugin shared object. It is never unloaded once
// loaded, matching the reference implementation's lifetime model: a library
// backs however many peripherals are created against it for the life of the
// daemon process.
type Library struct {
	ID   uint32
	Name string
	Path string

	h *handle
}

// ABIVersion reports the C-ABI version the library negotiated at load time.
func (l *Library) ABIVersion() int32 { return l.h.abiVersion }

// NewInvoker instantiates a peripheral against this library by calling
// kpal_plugin_new with the given pre-init attribute values.
func (l *Library) NewInvoker(preinit []PreInitValue) (Invoker, error) {
	return l.h.newInvoker(preinit)
}

// Libraries is the daemon's registry of loaded libraries, keyed by a
// monotonically increasing ID assigned at load time. It follows the same
// RWMutex-guarded-map discipline used throughout this codebase's registries:
// reads take a shared lock, writes are serialized, and List returns a
// stable, sorted snapshot rather than a live view.
type Libraries struct {
	mu     sync.RWMutex
	byID   map[uint32]*Library
	nextID uint32
	loader *FileLoader
}

// NewLibraries returns an empty library registry.
func NewLibraries() *Libraries {
	return &Libraries{
		byID:   make(map[uint32]*Library),
		loader: NewFileLoader(),
	}
}

// Load dlopen()s the shared object at path, verifies its ABI version, runs
// its library-level init, and registers it under a new ID. Name defaults to
// the file's base name without extension when empty.
func (ls *Libraries) Load(path, name string) (*Library, error) {
	h, err := ls.loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: load %s: %w", path, err)
	}

	if name == "" {
		base := filepath.Base(path)
		name = base[:len(base)-len(filepath.Ext(base))]
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	lib := &Library{
		ID:   ls.nextID,
		Name: name,
		Path: path,
		h:    h,
	}
	ls.nextID++
	ls.byID[lib.ID] = lib
	return lib, nil
}

// Get returns the library with the given ID.
func (ls *Libraries) Get(id uint32) (*Library, bool) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	lib, ok := ls.byID[id]
	return lib, ok
}

// List returns every registered library, ordered by ID.
func (ls *Libraries) List() []*Library {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	out := make([]*Library, 0, len(ls.byID))
	for _, lib := range ls.byID {
		out = append(out, lib)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
