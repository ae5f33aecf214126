package core

import (
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned by registry and dispatch lookups that fail to
// resolve an id.
var ErrNotFound = errors.New("not found")

// LibraryRegistry is the daemon's published view of loaded libraries. It is
// conceptually publish-once: every library is loaded at startup, after which
// the registry is read-shared across every worker with no further writes
// expected on the hot path. The mutex exists for construction-time safety
// and to allow future hot-loading without a design change.
type LibraryRegistry struct {
	mu   sync.RWMutex
	byID map[uint32]Library
}

// NewLibraryRegistry returns an empty library registry.
func NewLibraryRegistry() *LibraryRegistry {
	return &LibraryRegistry{byID: make(map[uint32]Library)}
}

// Insert records lib under its own ID.
func (r *LibraryRegistry) Insert(lib Library) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[lib.ID] = lib
}

// Get returns the library with the given ID.
func (r *LibraryRegistry) Get(id uint32) (Library, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lib, ok := r.byID[id]
	return lib, ok
}

// List returns every registered library, ordered by ID.
func (r *LibraryRegistry) List() []Library {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Library, 0, len(r.byID))
	for _, lib := range r.byID {
		out = append(out, lib)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PeripheralRegistry is the daemon's grows-only table of instantiated
// peripherals. Inserts are serialized by the dispatch layer (one POST at a
// time reaches Insert); reads come from any request-handling goroutine and
// take only a shared lock.
type PeripheralRegistry struct {
	mu     sync.RWMutex
	byID   map[uint32]*Peripheral
	nextID uint32
}

// NewPeripheralRegistry returns an empty peripheral registry.
func NewPeripheralRegistry() *PeripheralRegistry {
	return &PeripheralRegistry{byID: make(map[uint32]*Peripheral)}
}

// Insert assigns p the next id, records it, and returns the assigned id. The
// caller must not have already set p.ID; it is overwritten here so that id
// allocation has exactly one owner.
func (r *PeripheralRegistry) Insert(p *Peripheral) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = r.nextID
	r.nextID++
	r.byID[p.ID] = p
	return p.ID
}

// Get returns the peripheral with the given ID.
func (r *PeripheralRegistry) Get(id uint32) (*Peripheral, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// List returns every registered peripheral, ordered by ID. A peripheral is
// only ever visible here once it is fully constructed and its executor is
// already running.
func (r *PeripheralRegistry) List() []*Peripheral {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Peripheral, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Exists reports whether a peripheral with the given ID is registered,
// useful for NotFound checks that don't need the full record.
func (r *PeripheralRegistry) Exists(id uint32) bool {
	_, ok := r.Get(id)
	return ok
}
