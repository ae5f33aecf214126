// Package core holds KPAL's object model and the registries and dispatcher
// that sit above the plugin package: Libraries and Peripherals as the
// daemon observes them from the outside, independent of any particular
// transport.
package core

import "github.com/kmdouglass/kpal/pkg/value"

// Library is the daemon-facing record of one loaded plugin shared object.
type Library struct {
	ID              uint32 `json:"id"`
	Name            string `json:"name"`
	Path            string `json:"path"`
	ABIVersion      int32  `json:"abi_version"`
	PluginInitCount uint32 `json:"-"`
}

// Attribute is the metadata snapshot the registry caches for one attribute
// of a peripheral: id, name, declared variant, and whether the plugin
// requires it be supplied at instantiation time. The current value is never
// served from this snapshot; every value read is delegated to the owning
// executor.
type Attribute struct {
	ID      uint32    `json:"id"`
	Name    string    `json:"name"`
	Variant value.Tag `json:"variant"`
	PreInit bool      `json:"pre_init"`
}

// Peripheral is the daemon-facing record of one instantiated plugin. Its
// Attributes field is the metadata snapshot captured at construction time;
// it never changes after that, since a plugin's attribute set is fixed once
// instantiated.
type Peripheral struct {
	ID         uint32      `json:"id"`
	Name       string      `json:"name"`
	LibraryID  uint32      `json:"library_id"`
	Attributes []Attribute `json:"attributes"`
}

// AttributeByID returns the cached metadata for id, if present.
func (p *Peripheral) AttributeByID(id uint32) (Attribute, bool) {
	for _, a := range p.Attributes {
		if a.ID == id {
			return a, true
		}
	}
	return Attribute{}, false
}
