package rest

import (
	"encoding/json"
	"fmt"

	"github.com/kmdouglass/kpal/pkg/core"
	"github.com/kmdouglass/kpal/pkg/plugin"
	"github.com/kmdouglass/kpal/pkg/value"
)

// libraryDTO is the wire shape of one library record.
type libraryDTO struct {
	ID         uint32 `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	ABIVersion int32  `json:"abi_version"`
}

func newLibraryDTO(l core.Library) libraryDTO {
	return libraryDTO{ID: l.ID, Name: l.Name, Path: l.Path, ABIVersion: l.ABIVersion}
}

// attributeDTO is the wire shape of one attribute: `{id, name, variant,
// value, pre_init}` per the integration layer's contract.
type attributeDTO struct {
	ID      uint32      `json:"id"`
	Name    string      `json:"name"`
	Variant string      `json:"variant"`
	Value   value.Value `json:"value"`
	PreInit bool        `json:"pre_init"`
}

func newAttributeDTO(meta core.Attribute, v value.Value) attributeDTO {
	return attributeDTO{ID: meta.ID, Name: meta.Name, Variant: meta.Variant.String(), Value: v, PreInit: meta.PreInit}
}

// peripheralDTO is the wire shape of one peripheral: `{id, name, library_id,
// attributes: [...]}`. Attribute values are fetched live, never served from
// the registry's cached metadata.
type peripheralDTO struct {
	ID         uint32         `json:"id"`
	Name       string         `json:"name"`
	LibraryID  uint32         `json:"library_id"`
	Attributes []attributeDTO `json:"attributes"`
}

// createPeripheralRequest is the POST /peripherals request body.
type createPeripheralRequest struct {
	Name       string                    `json:"name"`
	LibraryID  uint32                    `json:"library_id"`
	Attributes []preInitAttributeRequest `json:"attributes,omitempty"`
}

// preInitAttributeRequest is one entry of createPeripheralRequest's
// "attributes" array: `{id, variant, value}`.
type preInitAttributeRequest struct {
	ID      uint32          `json:"id"`
	Variant string          `json:"variant"`
	Value   json.RawMessage `json:"value"`
}

func (r preInitAttributeRequest) toPreInitValue() (plugin.PreInitValue, error) {
	tag, err := value.ParseTag(r.Variant)
	if err != nil {
		return plugin.PreInitValue{}, err
	}
	v, err := value.DecodeJSON(tag, r.Value)
	if err != nil {
		return plugin.PreInitValue{}, fmt.Errorf("attribute %d: %w", r.ID, err)
	}
	return plugin.PreInitValue{ID: r.ID, Value: v}, nil
}

// setAttributeRequest is the PATCH .../attributes/{aid} request body:
// `{variant, value}`.
type setAttributeRequest struct {
	Variant string          `json:"variant"`
	Value   json.RawMessage `json:"value"`
}

func (r setAttributeRequest) toValue() (value.Value, error) {
	tag, err := value.ParseTag(r.Variant)
	if err != nil {
		return value.Value{}, err
	}
	return value.DecodeJSON(tag, r.Value)
}

// errorResponse is the client-visible error body shape: `{code, message}`.
// code is the daemon's or plugin's own numeric error code.
type errorResponse struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}
