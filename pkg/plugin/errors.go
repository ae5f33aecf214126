package plugin

import "fmt"

// Reserved daemon-meaningful error codes returned across the plugin ABI.
// Code 0 is success; codes 1-6 are reserved by the daemon; codes >= 128 are
// plugin-defined and are only ever surfaced through their error_message text.
const (
	CodeOK                    int32 = 0
	CodePluginInitErr         int32 = 1
	CodeAttributeDoesNotExist int32 = 2
	CodeAttributeTypeMismatch int32 = 3
	CodeAttributeIsReadOnly   int32 = 4
	CodeNumericConversionErr  int32 = 5
	CodeStringConversionErr   int32 = 6

	// CodeFirstPluginDefined is the first code a plugin may define for its
	// own hardware-specific failures.
	CodeFirstPluginDefined int32 = 128
)

// Error is a structured error carrying a plugin ABI error code and the text
// the owning library's error_message function returned for it. It is the
// shape every plugin-facing failure in this package is surfaced as.
type Error struct {
	Code    int32
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("plugin error %d: %s", e.Code, e.Message)
}

// IsReadOnly reports whether the error is the reserved read-only code.
func (e *Error) IsReadOnly() bool { return e != nil && e.Code == CodeAttributeIsReadOnly }

// IsTypeMismatch reports whether the error is the reserved type-mismatch code.
func (e *Error) IsTypeMismatch() bool { return e != nil && e.Code == CodeAttributeTypeMismatch }

// IsNotFound reports whether the error is the reserved does-not-exist code.
func (e *Error) IsNotFound() bool { return e != nil && e.Code == CodeAttributeDoesNotExist }

// IsInitErr reports whether the error is the reserved plugin-init code.
func (e *Error) IsInitErr() bool { return e != nil && e.Code == CodePluginInitErr }
