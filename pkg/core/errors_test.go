package core

import (
	"net/http"
	"testing"

	"github.com/kmdouglass/kpal/pkg/plugin"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"plugin not found", &plugin.Error{Code: plugin.CodeAttributeDoesNotExist}, http.StatusNotFound},
		{"plugin type mismatch", &plugin.Error{Code: plugin.CodeAttributeTypeMismatch}, http.StatusBadRequest},
		{"plugin read only", &plugin.Error{Code: plugin.CodeAttributeIsReadOnly}, http.StatusForbidden},
		{"plugin init error", &plugin.Error{Code: plugin.CodePluginInitErr}, http.StatusInternalServerError},
		{"plugin-defined error", &plugin.Error{Code: 200}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, _ := HTTPStatus(tt.err)
			if status != tt.want {
				t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, status, tt.want)
			}
		})
	}
}

func TestHTTPStatusOKOnNil(t *testing.T) {
	status, _, _ := HTTPStatus(nil)
	if status != http.StatusOK {
		t.Errorf("HTTPStatus(nil) = %d, want 200", status)
	}
}
