package core

import (
	"errors"
	"net/http"

	"github.com/kmdouglass/kpal/pkg/plugin"
)

// HTTPStatus maps an error returned by the dispatcher or registries to the
// HTTP status and client-visible {code, message} body the REST layer should
// emit, per the daemon's error taxonomy:
//
//  1. client error (not found, type mismatch)      -> 400 or 404
//  2. plugin-initialization error                   -> 500
//  3. plugin runtime error (read-only, mismatch, ...) -> 500, 403, 400, or 404
//  4. transport error (executor gone)                -> 500
//
// Loader errors never reach this function: they are logged at startup and
// never surfaced to a client.
func HTTPStatus(err error) (status int, code int32, message string) {
	if err == nil {
		return http.StatusOK, plugin.CodeOK, ""
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrLibraryNotFound):
		return http.StatusNotFound, plugin.CodeAttributeDoesNotExist, err.Error()
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout, plugin.CodeOK, err.Error()
	}

	var perr *plugin.Error
	if errors.As(err, &perr) {
		switch {
		case perr.IsNotFound():
			return http.StatusNotFound, perr.Code, perr.Message
		case perr.IsTypeMismatch():
			return http.StatusBadRequest, perr.Code, perr.Message
		case perr.IsReadOnly():
			return http.StatusForbidden, perr.Code, perr.Message
		default:
			return http.StatusInternalServerError, perr.Code, perr.Message
		}
	}

	return http.StatusInternalServerError, plugin.CodeOK, err.Error()
}
