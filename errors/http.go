package errors

import (
	stderrors "errors"
	"net/http"
)

// HTTPStatus maps a domain error onto the status code returned to clients.
// Unknown errors are reported as internal failures.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case stderrors.Is(err, ErrInvalidCredentials),
		stderrors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case stderrors.Is(err, ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case stderrors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text safe to show to an end user.
// Storage details stay in the logs.
func Message(err error) string {
	switch {
	case stderrors.Is(err, ErrStorage):
		return ErrStorage.Error()
	case HTTPStatus(err) == http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}
