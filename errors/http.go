package errors

import (
	"fmt"
	"net/http"
)

const internalHTTPMsg = "internal error"

// HTTPInfo returns the HTTP status code and message that should be used to
// report given error to a client.
//
// Errors that do not wrap a registered root error are internal. When not
// running in a debug mode their message is replaced with a generic one, as is
// the message of a recovered panic.
func HTTPInfo(err error, debug bool) (int, string) {
	if errIsNil(err) {
		return http.StatusOK, ""
	}

	status := HTTPStatus(err)
	if debug {
		return status, fmt.Sprintf("%+v", err)
	}
	if c := code(err); c == internalCode || c == ErrPanic.code {
		return status, internalHTTPMsg
	}
	return status, err.Error()
}

// HTTPStatus returns the HTTP status code for given error.
func HTTPStatus(err error) int {
	if errIsNil(err) {
		return http.StatusOK
	}
	if s, ok := httpStatuses[code(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// IsClientError returns true if the error is caused by the request content
// and not by the service.
func IsClientError(err error) bool {
	s := HTTPStatus(err)
	return s >= 400 && s < 500
}

var httpStatuses = map[uint32]int{
	ErrUnauthorized.code:      http.StatusUnauthorized,
	ErrNotFound.code:          http.StatusNotFound,
	ErrInput.code:             http.StatusBadRequest,
	ErrModel.code:             http.StatusBadRequest,
	ErrDuplicate.code:         http.StatusConflict,
	ErrEmpty.code:             http.StatusBadRequest,
	ErrState.code:             http.StatusConflict,
	ErrAmount.code:            http.StatusBadRequest,
	ErrOverflow.code:          http.StatusBadRequest,
	ErrKeyEncoding.code:       http.StatusBadRequest,
	ErrSignatureEncoding.code: http.StatusBadRequest,
	ErrProposal.code:          http.StatusBadRequest,
	ErrAuthorization.code:     http.StatusForbidden,
	ErrResource.code:          http.StatusBadGateway,
}
