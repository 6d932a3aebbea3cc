package ierr

import (
	"errors"
	"net/http"
)

type ErrorCode string

const (
	ErrorCodeInvalidArgument  ErrorCode = "InvalidArgument"
	ErrorCodeNotFound         ErrorCode = "NotFound"
	ErrorCodePermissionDenied ErrorCode = "PermissionDenied"
	ErrorCodeUnauthenticated  ErrorCode = "Unauthenticated"
	ErrorCodeInternal         ErrorCode = "Internal"
)

// HTTPStatus maps the code onto the status the REST surface answers with.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrorCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodePermissionDenied:
		return http.StatusForbidden
	case ErrorCodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`

	cause error
}

func New(code ErrorCode, cause error) Error {
	return Error{
		Code:    code,
		Message: cause.Error(),
		cause:   cause,
	}
}

func (e Error) Error() string {
	return string(e.Code) + ": " + e.cause.Error()
}

func (e Error) Unwrap() error {
	return e.cause
}

// CodeOf reports the code carried by err, or Internal when err is not an Error.
func CodeOf(err error) ErrorCode {
	var ie Error
	if errors.As(err, &ie) {
		return ie.Code
	}

	return ErrorCodeInternal
}
