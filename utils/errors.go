package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures the way both the customer app and the
// back-office desk present them.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindNetwork        ErrorKind = "network"
	KindValidation     ErrorKind = "validation"
	KindBusiness       ErrorKind = "business"
	KindUnregistered   ErrorKind = "unregistered"
	KindNotFound       ErrorKind = "not_found"
	KindInternal       ErrorKind = "internal"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAuthError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindAuthentication, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewBusinessError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindBusiness, Message: fmt.Sprintf(format, args...)}
}

func NewUnregisteredError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindUnregistered, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewNetworkError(err error) *AppError {
	return &AppError{Kind: KindNetwork, Message: "network error, please try again", Err: err}
}

// KindOf reports the kind of err, KindInternal for anything untyped.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error kind to the status code used on the wire.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNetwork:
		return http.StatusServiceUnavailable
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindBusiness:
		return http.StatusConflict
	case KindUnregistered:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// KindFromStatus is the inverse of HTTPStatus for clients that only see the
// status code.
func KindFromStatus(code int) ErrorKind {
	switch code {
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return KindNetwork
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusConflict:
		return KindBusiness
	case http.StatusForbidden:
		return KindUnregistered
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindInternal
	}
}
