package domain

import (
	"errors"
	"fmt"

	"github.com/Unagi-Games/evm-whitelabel/pkg/errcodes"
)

// AppError is the application error: a transport-mappable kind, a stable code
// and a human-readable message.
type AppError struct {
	Kind    errcodes.Kind
	Code    errcodes.ErrorCode
	Message string
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) ErrorKind() errcodes.Kind {
	return e.Kind
}

func (e *AppError) ErrorCode() errcodes.ErrorCode {
	return e.Code
}

func (e *AppError) Description() string {
	return e.Message
}

func NewError(kind errcodes.Kind, code errcodes.ErrorCode, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

func WrapError(err error, kind errcodes.Kind, code errcodes.ErrorCode, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		cause:   err,
	}
}

// The settlement failure taxonomy. Every rejection is synchronous and leaves
// no partial effects behind.

func NewAuthorizationError(message string) *AppError {
	return NewError(errcodes.KindForbidden, errcodes.AuthorizationError, message)
}

func NewStateConflictError(message string) *AppError {
	return NewError(errcodes.KindConflict, errcodes.StateConflictError, message)
}

func NewPreconditionError(message string) *AppError {
	return NewError(errcodes.KindInvalidArgument, errcodes.PreconditionError, message)
}

func NewAuthorizationGapError(message string) *AppError {
	return NewError(errcodes.KindUnprocessable, errcodes.AuthorizationGapError, message)
}

func NewPriceMismatchError(message string) *AppError {
	return NewError(errcodes.KindConflict, errcodes.PriceMismatchError, message)
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func GetCode(err error) (errcodes.ErrorCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}
