// Package errdefs defines the error taxonomy shared by the cart store, the pricing
// helpers and the transport layer.
package errdefs

import (
	"errors"
	"fmt"
)

type Code int

const (
	CodeInvalidArgument Code = iota
	CodeNotFound
	CodePersistenceWarning
)

// Error message constants.
const (
	ErrMsgProductIDRequired = "product id is required"
	ErrMsgQuantityPositive  = "quantity must be a positive integer"
	ErrMsgPriceNegative     = "price must not be negative"
	ErrMsgPriceTooLarge     = "price exceeds the per-item limit"
	ErrMsgQuantityTooLarge  = "quantity exceeds the per-line limit"
	ErrMsgItemNotInCart     = "item not in cart"
	ErrMsgPercentageRange   = "discount percent must be between 0 and 100"
)

func (c Code) String() string {
	switch c {
	case CodeInvalidArgument:
		return "INVALID_ARGUMENT"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodePersistenceWarning:
		return "PERSISTENCE_WARNING"
	default:
		return "UNKNOWN"
	}
}

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewInvalidArgument(message string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: message}
}

func NewInvalidArgumentf(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func NewNotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

func NewNotFoundf(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewPersistenceWarning reports a storage failure that left the in-memory state intact.
func NewPersistenceWarning(message string, err error) *Error {
	return &Error{Code: CodePersistenceWarning, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

func IsInvalidArgument(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeInvalidArgument
}

func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeNotFound
}

func IsPersistenceWarning(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodePersistenceWarning
}
