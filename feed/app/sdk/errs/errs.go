// Package errs provides types and support related to protocol error
// functionality.
package errs

import (
	"errors"
	"fmt"
)

// Code represents an error classification the caller can act on.
type Code int

// Set of error codes used across the protocol.
const (
	Internal Code = iota
	MalformedAccount
	AccountNotFound
	InsufficientFunds
	TransactionRejected
	ConfirmationTimeout
	UnreachableEndpoint
	UnsupportedLoginMethod
	ChainTooLong
	FailedPrecondition
)

var codeNames = map[Code]string{
	Internal:               "internal",
	MalformedAccount:       "malformed_account",
	AccountNotFound:        "account_not_found",
	InsufficientFunds:      "insufficient_funds",
	TransactionRejected:    "transaction_rejected",
	ConfirmationTimeout:    "confirmation_timeout",
	UnreachableEndpoint:    "unreachable_endpoint",
	UnsupportedLoginMethod: "unsupported_login_method",
	ChainTooLong:           "chain_too_long",
	FailedPrecondition:     "failed_precondition",
}

// String returns the name of the code.
func (c Code) String() string {
	name, exists := codeNames[c]
	if !exists {
		return "unknown"
	}

	return name
}

// Error represents an error with a classification code.
type Error struct {
	Code Code
	Err  error
}

// New constructs an error based on an existing error.
func New(code Code, err error) *Error {
	return &Error{
		Code: code,
		Err:  err,
	}
}

// Newf constructs an error based on a error message.
func Newf(code Code, format string, v ...any) *Error {
	return &Error{
		Code: code,
		Err:  fmt.Errorf(format, v...),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Err)
}

// Unwrap exposes the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// GetCode extracts the code from any error in the chain. Errors that don't
// carry a code report Internal.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return Internal
}

// HasCode reports whether any error in the chain carries the specified code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}

	return false
}
