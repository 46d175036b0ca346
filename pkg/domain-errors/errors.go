// Package domainerrors defines the coded error taxonomy shared by every service.
//
// Services return *Error values; transports map the Code to a status. Wrapping keeps the
// original failure reachable so callers can test for any code in the chain:
//
//	err := dErrors.Wrap(treasuryErr, dErrors.CodeDownstreamFailure, msg)
//	dErrors.HasCode(err, dErrors.CodeDownstreamFailure)     // true
//	dErrors.HasCode(err, dErrors.CodeInsufficientLiquidity) // true when treasuryErr carried it
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure. Values are stable and appear on the wire.
type Code string

const (
	CodeUnauthorized          Code = "unauthorized"
	CodeInvalidAmount         Code = "invalid_amount"
	CodeInsufficientLiquidity Code = "insufficient_liquidity"
	CodeNotFound              Code = "not_found"
	CodeAlreadyVoted          Code = "already_voted"
	CodeDownstreamFailure     Code = "downstream_failure"

	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeRateLimited        Code = "rate_limited"
	CodeInternal           Code = "internal_error"
)

// Error is a coded, human-readable failure.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any coded error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is an alias of HasCode kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost human-readable message.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
