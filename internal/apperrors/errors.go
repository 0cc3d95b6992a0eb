// Package apperrors defines the error taxonomy surfaced at the request
// boundary. Handlers translate these sentinels to HTTP statuses; everything
// below the boundary wraps them with %w.
package apperrors

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeNotFound                Code = "NOT_FOUND"
	CodeInvalidStatus           Code = "INVALID_STATUS"
	CodeFreelancerWalletMissing Code = "FREELANCER_WALLET_MISSING"
	CodeSettlementFailed        Code = "SETTLEMENT_FAILED"
	CodeValidation              Code = "VALIDATION_ERROR"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrUnauthorized            = New(CodeUnauthorized, "You are not allowed to perform this action")
	ErrNotFound                = New(CodeNotFound, "Resource not found")
	ErrInvalidStatus           = New(CodeInvalidStatus, "Resource is not in a valid status for this action")
	ErrFreelancerWalletMissing = New(CodeFreelancerWalletMissing, "Freelancer must connect wallet before payment can be released")
	ErrSettlementFailed        = New(CodeSettlementFailed, "Payment settlement failed")
	ErrValidation              = New(CodeValidation, "Invalid request")
)

// Is makes every *Error with the same code match, so wrapped errors built
// with Newf still satisfy errors.Is against the sentinels above.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// CodeOf extracts the taxonomy code from err, or "" for plain errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
