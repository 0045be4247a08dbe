// Package core holds the error taxonomy shared by the ledger, the escrow
// engine, the account store and the feed program.
//
// Every failure surfaced to a caller unwraps to exactly one of the sentinel
// errors below, so transport layers can map it to a stable code with Code and
// HTTPStatus without string matching.
package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Match with errors.Is.
var (
	ErrDuplicateInitialization = errors.New("account already initialized")
	ErrNotFound                = errors.New("not found")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrStorageExhausted        = errors.New("storage exhausted")
	ErrInvalidInput            = errors.New("invalid input")
	ErrStaleState              = errors.New("stale account state")
	ErrDuplicateTransaction    = errors.New("transaction already processed")
	ErrDerivationFailed        = errors.New("address derivation failed")
)

// Error codes reported to clients.
const (
	CodeDuplicateInitialization = "DuplicateInitialization"
	CodeNotFound                = "NotFound"
	CodeUnauthorized            = "Unauthorized"
	CodeInsufficientFunds       = "InsufficientFunds"
	CodeStorageExhausted        = "StorageExhausted"
	CodeInvalidInput            = "InvalidInput"
	CodeStaleState              = "StaleState"
	CodeDuplicateTransaction    = "DuplicateTransaction"
	CodeDerivationFailed        = "DerivationFailed"
	CodeInternal                = "Internal"
)

// =============================================================================
// Typed errors
// =============================================================================

// NotFoundError reports a missing profile, post or account.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError builds a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DuplicateError reports an initialize on an address that already holds state.
type DuplicateError struct {
	Resource string
	ID       string
}

// NewDuplicateError builds a DuplicateError.
func NewDuplicateError(resource, id string) *DuplicateError {
	return &DuplicateError{Resource: resource, ID: id}
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already initialized", e.Resource, e.ID)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateInitialization }

// UnauthorizedError reports a missing signature or a failed address check.
type UnauthorizedError struct {
	Reason string
}

// Unauthorized builds an UnauthorizedError with a formatted reason.
func Unauthorized(format string, args ...interface{}) *UnauthorizedError {
	return &UnauthorizedError{Reason: fmt.Sprintf(format, args...)}
}

func (e *UnauthorizedError) Error() string {
	return "unauthorized: " + e.Reason
}

func (e *UnauthorizedError) Unwrap() error { return ErrUnauthorized }

// InsufficientFundsError reports a debit larger than the available balance.
type InsufficientFundsError struct {
	Account   string
	Available uint64
	Required  uint64
}

// NewInsufficientFundsError builds an InsufficientFundsError.
func NewInsufficientFundsError(account string, available, required uint64) *InsufficientFundsError {
	return &InsufficientFundsError{Account: account, Available: available, Required: required}
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in %s: available %d, required %d", e.Account, e.Available, e.Required)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// StorageExhaustedError reports a record that no longer fits its reserved space.
type StorageExhaustedError struct {
	Account  string
	Required int
	Capacity int
}

// NewStorageExhaustedError builds a StorageExhaustedError.
func NewStorageExhaustedError(account string, required, capacity int) *StorageExhaustedError {
	return &StorageExhaustedError{Account: account, Required: required, Capacity: capacity}
}

func (e *StorageExhaustedError) Error() string {
	return fmt.Sprintf("storage exhausted for %s: need %d bytes, capacity %d", e.Account, e.Required, e.Capacity)
}

func (e *StorageExhaustedError) Unwrap() error { return ErrStorageExhausted }

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RequiredError reports a missing field.
func RequiredError(field string) *ValidationError {
	return NewValidationError(field, "is required")
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// =============================================================================
// Helpers
// =============================================================================

func IsNotFound(err error) bool          { return errors.Is(err, ErrNotFound) }
func IsUnauthorized(err error) bool      { return errors.Is(err, ErrUnauthorized) }
func IsInsufficientFunds(err error) bool { return errors.Is(err, ErrInsufficientFunds) }

var codes = []struct {
	err    error
	code   string
	status int
}{
	{ErrDuplicateInitialization, CodeDuplicateInitialization, http.StatusConflict},
	{ErrNotFound, CodeNotFound, http.StatusNotFound},
	{ErrUnauthorized, CodeUnauthorized, http.StatusForbidden},
	{ErrInsufficientFunds, CodeInsufficientFunds, http.StatusPaymentRequired},
	{ErrStorageExhausted, CodeStorageExhausted, http.StatusInsufficientStorage},
	{ErrInvalidInput, CodeInvalidInput, http.StatusBadRequest},
	{ErrStaleState, CodeStaleState, http.StatusConflict},
	{ErrDuplicateTransaction, CodeDuplicateTransaction, http.StatusConflict},
	{ErrDerivationFailed, CodeDerivationFailed, http.StatusBadRequest},
}

// Code maps err to its stable error code. Unknown errors map to CodeInternal.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// HTTPStatus maps err to the status code used by the HTTP API.
func HTTPStatus(err error) int {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.status
		}
	}
	return http.StatusInternalServerError
}
