// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All ledger failures are returned as AppError so callers can build actionable messages.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups error codes into the categories callers branch on.
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindValidation   Kind = "VALIDATION"
	KindConflict     Kind = "CONFLICT"
	KindIntegrity    Kind = "INTEGRITY"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindInternal     Kind = "INTERNAL"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation           = "VALIDATION_ERROR"
	CodeEmptyTransaction     = "EMPTY_TRANSACTION"
	CodeDuplicateLineProduct = "DUPLICATE_LINE_PRODUCT"
	CodeInvalidQuantity      = "INVALID_QUANTITY"
	CodeInvalidPrice         = "INVALID_PRICE"
	CodeInactiveCounterparty = "INACTIVE_COUNTERPARTY"
	CodeInactiveProduct      = "INACTIVE_PRODUCT"

	// Integrity violations (422)
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInconsistentTotal = "INCONSISTENT_TOTAL"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound             = "NOT_FOUND"
	CodeProductNotFound      = "PRODUCT_NOT_FOUND"
	CodeCounterpartyNotFound = "COUNTERPARTY_NOT_FOUND"

	// Conflict (409)
	CodeConflict               = "CONFLICT"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeIdempotency            = "IDEMPOTENCY_CONFLICT"
)

// AppError is the standard error type for the ledger.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Kind is the taxonomy bucket the code belongs to
	Kind Kind `json:"kind"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (missing ids, attempted transition, quantities)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func newError(kind Kind, code, message string, status int) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: status,
	}
}

// --- Validation ---

// NewValidation creates a generic validation error (400)
func NewValidation(message string) *AppError {
	return newError(KindValidation, CodeValidation, message, http.StatusBadRequest)
}

// NewEmptyTransaction is returned when a transaction command carries no lines.
func NewEmptyTransaction() *AppError {
	return newError(KindValidation, CodeEmptyTransaction,
		"transaction must contain at least one line", http.StatusBadRequest)
}

// NewDuplicateLineProduct reports products that appear on more than one line.
func NewDuplicateLineProduct(productIDs []string) *AppError {
	return newError(KindValidation, CodeDuplicateLineProduct,
		"each product may appear on only one line", http.StatusBadRequest).
		WithDetail("product_ids", productIDs)
}

// NewInvalidQuantity reports lines whose quantity is not allowed.
func NewInvalidQuantity(productIDs []string) *AppError {
	return newError(KindValidation, CodeInvalidQuantity,
		"line quantity must be a positive integer", http.StatusBadRequest).
		WithDetail("product_ids", productIDs)
}

// NewInvalidPrice reports lines with a negative unit price.
func NewInvalidPrice(productIDs []string) *AppError {
	return newError(KindValidation, CodeInvalidPrice,
		"unit price must not be negative", http.StatusBadRequest).
		WithDetail("product_ids", productIDs)
}

// NewInactiveCounterparty is returned when the referenced client or provider is deactivated.
func NewInactiveCounterparty(entity string, id any) *AppError {
	return newError(KindValidation, CodeInactiveCounterparty,
		fmt.Sprintf("%s is inactive", entity), http.StatusBadRequest).
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewInactiveProduct is returned when stock is moved for a deactivated product.
func NewInactiveProduct(productID any) *AppError {
	return newError(KindValidation, CodeInactiveProduct,
		"product is inactive", http.StatusBadRequest).
		WithDetail("product_id", productID)
}

// --- Not found ---

// NewNotFound creates a not found error (404).
// Cross-tenant lookups produce this error too, never a permission error.
func NewNotFound(entity string, id any) *AppError {
	return newError(KindNotFound, CodeNotFound,
		fmt.Sprintf("%s not found", entity), http.StatusNotFound).
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewProductNotFound lists every product id that could not be resolved.
func NewProductNotFound(missing []string) *AppError {
	return newError(KindNotFound, CodeProductNotFound,
		"one or more products not found", http.StatusNotFound).
		WithDetail("missing_product_ids", missing)
}

// NewCounterpartyNotFound creates an error for an unresolved client or provider.
func NewCounterpartyNotFound(entity string, id any) *AppError {
	return newError(KindNotFound, CodeCounterpartyNotFound,
		fmt.Sprintf("%s not found", entity), http.StatusNotFound).
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// --- Integrity ---

// NewInsufficientStock creates a stock shortage error (422)
func NewInsufficientStock(productID string, requested, available int64) *AppError {
	return newError(KindIntegrity, CodeInsufficientStock,
		"Insufficient stock", http.StatusUnprocessableEntity).
		WithDetail("product_id", productID).
		WithDetail("requested", requested).
		WithDetail("available", available)
}

// NewInconsistentTotal reports a stored transaction whose totals disagree with its lines.
func NewInconsistentTotal(transactionID string, stored, computed string) *AppError {
	return newError(KindIntegrity, CodeInconsistentTotal,
		"transaction total does not match its lines", http.StatusUnprocessableEntity).
		WithDetail("transaction_id", transactionID).
		WithDetail("stored_total", stored).
		WithDetail("computed_total", computed)
}

// --- Conflict ---

// NewInvalidTransition reports a status change the lifecycle does not allow.
func NewInvalidTransition(from, to string) *AppError {
	return newError(KindConflict, CodeInvalidTransition,
		fmt.Sprintf("cannot change status from %s to %s", from, to), http.StatusConflict).
		WithDetail("from", from).
		WithDetail("to", to)
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return newError(KindConflict, CodeConcurrentModification,
		"Record was modified concurrently. Please retry.", http.StatusConflict).
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return newError(KindConflict, CodeConflict, message, http.StatusConflict)
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return newError(KindConflict, CodeDuplicate,
		fmt.Sprintf("%s with this %s already exists", entity, field), http.StatusConflict).
		WithDetail("entity", entity).
		WithDetail("field", field).
		WithDetail("value", value)
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return newError(KindConflict, CodeIdempotency,
		"Operation already in progress or completed", http.StatusConflict).
		WithDetail("idempotency_key", key)
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request (different user/operation/body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return newError(KindConflict, CodeIdempotency,
		"Idempotency key mismatch", http.StatusConflict).
		WithDetail("idempotency_key", key)
}

// --- Infrastructure / auth ---

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return newError(KindInternal, CodeInternal, "Internal server error",
		http.StatusInternalServerError).WithCause(err)
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return newError(KindUnauthorized, CodeUnauthorized, message, http.StatusUnauthorized)
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return newError(KindUnauthorized, CodeForbidden, message, http.StatusForbidden)
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the taxonomy bucket of err. Plain errors are internal.
func KindOf(err error) Kind {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error belongs to the not-found kind
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}
