package domain

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	apperrors "github.com/rackslot/rackslot-backend/pkg/errors"
)

// Domain sentinels. Every error returned to callers wraps one of these in an
// AppError, so both errors.Is matching and HTTP status mapping work.
var (
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrLocationNotFound     = errors.New("location not found")
	ErrItemNotFound         = errors.New("item not found")
	ErrCounterNotFound      = errors.New("counter not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrLocationMismatch     = errors.New("scanned location does not match")
	ErrItemMismatch         = errors.New("scanned item does not match")
	ErrLocationNotEligible  = errors.New("location not eligible")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrSessionNotFound      = errors.New("session not found")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrRequestIDReused      = errors.New("request id reused")

	// ErrConcurrentConflict marks a lost optimistic-concurrency race. It is
	// retried by the ledger and never reaches HTTP clients directly.
	ErrConcurrentConflict = errors.New("concurrent modification")
)

// CapacityExceeded reports that adding requested would overflow the slot.
func CapacityExceeded(code string, requested, remaining decimal.Decimal) *apperrors.AppError {
	return apperrors.Wrap(ErrCapacityExceeded, "CAPACITY_EXCEEDED",
		"location "+code+" cannot take "+requested.String()+" kg", http.StatusConflict).
		WithDetails(map[string]string{
			"location_code": code,
			"requested":     requested.String(),
			"remaining":     remaining.String(),
		})
}

// ContentionExhausted is reported when the ledger lost every retry. Callers
// see it as a capacity failure and may retry the whole operation.
func ContentionExhausted(key string, attempts int) *apperrors.AppError {
	return apperrors.Wrap(errors.Join(ErrCapacityExceeded, ErrConcurrentConflict), "CAPACITY_EXCEEDED",
		key+" is being updated concurrently, retry", http.StatusConflict).
		WithDetails(map[string]string{
			"key":      key,
			"attempts": strconv.Itoa(attempts),
		})
}

func LocationNotFound(code string) *apperrors.AppError {
	return apperrors.NotFound(ErrLocationNotFound, "LOCATION_NOT_FOUND", "location "+code)
}

func ItemNotFound(code string) *apperrors.AppError {
	return apperrors.NotFound(ErrItemNotFound, "ITEM_NOT_FOUND", "item "+code)
}

func CounterNotFound(category string) *apperrors.AppError {
	return apperrors.NotFound(ErrCounterNotFound, "COUNTER_NOT_FOUND", "counter for category "+category)
}

func CategoryNotFound(category string) *apperrors.AppError {
	return apperrors.Wrap(ErrCategoryNotFound, "VALIDATION_ERROR", "validation failed", http.StatusBadRequest).
		WithDetails(map[string]string{"category": "unknown category " + category})
}

func SessionNotFound(id string) *apperrors.AppError {
	return apperrors.NotFound(ErrSessionNotFound, "SESSION_NOT_FOUND", "session "+id)
}

// LocationMismatch is returned when the scanned slot differs from the confirmed one.
func LocationMismatch(expected, scanned string) *apperrors.AppError {
	return apperrors.Unprocessable(ErrLocationMismatch, "LOCATION_MISMATCH", "scanned location does not match").
		WithDetails(map[string]string{"expected": expected, "scanned": scanned})
}

// ItemMismatch is returned when the scanned label differs from the session item.
func ItemMismatch(expected, scanned string) *apperrors.AppError {
	return apperrors.Unprocessable(ErrItemMismatch, "ITEM_MISMATCH", "scanned item does not match").
		WithDetails(map[string]string{"expected": expected, "scanned": scanned})
}

func LocationNotEligible(code, reason string) *apperrors.AppError {
	return apperrors.Unprocessable(ErrLocationNotEligible, "LOCATION_NOT_ELIGIBLE", "location "+code+" is not eligible: "+reason)
}

// InvalidTransition is returned when an operation is not allowed in the current state.
func InvalidTransition(operation, state string) *apperrors.AppError {
	return apperrors.Wrap(ErrInvalidTransition, "INVALID_TRANSITION", operation+" not allowed in state "+state, http.StatusConflict).
		WithDetails(map[string]string{"operation": operation, "state": state})
}

func InsufficientQuantity(category string, requested, available int) *apperrors.AppError {
	return apperrors.Wrap(ErrInsufficientQuantity, "INSUFFICIENT_QUANTITY", "not enough stock in "+category, http.StatusConflict).
		WithDetails(map[string]string{
			"category":  category,
			"requested": strconv.Itoa(requested),
			"available": strconv.Itoa(available),
		})
}

func validationError(details map[string]string) *apperrors.AppError {
	return apperrors.Validation(details)
}

// CounterCapacityExceeded reports an IN that would push a counter past its max.
func CounterCapacityExceeded(category string, requested, remaining int) *apperrors.AppError {
	return apperrors.Wrap(ErrCapacityExceeded, "CAPACITY_EXCEEDED", "counter "+category+" is full", http.StatusConflict).
		WithDetails(map[string]string{
			"category":  category,
			"requested": strconv.Itoa(requested),
			"remaining": strconv.Itoa(remaining),
		})
}

// RequestIDReused is returned when a request id already recorded a different
// adjustment.
func RequestIDReused(requestID string, original *Movement) *apperrors.AppError {
	return apperrors.Wrap(ErrRequestIDReused, "REQUEST_ID_REUSED",
		"request "+requestID+" was already used for another adjustment", http.StatusConflict).
		WithDetails(map[string]string{
			"request_id": requestID,
			"category":   original.Category,
			"direction":  string(original.Type),
		})
}
