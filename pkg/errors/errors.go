package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation           = errors.New("validation failed")
	ErrMemberNotFound       = errors.New("member not found")
	ErrCycleNotFound        = errors.New("cycle not found")
	ErrTypeNotFound         = errors.New("contribution type not found")
	ErrContributionNotFound = errors.New("contribution not found")
	ErrNoActiveCycle        = errors.New("no active cycle for chama")
	ErrDuplicatePayment     = errors.New("payment reference already processed")
	ErrConcurrencyConflict  = errors.New("concurrent update conflict")
	ErrInvalidTransition    = errors.New("illegal cycle status transition")
	ErrStorage              = errors.New("storage operation failed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeMemberNotFound       = "MEMBER_NOT_FOUND"
	ErrCodeCycleNotFound        = "CYCLE_NOT_FOUND"
	ErrCodeTypeNotFound         = "TYPE_NOT_FOUND"
	ErrCodeContributionNotFound = "CONTRIBUTION_NOT_FOUND"
	ErrCodeNoActiveCycle        = "NO_ACTIVE_CYCLE"
	ErrCodeDuplicatePayment     = "DUPLICATE_PAYMENT"
	ErrCodeConcurrencyConflict  = "CONCURRENCY_CONFLICT"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeStorageError         = "STORAGE_ERROR"
	ErrCodeCacheError           = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapValidation(message string) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, ErrValidation)
}

func WrapMemberNotFound(memberID string) *BusinessError {
	return NewBusinessError(
		ErrCodeMemberNotFound,
		fmt.Sprintf("Member with ID %s not found", memberID),
		ErrMemberNotFound,
	)
}

func WrapCycleNotFound(cycleID string) *BusinessError {
	return NewBusinessError(
		ErrCodeCycleNotFound,
		fmt.Sprintf("Cycle with ID %s not found", cycleID),
		ErrCycleNotFound,
	)
}

func WrapTypeNotFound(typeID string) *BusinessError {
	return NewBusinessError(
		ErrCodeTypeNotFound,
		fmt.Sprintf("Contribution type with ID %s not found", typeID),
		ErrTypeNotFound,
	)
}

func WrapContributionNotFound(contributionID string) *BusinessError {
	return NewBusinessError(
		ErrCodeContributionNotFound,
		fmt.Sprintf("Contribution with ID %s not found", contributionID),
		ErrContributionNotFound,
	)
}

func WrapNoActiveCycle(chamaID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoActiveCycle,
		fmt.Sprintf("Chama %s has no active contribution cycle", chamaID),
		ErrNoActiveCycle,
	)
}

func WrapDuplicatePayment(reference string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicatePayment,
		fmt.Sprintf("Payment with reference %s was already recorded", reference),
		ErrDuplicatePayment,
	)
}

func WrapConcurrencyConflict(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrencyConflict,
		"balance update lost a race, the operation can be retried",
		errors.Join(ErrConcurrencyConflict, err),
	)
}

func WrapInvalidTransition(from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTransition,
		fmt.Sprintf("Cycle cannot move from %s to %s", from, to),
		ErrInvalidTransition,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeStorageError,
		"database operation failed",
		errors.Join(ErrStorage, err),
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
