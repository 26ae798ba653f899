package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	// SourceAccountNotFound deliberately covers "missing", "not owned" and
	// "not active" so that callers cannot probe which accounts exist.
	SourceAccountNotFound      ErrorCode = "source_account_not_found"
	DestinationAccountNotFound ErrorCode = "destination_account_not_found"
	AccountNotFound            ErrorCode = "account_not_found"
	TransferNotFound           ErrorCode = "transfer_not_found"
	InvalidInput               ErrorCode = "invalid_input"
	InvalidAmount              ErrorCode = "invalid_amount"
	SameAccountTransfer        ErrorCode = "same_account_transfer"
	CurrencyMismatch           ErrorCode = "currency_mismatch"
	InsufficientFunds          ErrorCode = "insufficient_funds"
	DuplicateAccount           ErrorCode = "duplicate_account"
	DuplicateTransfer          ErrorCode = "duplicate_transfer"
	AccountNotEmpty            ErrorCode = "account_not_empty"
	TransferNotCancellable     ErrorCode = "transfer_not_cancellable"
	InternalError              ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// HTTPStatus maps an error kind to the status the HTTP layer should answer
// with. DuplicateTransfer is included for completeness only; the transfer
// service recovers it internally and never surfaces it.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case SourceAccountNotFound, DestinationAccountNotFound, AccountNotFound, TransferNotFound:
		return http.StatusNotFound
	case InvalidInput, InvalidAmount, SameAccountTransfer:
		return http.StatusBadRequest
	case CurrencyMismatch:
		return http.StatusUnprocessableEntity
	case InsufficientFunds, DuplicateAccount, DuplicateTransfer, AccountNotEmpty, TransferNotCancellable:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf extracts the error code, or InternalError for anything untyped.
func CodeOf(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return InternalError
}

// Predefined errors for common cases
var (
	ErrSourceAccountNotFound      = NewAppError(SourceAccountNotFound, "source account not found or not accessible")
	ErrDestinationAccountNotFound = NewAppError(DestinationAccountNotFound, "destination account not found")
	ErrAccountNotFound            = NewAppError(AccountNotFound, "account not found")
	ErrTransferNotFound           = NewAppError(TransferNotFound, "transfer not found")
	ErrInvalidAmount              = NewAppError(InvalidAmount, "amount must be positive")
	ErrSameAccountTransfer        = NewAppError(SameAccountTransfer, "source and destination accounts must differ")
	ErrCurrencyMismatch           = NewAppError(CurrencyMismatch, "currency does not match source account currency")
	ErrInsufficientFunds          = NewAppError(InsufficientFunds, "insufficient funds")
	ErrDuplicateAccount           = NewAppError(DuplicateAccount, "account already exists")
	ErrDuplicateTransfer          = NewAppError(DuplicateTransfer, "transfer with this idempotency key already exists")
	ErrAccountNotEmpty            = NewAppError(AccountNotEmpty, "account balance must be zero before closing")
	ErrTransferNotCancellable     = NewAppError(TransferNotCancellable, "only pending transfers can be cancelled")
	ErrCannotBeginTransaction     = NewAppError(InternalError, "cannot begin transaction from within a transaction")
)
