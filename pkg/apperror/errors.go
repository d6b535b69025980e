package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet Ledger (WAL) ----

func ErrInvalidAmount() *AppError {
	return New("WAL_001", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrInsufficientBalance() *AppError {
	return New("WAL_002", "Insufficient wallet balance", http.StatusPaymentRequired)
}

func ErrAccountNotFound() *AppError {
	return New("WAL_003", "Account not found", http.StatusNotFound)
}

func ErrRecipientNotFound() *AppError {
	return New("WAL_004", "No account matches the payment identifier", http.StatusNotFound)
}

func ErrSameAccount() *AppError {
	return New("WAL_005", "Sender and recipient are the same account", http.StatusBadRequest)
}

// ---- Order Payment (ORD) ----

func ErrEmptyOrder() *AppError {
	return New("ORD_001", "Order has no payable items", http.StatusBadRequest)
}

func ErrUnknownCustomer() *AppError {
	return New("ORD_002", "Customer account not found", http.StatusNotFound)
}

func ErrUnknownMerchant(merchantID string) *AppError {
	return New("ORD_003", fmt.Sprintf("Merchant account %s not found", merchantID), http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidOTP() *AppError {
	return New("AUTH_001", "Invalid or expired verification code", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

func ErrStorage(err error) *AppError {
	return Wrap("SYS_001", "Storage failure", http.StatusInternalServerError, err)
}

func ErrCryptoConfig(err error) *AppError {
	return Wrap("SYS_002", "Snapshot codec misconfigured", http.StatusInternalServerError, err)
}

func ErrDecode(err error) *AppError {
	return Wrap("SYS_003", "Snapshot could not be decoded", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("WAL_000", message, http.StatusBadRequest)
}
