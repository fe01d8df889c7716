// internal/apperrors/errors.go
// Package apperrors defines the stable error taxonomy surfaced by the
// settlement API. Services wrap these sentinels with context; handlers map
// them to HTTP statuses by code.
package apperrors

import "errors"

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	// Local validation, surfaced to the caller, no retry.
	ErrInvalidTerms   = New("INVALID_TERMS", "listing terms are invalid")
	ErrNotEditable    = New("NOT_EDITABLE", "listing can no longer be edited")
	ErrAlreadySettled = New("ALREADY_SETTLED", "a verified purchase already exists for this listing")

	// Rejected outright, logged for audit, never retried.
	ErrUnknownReference = New("UNKNOWN_REFERENCE", "no purchase intent matches this payment reference")
	ErrSignatureInvalid = New("SIGNATURE_INVALID", "webhook signature verification failed")

	// Transient: retried with backoff, the intent remains pending.
	ErrInsufficientConfirmations = New("INSUFFICIENT_CONFIRMATIONS", "transaction has not reached the required confirmation depth")
	ErrNetworkUnavailable        = New("NETWORK_UNAVAILABLE", "ledger network is unavailable")
	ErrTxNotFound                = New("TX_NOT_FOUND", "transaction not found on the ledger")

	// Invariant violations: fatal to the single operation, raise an alert.
	ErrDuplicateGrant      = New("DUPLICATE_GRANT", "an entitlement was already granted for this purchase")
	ErrAtomicCommitFailure = New("ATOMIC_COMMIT_FAILURE", "settlement commit could not be applied atomically")
)

// CodeOf extracts the stable code from an error chain, or empty string.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsTransient reports whether the error leaves a settlement retryable.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case ErrInsufficientConfirmations.Code, ErrNetworkUnavailable.Code, ErrTxNotFound.Code:
		return true
	}
	return false
}
