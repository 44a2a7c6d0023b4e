package wallet

import (
	"errors"
	"fmt"
)

// WalletError represents a wallet-specific error
type WalletError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *WalletError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeMintUnreachable   = "mint_unreachable"
	ErrCodeAllMintsFailed    = "all_mints_failed"
	ErrCodePendingTimeout    = "pending_timeout"
	ErrCodeRecipientNotFound = "recipient_not_found"
	ErrCodeNoMintsConfigured = "no_mints_configured"
	ErrCodeInvalidInvoice    = "invalid_invoice"
	ErrCodeInvalidRecipient  = "invalid_recipient"
	ErrCodeInvalidMintURL    = "invalid_mint_url"
	ErrCodeInvalidAmount     = "invalid_amount"
	ErrCodePaymentFailed     = "payment_failed"
	ErrCodeStateCorrupt      = "state_corrupt"
)

// NewWalletError creates a new wallet error
func NewWalletError(code, message string, details map[string]interface{}) *WalletError {
	return &WalletError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// HasCode reports whether err (or anything it wraps) is a WalletError
// carrying the given code.
func HasCode(err error, code string) bool {
	var we *WalletError
	return errors.As(err, &we) && we.Code == code
}

// AsWalletError normalizes an arbitrary error into a WalletError so results
// crossing the facade boundary always carry a tagged code.
func AsWalletError(err error, fallbackCode string) *WalletError {
	if err == nil {
		return nil
	}
	var we *WalletError
	if errors.As(err, &we) {
		return we
	}
	return &WalletError{Code: fallbackCode, Message: err.Error()}
}
