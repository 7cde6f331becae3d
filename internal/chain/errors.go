package chain

import (
	"errors"
	"fmt"
)

// ErrorCode names a protocol rejection. Each code doubles as the output
// case recorded in the journal for the failed call.
type ErrorCode string

const (
	ErrNotTheContractDeployer       ErrorCode = "NotTheContractDeployer"
	ErrTransferNotPermitted         ErrorCode = "TransferNotPermitted"
	ErrTransferNotAllowedYet        ErrorCode = "TransferNotAllowedYet"
	ErrNoPendingInitiatorProposal   ErrorCode = "NoPendingInitiatorProposal"
	ErrNoActiveInitiator            ErrorCode = "NoActiveInitiator"
	ErrInsufficientCustodyBalance   ErrorCode = "InsufficientCustodyBalance"
	ErrAccessDenied                 ErrorCode = "AccessDenied"
	ErrSubordinateTransferForbidden ErrorCode = "SubordinateTransferForbidden"

	ErrNotTheAdmin                ErrorCode = "NotTheAdmin"
	ErrAlreadyInitialized         ErrorCode = "AlreadyInitialized"
	ErrTokenNotFound              ErrorCode = "TokenNotFound"
	ErrTokenExists                ErrorCode = "TokenExists"
	ErrNotTokenOwner              ErrorCode = "NotTokenOwner"
	ErrNotAuthorized              ErrorCode = "NotAuthorized"
	ErrInvalidAddress             ErrorCode = "InvalidAddress"
	ErrInvalidInitiator           ErrorCode = "InvalidInitiator"
	ErrInitiatorAlreadySet        ErrorCode = "InitiatorAlreadySet"
	ErrNotTheInitiator            ErrorCode = "NotTheInitiator"
	ErrInvalidRecipient           ErrorCode = "InvalidRecipient"
	ErrTransferAlreadyPending     ErrorCode = "TransferAlreadyPending"
	ErrNoPendingTransfer          ErrorCode = "NoPendingTransfer"
	ErrIncompatibleImplementation ErrorCode = "IncompatibleImplementation"
	ErrUnknownImplementation      ErrorCode = "UnknownImplementation"
	ErrVaultNotRegistered         ErrorCode = "VaultNotRegistered"
	ErrAlreadyRegistered          ErrorCode = "AlreadyRegistered"
	ErrInvalidAmount              ErrorCode = "InvalidAmount"
	ErrAssetAlreadyDeposited      ErrorCode = "AssetAlreadyDeposited"
	ErrUnsupportedAsset           ErrorCode = "UnsupportedAsset"
	ErrAssetTransferFailed        ErrorCode = "AssetTransferFailed"
	ErrNoPendingAccessRequest     ErrorCode = "NoPendingAccessRequest"
	ErrInsufficientBalance        ErrorCode = "InsufficientBalance"
	ErrInsufficientAllowance      ErrorCode = "InsufficientAllowance"
	ErrAmountOverflow             ErrorCode = "AmountOverflow"
	ErrInvalidTokenID             ErrorCode = "InvalidTokenID"
	ErrInvalidDelay               ErrorCode = "InvalidDelay"
	ErrInvalidPolicy              ErrorCode = "InvalidPolicy"
)

// Error is a synchronous protocol rejection. A call that returns an *Error
// has changed no state.
type Error struct {
	Code    ErrorCode
	Message string

	// Details carries structured context for diagnostics.
	Details map[string]string

	// Cause is the collaborator error that triggered this one, if any.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Errorf builds an *Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error caused by err.
func Wrap(code ErrorCode, err error, message string) *Error {
	return &Error{Code: code, Message: message, Cause: err}
}

// With attaches a detail key and returns e for chaining.
func (e *Error) With(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// CodeOf returns the outermost protocol error code in err's chain,
// or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsCode reports whether err is a protocol error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
