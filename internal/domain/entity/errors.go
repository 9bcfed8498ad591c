package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the wallet core.
type ErrorKind string

const (
	KindProviderUnavailable  ErrorKind = "ProviderUnavailable"
	KindHandshakeRejected    ErrorKind = "HandshakeRejected"
	KindAccountMismatch      ErrorKind = "AccountMismatch"
	KindRegistrationFailed   ErrorKind = "RegistrationFailed"
	KindWalletNotFound       ErrorKind = "WalletNotFound"
	KindUnsupportedOperation ErrorKind = "UnsupportedOperation"
	KindNetworkUnsupported   ErrorKind = "NetworkUnsupported"
	KindUnauthorized         ErrorKind = "Unauthorized"
	KindBackendError         ErrorKind = "BackendError"
	KindSignatureRejected    ErrorKind = "SignatureRejected"
	KindPermissionDenied     ErrorKind = "PermissionDenied"
	KindInvalidInput         ErrorKind = "InvalidInput"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrProviderUnavailable  = &Error{Kind: KindProviderUnavailable}
	ErrHandshakeRejected    = &Error{Kind: KindHandshakeRejected}
	ErrAccountMismatch      = &Error{Kind: KindAccountMismatch}
	ErrRegistrationFailed   = &Error{Kind: KindRegistrationFailed}
	ErrWalletNotFound       = &Error{Kind: KindWalletNotFound}
	ErrUnsupportedOperation = &Error{Kind: KindUnsupportedOperation}
	ErrNetworkUnsupported   = &Error{Kind: KindNetworkUnsupported}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized}
	ErrBackend              = &Error{Kind: KindBackendError}
	ErrSignatureRejected    = &Error{Kind: KindSignatureRejected}
	ErrPermissionDenied     = &Error{Kind: KindPermissionDenied}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
)

// Error is the typed error returned across the wallet core.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	// Status is the backend HTTP status for KindBackendError / KindUnauthorized, 0 otherwise.
	Status int
	Err    error
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
