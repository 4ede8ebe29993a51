// Package walleterr holds the error taxonomy shared by every wallet component.
// Callers branch on Code, never on message text.
package walleterr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeUnspecified Code = ""

	CodeConfig        Code = "CONFIG_ERROR"
	CodeCallException Code = "CALL_EXCEPTION"

	CodeWalletNotReady Code = "WALLET_NOT_READY"
	CodeWalletNotOwned Code = "WALLET_NOT_OWNED"

	CodeModuleAlreadyInstalled Code = "MODULE_ALREADY_INSTALLED"
	CodeModuleNotInstalled     Code = "MODULE_NOT_INSTALLED"
	CodeModuleNotSupported     Code = "MODULE_NOT_SUPPORTED"

	CodeInvalidSignerType Code = "INVALID_SIGNER_TYPE"

	CodeJwtSignerInvalidJwt        Code = "JWT_SIGNER_INVALID_JWT"
	CodeJwtSignerInvalidCredential Code = "JWT_SIGNER_INVALID_CREDENTIAL"
	CodeJwtSignerRateLimit         Code = "JWT_SIGNER_RATE_LIMIT"
	CodeJwtSigner                  Code = "JWT_SIGNER_ERROR"
	CodeJwtInitSigner              Code = "JWT_INIT_SIGNER_ERROR"

	CodeBundler            Code = "BUNDLER_ERROR"
	CodeMaxRetriesExceeded Code = "MAX_RETRIES_EXCEEDED"

	CodeRecoveryNotReady Code = "RECOVERY_EXECUTE_NOT_READY"
)

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrConfig                 = &Error{Code: CodeConfig}
	ErrCallException          = &Error{Code: CodeCallException}
	ErrWalletNotReady         = &Error{Code: CodeWalletNotReady}
	ErrWalletNotOwned         = &Error{Code: CodeWalletNotOwned}
	ErrModuleAlreadyInstalled = &Error{Code: CodeModuleAlreadyInstalled}
	ErrModuleNotInstalled     = &Error{Code: CodeModuleNotInstalled}
	ErrModuleNotSupported     = &Error{Code: CodeModuleNotSupported}
	ErrInvalidSignerType      = &Error{Code: CodeInvalidSignerType}
	ErrInvalidJwt             = &Error{Code: CodeJwtSignerInvalidJwt}
	ErrInvalidCredential      = &Error{Code: CodeJwtSignerInvalidCredential}
	ErrRateLimit              = &Error{Code: CodeJwtSignerRateLimit}
	ErrSignerService          = &Error{Code: CodeJwtSigner}
	ErrSignerInit             = &Error{Code: CodeJwtInitSigner}
	ErrBundler                = &Error{Code: CodeBundler}
	ErrMaxRetriesExceeded     = &Error{Code: CodeMaxRetriesExceeded}
	ErrRecoveryNotReady       = &Error{Code: CodeRecoveryNotReady}
)

// Error carries a stable code plus a human readable message.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}

	cause error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is a *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func New(code Code, message string, details ...map[string]interface{}) *Error {
	var detailsMap map[string]interface{}
	if len(details) > 0 {
		detailsMap = details[0]
	}

	return &Error{
		Code:    code,
		Message: message,
		Details: detailsMap,
	}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code to err, keeping err reachable through errors.Unwrap.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: err.Error(),
		cause:   err,
	}
}

// CodeOf extracts the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnspecified
}
