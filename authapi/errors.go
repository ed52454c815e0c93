package authapi

import (
	"errors"
	"fmt"
)

// Domain error codes, one per operation. The underlying *apiclient.Error
// stays on the chain so status-level classification is still reachable via
// errors.As.
const (
	CodeRegistration  = "REGISTRATION_ERROR"
	CodeLogin         = "LOGIN_ERROR"
	CodeEmailLogin    = "EMAIL_LOGIN_ERROR"
	CodeOTPRequest    = "OTP_REQUEST_ERROR"
	CodeOTPVerify     = "OTP_VERIFY_ERROR"
	CodeGoogleAuthURL = "GOOGLE_AUTH_URL_ERROR"
	CodeGoogleAuth    = "GOOGLE_AUTH_ERROR"
	CodeGetUser       = "GET_USER_ERROR"
)

// Error re-tags a request failure with the operation that produced it,
// preserving the numeric status.
type Error struct {
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}
