package apperr

import (
	"errors"
	"net/http"
)

// Error is a domain failure with a stable numeric code and the HTTP status
// the transport layer should answer with. Instances below are sentinels,
// match them with errors.Is.
type Error struct {
	Code    int
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

var (
	ErrUncategorized           = &Error{Code: 9999, Message: "uncategorized error", Status: http.StatusInternalServerError}
	ErrUserExists              = &Error{Code: 1002, Message: "user already existed", Status: http.StatusBadRequest}
	ErrUsernameInvalid         = &Error{Code: 1003, Message: "username must be 8-24 characters, letters and digits only", Status: http.StatusBadRequest}
	ErrPasswordInvalid         = &Error{Code: 1004, Message: "password must be at least 8 characters, letters and digits only", Status: http.StatusBadRequest}
	ErrUserNotFound            = &Error{Code: 1005, Message: "user not existed", Status: http.StatusNotFound}
	ErrUnauthenticated         = &Error{Code: 1006, Message: "unauthenticated", Status: http.StatusUnauthorized}
	ErrUnauthorized            = &Error{Code: 1007, Message: "you do not have permission", Status: http.StatusForbidden}
	ErrInvalidDOB              = &Error{Code: 1008, Message: "your age must be at least 18", Status: http.StatusBadRequest}
	ErrEmailExists             = &Error{Code: 1009, Message: "email already existed", Status: http.StatusBadRequest}
	ErrEmailInvalid            = &Error{Code: 1015, Message: "email is not valid", Status: http.StatusBadRequest}
	ErrUserNotVerified         = &Error{Code: 1010, Message: "user not verified", Status: http.StatusBadRequest}
	ErrInvalidVerificationCode = &Error{Code: 1011, Message: "invalid verification code", Status: http.StatusBadRequest}
	ErrVerificationCodeExpired = &Error{Code: 1012, Message: "verification code expired", Status: http.StatusBadRequest}
	ErrInvalidOldPassword      = &Error{Code: 1013, Message: "invalid old password", Status: http.StatusBadRequest}
	ErrNewPasswordSameAsOld    = &Error{Code: 1014, Message: "new password cannot be the same as old password", Status: http.StatusBadRequest}
	ErrMalformedToken          = &Error{Code: 1016, Message: "malformed token", Status: http.StatusUnauthorized}
	ErrSigningFailure          = &Error{Code: 1017, Message: "cannot sign token", Status: http.StatusInternalServerError}
)

// From extracts the domain error from err, falling back to ErrUncategorized
// so the transport layer never leaks raw storage errors.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrUncategorized
}
