package provider

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrProviderMisconfigured is returned by New for invalid Options.
	ErrProviderMisconfigured = errors.New("provider misconfigured")
	// ErrUnknownSocialProvider is returned when no SocialProvider is registered under an id.
	ErrUnknownSocialProvider = errors.New("unknown social provider")
)

// APIError is a client-facing failure with a fixed HTTP status and message.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError builds an APIError with the status text as code.
func NewAPIError(status int, message string) *APIError {
	code := strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	return &APIError{Status: status, Code: code, Message: message}
}

// BadRequest is the 400 shorthand used by hooks.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, message)
}

var (
	errInvalidCredentials = &APIError{Status: http.StatusUnauthorized, Code: "INVALID_EMAIL_OR_PASSWORD", Message: "Invalid email or password"}
	errEmailNotVerified   = &APIError{Status: http.StatusForbidden, Code: "EMAIL_NOT_VERIFIED", Message: "Email not verified"}
	errInvalidBody        = &APIError{Status: http.StatusBadRequest, Code: "INVALID_REQUEST_BODY", Message: "Invalid request body"}
	errInvalidEmail       = &APIError{Status: http.StatusBadRequest, Code: "INVALID_EMAIL", Message: "Invalid email"}
	errPasswordTooShort   = &APIError{Status: http.StatusBadRequest, Code: "PASSWORD_TOO_SHORT", Message: "Password too short"}
	errPasswordTooLong    = &APIError{Status: http.StatusBadRequest, Code: "PASSWORD_TOO_LONG", Message: "Password too long"}
	errInvalidToken       = &APIError{Status: http.StatusBadRequest, Code: "INVALID_TOKEN", Message: "Invalid token"}
	errUnauthorized       = &APIError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Unauthorized"}
	errUserExists         = &APIError{Status: http.StatusUnprocessableEntity, Code: "USER_ALREADY_EXISTS", Message: "User already exists"}
	errUserNotFound       = &APIError{Status: http.StatusBadRequest, Code: "USER_NOT_FOUND", Message: "User not found"}
	errAlreadyVerified    = &APIError{Status: http.StatusBadRequest, Code: "EMAIL_ALREADY_VERIFIED", Message: "Email is already verified"}
	errNotFound           = &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "Not Found"}
	errTooManyRequests    = &APIError{Status: http.StatusTooManyRequests, Code: "TOO_MANY_REQUESTS", Message: "Too many requests. Please try again later."}
	errInvalidOrigin      = &APIError{Status: http.StatusForbidden, Code: "INVALID_ORIGIN", Message: "Invalid origin"}
	errInvalidCallbackURL = &APIError{Status: http.StatusForbidden, Code: "INVALID_CALLBACK_URL", Message: "Invalid callbackURL"}
	errProviderNotFound   = &APIError{Status: http.StatusNotFound, Code: "PROVIDER_NOT_FOUND", Message: "Provider not found"}
	errOrgCreateForbidden = &APIError{Status: http.StatusForbidden, Code: "ORGANIZATION_CREATION_DISABLED", Message: "You are not allowed to create a new organization"}
	errNotOrgMember       = &APIError{Status: http.StatusForbidden, Code: "NOT_A_MEMBER", Message: "You are not a member of this organization"}
	errOrgNotFound        = &APIError{Status: http.StatusBadRequest, Code: "ORGANIZATION_NOT_FOUND", Message: "Organization not found"}
	errInternal           = &APIError{Status: http.StatusInternalServerError, Code: "INTERNAL_SERVER_ERROR", Message: "internal server error"}
)
