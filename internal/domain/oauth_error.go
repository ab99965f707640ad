package domain

import (
	"fmt"
	"net/http"
)

// ErrorCode enumerates the protocol error codes from RFC 6749 Section 5.2 and
// Section 4.1.2.1, plus the OpenID Connect, RFC 7662 and RFC 7009 extensions.
type ErrorCode string

const (
	ErrInvalidRequest          ErrorCode = "invalid_request"
	ErrInvalidClient           ErrorCode = "invalid_client"
	ErrInvalidGrant            ErrorCode = "invalid_grant"
	ErrUnauthorizedClient      ErrorCode = "unauthorized_client"
	ErrUnsupportedGrantType    ErrorCode = "unsupported_grant_type"
	ErrInvalidScope            ErrorCode = "invalid_scope"
	ErrAccessDenied            ErrorCode = "access_denied"
	ErrUnsupportedResponseType ErrorCode = "unsupported_response_type"
	ErrServerError             ErrorCode = "server_error"
	ErrUnsupportedTokenType    ErrorCode = "unsupported_token_type"

	// OIDC request-object errors.
	ErrInvalidRequestObject   ErrorCode = "invalid_request_object"
	ErrInvalidRequestURI      ErrorCode = "invalid_request_uri"
	ErrRequestNotSupported    ErrorCode = "request_not_supported"
	ErrRequestURINotSupported ErrorCode = "request_uri_not_supported"
)

// OAuthError is a protocol error carried as a plain value through the engine.
// The HTTP adapter is solely responsible for turning it into a transport
// response; the engine never builds responses itself.
type OAuthError struct {
	Code        ErrorCode `json:"error"`
	Description string    `json:"error_description,omitempty"`

	// Extra carries side-channel data for the transport layer, such as the
	// supported authentication schemes for a WWW-Authenticate challenge.
	Extra map[string]string `json:"-"`
}

func (e *OAuthError) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewOAuthError builds a protocol error with a formatted description.
func NewOAuthError(code ErrorCode, format string, args ...any) *OAuthError {
	return &OAuthError{Code: code, Description: fmt.Sprintf(format, args...)}
}

// AuthenticationFailed is the uniform client-authentication failure. The
// description never reveals which part of the check failed, to prevent
// client or credential enumeration.
func AuthenticationFailed(schemes string) *OAuthError {
	return &OAuthError{
		Code:        ErrInvalidClient,
		Description: "client authentication failed",
		Extra:       map[string]string{"schemes": schemes},
	}
}

// HTTPStatus maps the error code to the HTTP status the adapters should use.
func (e *OAuthError) HTTPStatus() int {
	switch e.Code {
	case ErrInvalidClient:
		return http.StatusUnauthorized
	case ErrServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
