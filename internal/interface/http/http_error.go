package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/weather-fortune/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

var codeStatus = map[string]int{
	"invalid_input":            http.StatusBadRequest,
	"invalid_request":          http.StatusBadRequest,
	"unauthorized":             http.StatusUnauthorized,
	"invalid_credentials":      http.StatusUnauthorized,
	"invalid_token":            http.StatusForbidden,
	"user_not_found":           http.StatusNotFound,
	"email_exists":             http.StatusConflict,
	"identity_exists":          http.StatusConflict,
	"account_linking_disabled": http.StatusConflict,
	"rate_limit_exceeded":      http.StatusTooManyRequests,
	"oauth_exchange_failed":    http.StatusBadGateway,
	"auth_not_configured":      http.StatusServiceUnavailable,
	"geocode_failed":           http.StatusInternalServerError,
	"weather_fetch_failed":     http.StatusInternalServerError,
	"air_quality_fetch_failed": http.StatusInternalServerError,
}

// fromAppError maps a domain error onto its transport status. Unknown codes
// become 500 responses that keep the domain message.
func fromAppError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	if code == "" {
		return asHTTPError(err)
	}
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return NewHTTPError(status, code, apperrors.MessageOf(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func abortWithAppError(c *gin.Context, err error) {
	abortWithError(c, fromAppError(err))
}
