package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for common failure scenarios.
var (
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrQueueExpired     = errors.New("remote queue expired")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrRoutineNotFound  = errors.New("routine not found")
	ErrConfigNotFound   = errors.New("config file not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// AuthError indicates a mandatory field was missing or invalid in an
// auth-flow response. It forces a logout.
type AuthError struct {
	Step    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s failed: %s", e.Step, e.Message)
}

// NewAuthError creates an AuthError for the given auth flow step.
func NewAuthError(step, message string) error {
	return &AuthError{Step: step, Message: message}
}

// RequestError describes a remote call that failed after all retries.
type RequestError struct {
	Method  string
	URL     string
	Code    int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s failed with code %d: %s", e.Method, e.URL, e.Code, e.Message)
}

// MalformedResponse indicates a response body that could not be decoded.
type MalformedResponse struct {
	URL string
	Err error
}

func (e *MalformedResponse) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
}

func (e *MalformedResponse) Unwrap() error {
	return e.Err
}

// CtlError wraps an error with a user-friendly suggestion.
type CtlError struct {
	Err        error
	Suggestion string
}

func (e *CtlError) Error() string {
	return e.Err.Error()
}

func (e *CtlError) Unwrap() error {
	return e.Err
}

// WithSuggestion wraps an error with a helpful suggestion.
func WithSuggestion(err error, suggestion string) error {
	return &CtlError{
		Err:        err,
		Suggestion: suggestion,
	}
}

// GetSuggestion returns a suggestion for the given error.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	var ctlErr *CtlError
	if errors.As(err, &ctlErr) && ctlErr.Suggestion != "" {
		return ctlErr.Suggestion
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return "Run 'echoctl auth login' to re-authenticate"
	}

	errStr := strings.ToLower(err.Error())

	if errors.Is(err, ErrNotLoggedIn) || strings.Contains(errStr, "not logged in") {
		return "Run 'echoctl auth login' to authenticate"
	}

	if errors.Is(err, ErrQueueExpired) {
		return "The session went stale; the next request renews it automatically. Retry the command"
	}

	if errors.Is(err, ErrDeviceNotFound) {
		return "Run 'echoctl devices' to see available devices"
	}

	if errors.Is(err, ErrRoutineNotFound) {
		return "Run 'echoctl routine list' to see available routines"
	}

	if strings.Contains(errStr, "network") || strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") {
		return "Check your internet connection and try again"
	}

	if errors.Is(err, ErrConfigNotFound) || strings.Contains(errStr, "config") {
		return "Run 'echoctl auth login' to set up your configuration"
	}

	return ""
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	suggestion := GetSuggestion(err)
	if suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}
