package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestGetSuggestion(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not logged in", ErrNotLoggedIn, "auth login"},
		{"wrapped not logged in", fmt.Errorf("startup: %w", ErrNotLoggedIn), "auth login"},
		{"auth error", NewAuthError("register", "no tokens"), "re-authenticate"},
		{"queue expired", ErrQueueExpired, "Retry"},
		{"device not found", ErrDeviceNotFound, "echoctl devices"},
		{"routine not found", ErrRoutineNotFound, "routine list"},
		{"network", fmt.Errorf("connection refused"), "internet connection"},
		{"unknown", fmt.Errorf("something else"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetSuggestion(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("expected no suggestion, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected suggestion containing %q, got %q", tt.want, got)
			}
		})
	}
}

func TestWithSuggestionOverrides(t *testing.T) {
	err := WithSuggestion(ErrDeviceNotFound, "custom hint")
	if got := GetSuggestion(err); got != "custom hint" {
		t.Errorf("expected explicit suggestion to win, got %q", got)
	}
	if !Is(err, ErrDeviceNotFound) {
		t.Error("expected wrapped sentinel to survive")
	}
}

func TestFormat(t *testing.T) {
	if got := Format(nil); got != "" {
		t.Errorf("expected empty format for nil, got %q", got)
	}

	got := Format(ErrNotLoggedIn)
	if !strings.Contains(got, "Error: not logged in") {
		t.Errorf("missing error line in %q", got)
	}
	if !strings.Contains(got, "Suggestion:") {
		t.Errorf("missing suggestion line in %q", got)
	}

	plain := Format(fmt.Errorf("opaque failure"))
	if strings.Contains(plain, "Suggestion:") {
		t.Errorf("unexpected suggestion in %q", plain)
	}
}

func TestRequestError(t *testing.T) {
	var err error = &RequestError{Method: "GET", URL: "https://example.com", Code: 503, Message: "Service Unavailable"}
	var reqErr *RequestError
	if !As(err, &reqErr) {
		t.Fatal("expected As to match RequestError")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("expected code in message, got %q", err.Error())
	}
}

func TestMalformedResponseUnwrap(t *testing.T) {
	inner := fmt.Errorf("bad json")
	err := &MalformedResponse{URL: "/api/devices", Err: inner}
	if !Is(err, inner) {
		t.Error("expected unwrap to reach inner error")
	}
}
