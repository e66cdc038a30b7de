package ledger

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoToken is wrapped by AuthError when no bearer token is stored.
	ErrNoToken = errors.New("no auth token")
	// ErrTokenExpired is wrapped by AuthError when the stored token's exp claim has passed.
	ErrTokenExpired = errors.New("auth token expired")
)

// AuthError reports a missing, expired, or rejected credential. It is never retried.
type AuthError struct {
	RequestID string
	Message   string
	Err       error
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "unauthorized"
	}
	return "auth: " + msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError reports a transport failure. GET requests that fail this way are retried.
type NetworkError struct {
	Method    string
	Path      string
	RequestID string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// FieldError is a user-correctable problem with one request field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports a 4xx response (other than 401) or an envelope with success=false.
type ValidationError struct {
	Status    int
	Message   string
	Detail    string
	Fields    []FieldError
	RequestID string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation")
	if e.Status > 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	b.WriteString(": ")
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Detail != "":
		b.WriteString(e.Detail)
	default:
		b.WriteString(http.StatusText(e.Status))
	}
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "; %s: %s", f.Field, f.Message)
	}
	return b.String()
}

// FieldMessage returns the message attached to field, if any.
func (e *ValidationError) FieldMessage(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// ServerError reports a 5xx response or an undecodable payload.
type ServerError struct {
	Status    int
	Message   string
	RequestID string
	Err       error
}

func (e *ServerError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Status > 0 {
		return fmt.Sprintf("server (%d): %s", e.Status, msg)
	}
	return "server: " + msg
}

func (e *ServerError) Unwrap() error { return e.Err }

// IsAuth reports whether err is or wraps an *AuthError.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsNetwork reports whether err is or wraps a *NetworkError.
func IsNetwork(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsServer reports whether err is or wraps a *ServerError.
func IsServer(err error) bool {
	var target *ServerError
	return errors.As(err, &target)
}
