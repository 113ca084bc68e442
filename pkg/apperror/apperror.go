// Package apperror defines the error taxonomy shared by services and HTTP handlers.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine readable error code.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"      // 400
	CodeNotFound            Code = "NOT_FOUND"             // 404
	CodeUpstreamFormat      Code = "UPSTREAM_FORMAT_ERROR" // 500
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"  // 500
	CodeStorage             Code = "STORAGE_ERROR"         // 500
	CodeConfiguration       Code = "CONFIGURATION_ERROR"   // 500
	CodeMailAuth            Code = "MAIL_AUTH_ERROR"       // 500
	CodeMailUnavailable     Code = "MAIL_UNAVAILABLE"      // 500
	CodeInternal            Code = "INTERNAL"              // 500
)

// Error is a structured error carrying an HTTP status and optional details.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail returns e with key set in its details map.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func NewValidation(msg string) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: msg}
}

func NewNotFound(what, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s not found", what),
		Details: map[string]any{"id": id},
	}
}

// NewUpstreamFormat reports an upstream reply that could not be interpreted.
// raw is attached to the details so callers can inspect what came back.
func NewUpstreamFormat(msg, raw string) *Error {
	e := &Error{Code: CodeUpstreamFormat, Status: http.StatusInternalServerError, Message: msg}
	if raw != "" {
		e.WithDetail("raw_content", raw)
	}
	return e
}

func NewUpstreamUnavailable(msg string, err error) *Error {
	return &Error{Code: CodeUpstreamUnavailable, Status: http.StatusInternalServerError, Message: msg, Err: err}
}

func NewStorage(msg string, err error) *Error {
	return &Error{Code: CodeStorage, Status: http.StatusInternalServerError, Message: msg, Err: err}
}

func NewConfiguration(msg string) *Error {
	return &Error{Code: CodeConfiguration, Status: http.StatusInternalServerError, Message: msg}
}

func NewMailAuth(err error) *Error {
	return &Error{
		Code:    CodeMailAuth,
		Status:  http.StatusInternalServerError,
		Message: "mail server rejected the credentials, check EMAIL_USERNAME and EMAIL_PASSWORD",
		Err:     err,
	}
}

func NewMailUnavailable(err error) *Error {
	return &Error{Code: CodeMailUnavailable, Status: http.StatusInternalServerError, Message: "failed to send email", Err: err}
}

func NewInternal(err error) *Error {
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "internal error", Err: err}
}

// Is reports whether err is (or wraps) an *Error with the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// From converts any error into an *Error. Unknown errors become INTERNAL.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}

// Response is the JSON body written for failed requests.
type Response struct {
	Error     string         `json:"error"`
	Code      Code           `json:"code"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Write renders err as a JSON error response. The wrapped cause never leaks to the client.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	appErr := From(err)

	resp := Response{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}
	if r != nil {
		resp.RequestID = r.Header.Get("X-Request-Id")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(resp)
}
