package cli

import (
	stderrors "errors"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/rileyhilliard/v2dash/internal/api"
	"github.com/rileyhilliard/v2dash/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound       = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid        = "CONFIG_INVALID"
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeAPIError             = "API_ERROR"
	ErrCodeBackendUnreachable   = "BACKEND_UNREACHABLE"
	ErrCodeSSHConnectionFail    = "SSH_CONNECTION_FAILED"
	ErrCodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	ErrCodeUnknown              = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	env := JSONEnvelope{
		Success: true,
		Data:    data,
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONError writes an error response to the writer.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	env := JSONEnvelope{
		Success: false,
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	env := JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	}
	return writeJSONEnvelope(w, env)
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var dashErr *errors.Error
	if stderrors.As(err, &dashErr) {
		return &JSONError{
			Code:       mapErrorCode(dashErr),
			Message:    dashErr.Message,
			Suggestion: dashErr.Suggestion,
		}
	}

	if f, ok := api.AsFailure(err); ok {
		return failureToJSON(f)
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(e *errors.Error) string {
	switch e.Code {
	case errors.ErrConfig:
		msgLower := strings.ToLower(e.Message)
		if strings.Contains(msgLower, "not found") || strings.Contains(msgLower, "couldn't find") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrInput:
		if strings.Contains(strings.ToLower(e.Message), "confirmation") {
			return ErrCodeConfirmationRequired
		}
		return ErrCodeInvalidInput
	case errors.ErrSSH:
		return ErrCodeSSHConnectionFail
	case errors.ErrNetwork:
		return ErrCodeBackendUnreachable
	case errors.ErrAPI:
		if f, ok := api.AsFailure(e.Cause); ok {
			return failureToJSON(f).Code
		}
		if strings.Contains(strings.ToLower(e.Message), "no account") {
			return ErrCodeNotFound
		}
		return ErrCodeAPIError
	}
	return ErrCodeUnknown
}

// failureToJSON converts a raw gateway failure, keeping the HTTP status.
func failureToJSON(f *api.Failure) *JSONError {
	code := ErrCodeAPIError
	switch {
	case f.IsNetwork():
		code = ErrCodeBackendUnreachable
	case f.Status == 404:
		code = ErrCodeNotFound
	}

	details := map[string]interface{}{"operation": f.Op}
	if f.Status != 0 {
		details["status"] = f.Status
	}
	return &JSONError{
		Code:    code,
		Message: f.Message(),
		Details: details,
	}
}
