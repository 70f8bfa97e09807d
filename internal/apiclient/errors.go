package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the storefront API.
type APIError struct {
	Status  int
	Message string
	Code    string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	return e.Message
}

// errorEnvelope matches {"error":{"message","code","details"}}. Older
// endpoints answer with {"error":"message"}, which is accepted as well.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type errorBody struct {
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Details json.RawMessage `json:"details"`
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		Status:  status,
		Message: fmt.Sprintf("Request failed (%d)", status),
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Error) == 0 {
		return apiErr
	}

	var detail errorBody
	if err := json.Unmarshal(env.Error, &detail); err == nil {
		if detail.Message != "" {
			apiErr.Message = detail.Message
		}
		apiErr.Code = detail.Code
		apiErr.Details = detail.Details
		return apiErr
	}

	var message string
	if err := json.Unmarshal(env.Error, &message); err == nil && message != "" {
		apiErr.Message = message
	}
	return apiErr
}

// ErrorStatus returns the HTTP status carried by err, or 0 when err is not
// an *APIError.
func ErrorStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return ErrorStatus(err) == http.StatusUnauthorized
}

// ErrorMessage returns a user-facing message for err, falling back to
// fallback when err carries none.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
