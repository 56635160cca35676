package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/tunedeck/internal/shared"
)

// APIError is an unsuccessful backend response.
//
// It unwraps to [shared.ErrSessionExpired] when the failure ended the session and to
// [shared.ErrAPIRequest] otherwise.
type APIError struct {
	Status  int
	Message string
	Body    any

	err error
}

func newAPIError(resp *Response) *APIError {
	return &APIError{
		Status:  resp.Status,
		Message: errorMessage(resp.Status, resp.Data),
		Body:    resp.Data,
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.err == nil {
		return shared.ErrAPIRequest
	}
	return e.err
}

// errorMessage picks the body's detail, then message, then a generic status line.
func errorMessage(status int, body any) string {
	if fields, ok := body.(map[string]any); ok {
		for _, key := range []string{"detail", "message"} {
			if msg := describe(fields[key]); msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

// describe renders a detail/message value; structured values (validation lists) become compact JSON.
func describe(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an [*APIError].
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsSessionExpired reports whether err ended the session.
func IsSessionExpired(err error) bool {
	return errors.Is(err, shared.ErrSessionExpired)
}
