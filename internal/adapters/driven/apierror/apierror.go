// Package apierror classifies failed responses from provider HTTP APIs.
//
// Client errors that cannot succeed on retry (bad request, auth, unknown
// model) unwrap to domain.ErrInvalidInput. Rate limits, timeouts and
// server errors carry no kind and stay retryable.
package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

const maxMessageLen = 300

// Error is a non-2xx provider response.
type Error struct {
	Provider string
	Status   int
	Message  string
}

// FromResponse builds an Error from a status code and response body.
func FromResponse(provider string, status int, body []byte) *Error {
	return &Error{
		Provider: provider,
		Status:   status,
		Message:  extractMessage(body),
	}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: API returned status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: API returned status %d: %s", e.Provider, e.Status, e.Message)
}

// Unwrap returns domain.ErrInvalidInput for permanent client errors.
func (e *Error) Unwrap() error {
	if Permanent(e.Status) {
		return domain.ErrInvalidInput
	}
	return nil
}

// Permanent reports whether a status will not change on retry.
func Permanent(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return false
	}
	return status >= 400 && status < 500
}

// extractMessage pulls a human-readable message out of common error shapes:
// {"error":{"message":"..."}}, {"error":"..."} and {"message":"..."}.
func extractMessage(body []byte) string {
	var shaped struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &shaped); err == nil {
		switch {
		case len(shaped.Error) > 0:
			var nested struct {
				Message string `json:"message"`
			}
			var flat string
			if json.Unmarshal(shaped.Error, &nested) == nil && nested.Message != "" {
				msg = nested.Message
			} else if json.Unmarshal(shaped.Error, &flat) == nil {
				msg = flat
			}
		case shaped.Message != "":
			msg = shaped.Message
		}
	}
	if msg == "" {
		msg = string(body)
	}

	msg = strings.TrimSpace(msg)
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen] + "..."
	}
	return msg
}
