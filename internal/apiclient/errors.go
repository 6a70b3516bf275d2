package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is the normalized failure of a remote call. Status is 0 when the
// request never produced an HTTP response.
type APIError struct {
	Status    int
	Detail    string
	RequestID string
	Err       error
}

func (e *APIError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Detail)
	case e.Err != nil && e.Status == 0:
		return fmt.Sprintf("request failed: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("api error (HTTP %d): %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("api error (HTTP %d)", e.Status)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a 401 from the server
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsTransport reports whether err happened before any HTTP response arrived
func IsTransport(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 0
}

// DetailOf returns the server supplied detail of err, or fallback when the
// server said nothing useful (or there was no server response at all).
func DetailOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// extractDetail pulls a human readable message out of an error body. The API
// uses {"detail": "..."} for application errors and {"detail": [{msg}...]}
// for request validation errors; other shapes fall back to error/message.
func extractDetail(body []byte) string {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}

	for _, field := range []string{"detail", "error", "message"} {
		raw, ok := envelope[field]
		if !ok {
			continue
		}

		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}

		var items []validationItem
		if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg == "" {
					continue
				}
				if name := locField(item.Loc); name != "" {
					msgs = append(msgs, name+": "+item.Msg)
				} else {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}

	return ""
}

// locField returns the last path element of a validation location such as
// ["body", "email"], skipping the leading "body"/"query" marker.
func locField(loc []any) string {
	if len(loc) < 2 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
