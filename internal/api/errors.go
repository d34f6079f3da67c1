package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the one error shape every failed request turns into.
// Status is 0 when no response was received.
type Error struct {
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Retryable reports whether the status is worth another attempt
func (e *Error) Retryable() bool {
	return retryableStatus(e.Status)
}

const noResponseMessage = "No response from server. Please check your connection."

func retryableStatus(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

// StatusOf returns the status carried by err, or -1 if err is not an *Error
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return -1
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
