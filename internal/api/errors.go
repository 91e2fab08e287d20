package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAuthExpired is returned after a 401 on an authenticated call.
// The session has already been torn down by the time callers see it.
var ErrAuthExpired = errors.New("authentication expired")

// RequestFailedError is any non-2xx response other than an auth expiry,
// or a 2xx whose body did not have the expected shape.
type RequestFailedError struct {
	Status  int
	Message string
	Err     error
}

func (e *RequestFailedError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("request failed: http %d: %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("request failed: http %d: %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("request failed: http %d", e.Status)
	}
}

func (e *RequestFailedError) Unwrap() error { return e.Err }

// ShapeError reports a response body that did not decode into the pinned shape.
type ShapeError struct {
	Endpoint string
	Err      error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unexpected response shape from %s: %v", e.Endpoint, e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// Message returns the server supplied message of err, or fallback.
func Message(err error, fallback string) string {
	var rf *RequestFailedError
	if errors.As(err, &rf) && rf.Message != "" {
		return rf.Message
	}
	return fallback
}

func serverMessage(body []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return payload.Message
}
