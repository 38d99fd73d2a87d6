// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package apierror is the HTTP analogue of the teacher's ExitError: a
// typed error carrying the response status code it should produce,
// so handlers can return a plain error and let one place translate it
// into a response body.
package apierror

import (
	"encoding/json"
	"net/http"
)

// Error signals the HTTP status and message a handler failure should
// produce.
type Error struct {
	Status  int
	Message string
	Details string
}

func (e *Error) Error() string { return e.Message }

// NotFound builds a 404 Error.
func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

// BadRequest builds a 400 Error.
func BadRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// Forbidden builds a 403 Error, optionally carrying details (e.g. a
// CAPTCHA verifier's error codes).
func Forbidden(message, details string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message, Details: details}
}

// TooManyRequests builds a 429 Error.
func TooManyRequests(message string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Message: message}
}

// Internal builds a 500 Error.
func Internal(message string) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message}
}

// envelope is the wire shape of an error response.
type envelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Write sends err as a JSON error envelope with its status code. If
// err is not an *Error, it is written as a 500 with a generic message.
func Write(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*Error)
	if !ok {
		apiErr = &Error{Status: http.StatusInternalServerError, Message: "internal error"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(envelope{Error: apiErr.Message, Details: apiErr.Details})
}
