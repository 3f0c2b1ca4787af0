/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure by cause so callers can decide whether to retry.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindTransport
	KindServer
	KindCache
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindCache:
		return "cache"
	case KindUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

var (
	ErrNoActionSelected     = errors.New("no action selected")
	ErrActionDisabled       = errors.New("action is disabled")
	ErrUnknownAction        = errors.New("unknown action type")
	ErrEmptyTargetSelection = errors.New("none of the requested targets are in the device roster")
	ErrMalformedParameters  = errors.New("malformed parameters")
	ErrMissingOrg           = errors.New("organization id is required")
	ErrInvalidTarget        = errors.New("invalid target device id")
	ErrMissingCommandID     = errors.New("command id is required")
)

// Error is a classified failure from a fleet operation.
type Error struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s error (status %d): %s", e.Op, e.Kind, e.StatusCode, msg)
	}

	return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError wraps one of the validation sentinels.
func NewValidationError(op string, err error, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg, Err: err}
}

// NewTransportError wraps a network-level failure.
func NewTransportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// NewServerError records a non-success response.
func NewServerError(op string, status int, msg string) *Error {
	if msg == "" {
		msg = http.StatusText(status)
	}

	return &Error{Kind: KindServer, Op: op, StatusCode: status, Message: msg}
}

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// IsRetryable reports whether err is transient: a transport failure or a 5xx.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Kind {
	case KindTransport:
		return true
	case KindServer:
		return e.StatusCode >= http.StatusInternalServerError
	case KindUnknown, KindValidation, KindCache:
		return false
	default:
		return false
	}
}
