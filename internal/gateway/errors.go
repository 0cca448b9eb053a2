package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed service call.
type ErrorKind string

const (
	// KindNetwork covers transport failures and timeouts; the request may
	// never have reached the service.
	KindNetwork ErrorKind = "network"
	// KindAuth is a 401: the session token is invalid or expired.
	KindAuth ErrorKind = "auth"
	// KindForbidden is a 403: the session is valid but the action is denied
	// (bad API key, or acting on another user's resource).
	KindForbidden ErrorKind = "forbidden"
	// KindValidation is any other 4xx: the service rejected the input.
	KindValidation ErrorKind = "validation"
	// KindServer is a 5xx or a response whose shape the client cannot decode.
	KindServer ErrorKind = "server"
)

// APIError is the classified result of a failed service call.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func kindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsAuth reports whether err is a 401 classification.
func IsAuth(err error) bool { return kindOf(err) == KindAuth }

// IsForbidden reports whether err is a 403 classification.
func IsForbidden(err error) bool { return kindOf(err) == KindForbidden }

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool { return kindOf(err) == KindNetwork }

// IsValidation reports whether err is a rejected-input classification.
func IsValidation(err error) bool { return kindOf(err) == KindValidation }

// IsServer reports whether err is a 5xx or undecodable-payload classification.
func IsServer(err error) bool { return kindOf(err) == KindServer }
