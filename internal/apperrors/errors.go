package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across subsystems.
var (
	// ErrAlreadyRegistered indicates a second agent tried to claim a device id.
	ErrAlreadyRegistered = errors.New("device already registered")

	// ErrNotFound indicates a lookup for an unknown device id.
	ErrNotFound = errors.New("device not found")

	// ErrPreconditionFailed indicates a GENA request was rejected with HTTP 412.
	ErrPreconditionFailed = errors.New("subscription precondition failed")
)

// ArgumentError indicates an invalid lookup key or command argument.
type ArgumentError struct {
	Argument string
	Message  string
}

func (e *ArgumentError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid argument: %s", e.Argument)
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Message)
}

// TransportError indicates network I/O to a device failed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// InvalidResponseError indicates an HTTP 2xx response whose body could not
// be decoded.
type InvalidResponseError struct {
	Op  string
	Err error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("%s: invalid response: %v", e.Op, e.Err)
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}

// UpnpError is a SOAP fault returned by a device.
type UpnpError struct {
	Action      string
	Code        string
	Description string
}

func (e *UpnpError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("upnp action %s rejected: code %s", e.Action, e.Code)
	}
	return fmt.Sprintf("upnp action %s rejected: code %s (%s)", e.Action, e.Code, e.Description)
}
