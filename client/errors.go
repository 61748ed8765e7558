package client

import (
	"errors"
	"fmt"
)

// ErrorKind classifies transport failures
type ErrorKind string

const (
	// ErrConnect covers DNS, dial, and TLS failures
	ErrConnect ErrorKind = "connect"
	// ErrTimeout covers request deadline and idle timeouts
	ErrTimeout ErrorKind = "timeout"
	// ErrStatus covers non-2xx HTTP responses
	ErrStatus ErrorKind = "status"
	// ErrProtocol covers responses that are not an event stream
	ErrProtocol ErrorKind = "protocol"
)

// Error is a typed transport failure
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a client Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

// IsTimeout reports whether err is a timeout failure
func IsTimeout(err error) bool {
	return IsKind(err, ErrTimeout)
}

// IsStatus reports whether err is a non-2xx response failure
func IsStatus(err error) bool {
	return IsKind(err, ErrStatus)
}
