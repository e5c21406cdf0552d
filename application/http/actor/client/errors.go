package client

import (
	"fmt"

	"grabber/transport"
)

// ConnectionError is returned when the connection couldn't be established.
type ConnectionError struct {
	Addr transport.Addr
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s(%s): %v", e.Addr, e.Addr.Protocol, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// WriteError is returned when the request couldn't be fully written.
type WriteError struct {
	Err     error
	Written int
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sending request (%d bytes written): %v", e.Written, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError is returned when reading the response failed before it was complete.
type ReadError struct {
	Err error

	// Partial is the number of bytes received before the failure.
	Partial int
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading response (%d bytes received): %v", e.Partial, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// MalformedResponseError is returned only with [ReceiveOptions.StrictResponse].
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
