package exchange

import (
	"errors"
	"fmt"
)

// RejectedError is a business-level refusal reported by the exchange. Code
// and Message are kept exactly as the exchange sent them.
type RejectedError struct {
	Exchange string
	Code     string
	Message  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s API error: %s (code: %s)", e.Exchange, e.Message, e.Code)
}

// TransportError covers timeouts, refused connections, cancellation and
// response bodies that cannot be interpreted.
type TransportError struct {
	Exchange string
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Exchange, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

func IsTransport(err error) bool {
	var transport *TransportError
	return errors.As(err, &transport)
}
