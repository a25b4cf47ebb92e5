package client

import (
	"errors"
	"fmt"
)

// ErrConfig wraps every construction-time configuration failure, so callers
// can distinguish "fix your setup" from operational errors.
var ErrConfig = errors.New("invalid client configuration")

// ErrInvalidSession is returned when a session install is attempted with an
// empty ticket.
var ErrInvalidSession = errors.New("session ticket is empty")

// ErrMissingConnectionTicket is returned when a sign-on is attempted before
// a connection ticket has been configured. No network call is made.
var ErrMissingConnectionTicket = errors.New("connection ticket is not configured")

// AcquireError reports a sign-on exchange that failed at the HTTP level.
type AcquireError struct {
	StatusCode int
	Status     string
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("sign-on exchange failed: %s", e.Status)
}

// RequestError reports an authenticated exchange that failed at the HTTP
// level.
type RequestError struct {
	StatusCode int
	Status     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request exchange failed: %s", e.Status)
}
