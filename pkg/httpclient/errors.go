package httpclient

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrClosed is returned for requests made after Client.Close
var ErrClosed = errors.New("http client is closed")

// RequestError is a transport failure: the request could not be built or
// no response was received.
type RequestError struct {
	Method Method
	URI    *url.URL
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("could not %s '%s': %v", e.Method, e.URI, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// StatusError is a response outside the successful range
type StatusError struct {
	Method     Method
	URI        *url.URL
	StatusCode int
	// Status is the reason phrase sent by the server
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("could not %s '%s': received status code %d from server: %s", e.Method, e.URI, e.StatusCode, e.Status)
}
