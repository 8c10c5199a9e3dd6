package resource

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/nicwaller/proxy-fetch/pkg/httpclient"
)

// ErrAlreadyOpened is returned when a response body is requested twice
var ErrAlreadyOpened = errors.New("unable to open stream: already opened")

// Response is one live HTTP response whose body may be read once.
// Metadata is captured when the response is wrapped.
type Response struct {
	method   httpclient.Method
	location *url.URL
	resp     *http.Response
	metadata Metadata

	mu     sync.Mutex
	opened bool
	closed bool
}

// NewResponse takes ownership of resp
func NewResponse(method httpclient.Method, location *url.URL, resp *http.Response) *Response {
	metadata := NewMetadata(location, resp.Header)
	if metadata.ContentLength < 0 && resp.ContentLength >= 0 {
		metadata.ContentLength = resp.ContentLength
	}
	return &Response{
		method:   method,
		location: location,
		resp:     resp,
		metadata: metadata,
	}
}

// OpenStream returns the body exactly as the server sent it.
// Only the first call succeeds.
func (r *Response) OpenStream() (io.Reader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opened {
		return nil, ErrAlreadyOpened
	}
	r.opened = true
	return r.resp.Body, nil
}

// Close releases the connection. Whatever was not read is drained first.
// Calling Close again does nothing.
func (r *Response) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	httpclient.Drain(r.resp)
	return nil
}

func (r *Response) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Response) Method() httpclient.Method {
	return r.method
}

func (r *Response) URI() *url.URL {
	return r.location
}

func (r *Response) StatusCode() int {
	return r.resp.StatusCode
}

// StatusText is the reason phrase the server sent
func (r *Response) StatusText() string {
	return httpclient.StatusText(r.resp)
}

func (r *Response) HeaderValue(name string) string {
	return r.resp.Header.Get(name)
}

func (r *Response) Metadata() Metadata {
	return r.metadata
}
