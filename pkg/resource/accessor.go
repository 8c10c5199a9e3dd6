package resource

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nicwaller/proxy-fetch/pkg/httpclient"
)

var _ HTTPClient = &httpclient.Client{}

// HTTPClient is the part of httpclient.Client used by accessors and uploaders
type HTTPClient interface {
	PerformGet(ctx context.Context, uri *url.URL) (*http.Response, error)
	PerformHead(ctx context.Context, uri *url.URL) (*http.Response, error)
	PerformRawGet(ctx context.Context, uri *url.URL) (*http.Response, error)
	PerformRequest(ctx context.Context, method httpclient.Method, uri *url.URL, body *httpclient.Body) (*http.Response, error)
}

// Accessor reads remote resources. It keeps at most one response open: each
// new request first closes whatever the previous ones left open.
type Accessor struct {
	client HTTPClient

	mu   sync.Mutex
	open []*Response
}

func NewAccessor(client HTTPClient) *Accessor {
	return &Accessor{client: client}
}

// Open fetches uri with GET. A missing resource yields (nil, nil).
// The caller should hand the response back through Release.
func (a *Accessor) Open(ctx context.Context, uri *url.URL) (*Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.abortOpenResources()
	resp, err := a.client.PerformGet(ctx, uri)
	if err != nil || resp == nil {
		return nil, err
	}
	return a.track(httpclient.MethodGet, uri, resp), nil
}

// GetRawResource fetches uri with GET whatever the response status
func (a *Accessor) GetRawResource(ctx context.Context, uri *url.URL) (*Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.abortOpenResources()
	resp, err := a.client.PerformRawGet(ctx, uri)
	if err != nil {
		return nil, err
	}
	return a.track(httpclient.MethodGet, uri, resp), nil
}

// GetMetadata asks for uri with HEAD. A missing resource yields (nil, nil).
func (a *Accessor) GetMetadata(ctx context.Context, uri *url.URL) (*Metadata, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.abortOpenResources()
	resp, err := a.client.PerformHead(ctx, uri)
	if err != nil || resp == nil {
		return nil, err
	}
	res := NewResponse(httpclient.MethodHead, uri, resp)
	defer res.Close()
	metadata := res.Metadata()
	return &metadata, nil
}

// Release closes res and stops tracking it
func (a *Accessor) Release(res *Response) error {
	if res == nil {
		return nil
	}
	err := res.Close()

	a.mu.Lock()
	defer a.mu.Unlock()
	for i, r := range a.open {
		if r == res {
			a.open = append(a.open[:i], a.open[i+1:]...)
			break
		}
	}
	return err
}

// OpenCount reports how many responses are tracked
func (a *Accessor) OpenCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.open)
}

// Close closes every tracked response
func (a *Accessor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.abortOpenResources()
	return nil
}

func (a *Accessor) track(method httpclient.Method, uri *url.URL, resp *http.Response) *Response {
	res := NewResponse(method, uri, resp)
	a.open = append(a.open, res)
	return res
}

// abortOpenResources must be called with a.mu held
func (a *Accessor) abortOpenResources() {
	for _, res := range a.open {
		if res.Closed() {
			continue
		}
		log.Warn().Stringer("uri", res.URI()).Msg("resource: forcing close on abandoned resource")
		if err := res.Close(); err != nil {
			log.Warn().Err(err).Stringer("uri", res.URI()).Msg("resource: failed to close abandoned resource")
		}
	}
	a.open = nil
}
