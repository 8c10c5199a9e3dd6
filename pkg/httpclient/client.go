package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nicwaller/proxy-fetch/pkg/proxy"
)

const (
	DefaultConnectTimeout = 3 * time.Second
	DefaultReadTimeout    = 3 * time.Second
	DefaultUserAgent      = "proxy-fetch/1.0"

	// maxDrain bounds how much of an unwanted body is read so the
	// connection can be reused. Larger bodies just close the connection.
	maxDrain = 64 << 10
)

// Settings configures a Client. Zero timeouts fall back to the defaults.
type Settings struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	UserAgent      string
	Auth           *Authentication
	TLS            TLSConfigProvider
	// Proxy selects the proxy per request. When nil the process
	// environment is used.
	Proxy *proxy.Config
}

// Client issues HTTP requests with fixed timeouts and classifies responses.
// No request is ever retried.
type Client struct {
	settings  Settings
	transport *http.Transport
	client    *http.Client

	mu     sync.Mutex
	closed bool
}

func New(settings Settings) (*Client, error) {
	if settings.ConnectTimeout <= 0 {
		settings.ConnectTimeout = DefaultConnectTimeout
	}
	if settings.ReadTimeout <= 0 {
		settings.ReadTimeout = DefaultReadTimeout
	}
	if settings.UserAgent == "" {
		settings.UserAgent = DefaultUserAgent
	}

	dialer := &net.Dialer{
		Timeout:   settings.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	// the read timeout starts once the request is fully sent; body reads
	// are bounded separately by timeoutBody
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   settings.ConnectTimeout,
		ResponseHeaderTimeout: settings.ReadTimeout,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// bodies are handed out exactly as the server sent them
		DisableCompression: true,
	}
	if settings.Proxy != nil {
		transport.Proxy = settings.Proxy.ProxyForRequest
	}
	if settings.TLS != nil {
		tlsConfig, err := settings.TLS.TLSConfig()
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsConfig
	}

	log.Debug().
		Dur("connect_timeout", settings.ConnectTimeout).
		Dur("read_timeout", settings.ReadTimeout).
		Str("proxy", settings.Proxy.String()).
		Msg("http: client created")

	return &Client{
		settings:  settings,
		transport: transport,
		client:    &http.Client{Transport: transport},
	}, nil
}

// PerformGet returns the live response, or nil when the resource is missing.
// Unsuccessful responses are drained and reported as *StatusError.
func (c *Client) PerformGet(ctx context.Context, uri *url.URL) (*http.Response, error) {
	return c.performChecked(ctx, MethodGet, uri)
}

// PerformHead is PerformGet for HEAD
func (c *Client) PerformHead(ctx context.Context, uri *url.URL) (*http.Response, error) {
	return c.performChecked(ctx, MethodHead, uri)
}

// PerformRawGet returns the response whatever its status
func (c *Client) PerformRawGet(ctx context.Context, uri *url.URL) (*http.Response, error) {
	return c.PerformRequest(ctx, MethodGet, uri, nil)
}

// PerformRawHead returns the response whatever its status
func (c *Client) PerformRawHead(ctx context.Context, uri *url.URL) (*http.Response, error) {
	return c.PerformRequest(ctx, MethodHead, uri, nil)
}

func (c *Client) performChecked(ctx context.Context, method Method, uri *url.URL) (*http.Response, error) {
	resp, err := c.PerformRequest(ctx, method, uri, nil)
	if err != nil {
		return nil, err
	}
	if WasMissing(resp) {
		log.Info().Str("method", method.String()).Stringer("uri", uri).Msg("http: resource missing")
		Drain(resp)
		return nil, nil
	}
	if !WasSuccessful(resp) {
		Drain(resp)
		return nil, NewStatusError(method, uri, resp)
	}
	return resp, nil
}

// PerformRequest sends exactly one request and returns the response as is.
// Any failure to get a response is a *RequestError.
func (c *Client) PerformRequest(ctx context.Context, method Method, uri *url.URL, body *Body) (*http.Response, error) {
	if c.isClosed() {
		return nil, &RequestError{Method: method, URI: uri, Err: ErrClosed}
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := buildRequest(ctx, method, uri, body)
	if err != nil {
		cancel()
		return nil, &RequestError{Method: method, URI: uri, Err: err}
	}
	req.Header.Set("User-Agent", c.settings.UserAgent)
	c.settings.Auth.apply(req)

	log.Debug().Str("method", method.String()).Stringer("uri", uri).Msg("http: performing request")

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		log.Debug().Err(err).Str("method", method.String()).Stringer("uri", uri).Msg("http: request failed")
		return nil, &RequestError{Method: method, URI: uri, Err: err}
	}
	resp.Body = &timeoutBody{body: resp.Body, timeout: c.settings.ReadTimeout, cancel: cancel}

	log.Debug().
		Str("method", method.String()).
		Stringer("uri", uri).
		Int("status", resp.StatusCode).
		Msg("http: response received")
	return resp, nil
}

// Close releases pooled connections. It is safe to call more than once and
// on a client that never sent a request.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.transport.CloseIdleConnections()
	log.Debug().Msg("http: client closed")
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// WasMissing reports whether the server said the resource does not exist
func WasMissing(resp *http.Response) bool {
	return resp.StatusCode == http.StatusNotFound
}

// WasSuccessful reports whether the status is in [200, 400)
func WasSuccessful(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// NewStatusError describes an unsuccessful response
func NewStatusError(method Method, uri *url.URL, resp *http.Response) *StatusError {
	return &StatusError{
		Method:     method,
		URI:        uri,
		StatusCode: resp.StatusCode,
		Status:     StatusText(resp),
	}
}

// StatusText returns the reason phrase of the status line, e.g. "Not Found"
func StatusText(resp *http.Response) string {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	text = strings.TrimSpace(text)
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// Drain discards up to maxDrain bytes of the body and closes it so the
// connection can go back to the pool. Errors are logged, not returned.
func Drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain)); err != nil {
		log.Debug().Err(err).Msg("http: failed to drain response body")
	}
	if err := resp.Body.Close(); err != nil {
		log.Debug().Err(err).Msg("http: failed to close response body")
	}
}
