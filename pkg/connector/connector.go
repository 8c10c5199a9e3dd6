//go:generate mockgen -destination=./mocks/connector.go . ProxyDetector

package connector

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nicwaller/proxy-fetch/pkg/httpclient"
	"github.com/nicwaller/proxy-fetch/pkg/proxy"
	"github.com/nicwaller/proxy-fetch/pkg/resource"
)

// Transport builds connectors for the URI schemes it declares
type Transport interface {
	// Schemes returns the URI schemes this transport handles (e.g., "http", "https")
	Schemes() []string

	// SupportedAuthentication returns the authentication schemes connectors can carry
	SupportedAuthentication() []httpclient.AuthScheme

	// CreateConnector assembles a connector for one repository
	CreateConnector(ctx context.Context, spec ConnectionSpec) (*Connector, error)
}

// ProxyDetector finds the proxy configuration of the host
type ProxyDetector interface {
	Detect(ctx context.Context) *proxy.Config
}

// ConnectionSpec describes how to reach one repository
type ConnectionSpec struct {
	Auth           *httpclient.Authentication
	TLS            httpclient.TLSConfigProvider
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	UserAgent      string
}

// Connector is the read, list and write access to a repository. All three
// share one HTTP client.
type Connector struct {
	Accessor *resource.Accessor
	Lister   *resource.Lister
	Uploader *resource.Uploader

	client *httpclient.Client
}

// Close releases open responses and pooled connections. Failures are logged.
func (c *Connector) Close() error {
	if err := c.Accessor.Close(); err != nil {
		log.Warn().Err(err).Msg("connector: failed to close accessor")
	}
	if err := c.client.Close(); err != nil {
		log.Warn().Err(err).Msg("connector: failed to close http client")
	}
	return nil
}

var _ Transport = &HTTPFactory{}

// HTTPFactory creates connectors for http and https repositories.
// Proxy detection runs once, before the first connector is created.
type HTTPFactory struct {
	detector ProxyDetector
	probe    *url.URL
	install  bool

	once        sync.Once
	proxyConfig *proxy.Config
}

type FactoryOption func(*HTTPFactory)

// WithDetector replaces the detector for the running OS
func WithDetector(d ProxyDetector) FactoryOption {
	return func(f *HTTPFactory) {
		f.detector = d
	}
}

// WithProxy skips detection and uses cfg
func WithProxy(cfg *proxy.Config) FactoryOption {
	return func(f *HTTPFactory) {
		f.detector = staticDetector{cfg: cfg}
	}
}

// WithInstall also makes the detected proxy the process-wide default,
// publishing the proxy chosen for probe to the environment.
func WithInstall(probe *url.URL) FactoryOption {
	return func(f *HTTPFactory) {
		f.install = true
		f.probe = probe
	}
}

func NewHTTPFactory(opts ...FactoryOption) *HTTPFactory {
	f := &HTTPFactory{}
	for _, opt := range opts {
		opt(f)
	}
	if f.detector == nil {
		f.detector = proxy.NewDetector()
	}
	return f
}

func (f *HTTPFactory) Schemes() []string {
	return []string{"http", "https"}
}

func (f *HTTPFactory) SupportedAuthentication() []httpclient.AuthScheme {
	return []httpclient.AuthScheme{httpclient.AuthBasic, httpclient.AuthDigest, httpclient.AuthAll}
}

// Proxy returns the configuration connectors use, running detection if
// it has not run yet. The result outlives ctx, so detection ignores its
// cancellation.
func (f *HTTPFactory) Proxy(ctx context.Context) *proxy.Config {
	f.once.Do(func() {
		cfg := f.detector.Detect(context.WithoutCancel(ctx))
		if cfg == nil {
			cfg = &proxy.Config{}
		}
		if f.install {
			probe := f.probe
			if probe == nil {
				probe, _ = url.Parse(proxy.DefaultProbeURL)
			}
			proxy.Install(cfg, probe)
		}
		f.proxyConfig = cfg
	})
	return f.proxyConfig
}

func (f *HTTPFactory) CreateConnector(ctx context.Context, spec ConnectionSpec) (*Connector, error) {
	client, err := httpclient.New(httpclient.Settings{
		ConnectTimeout: spec.ConnectTimeout,
		ReadTimeout:    spec.ReadTimeout,
		UserAgent:      spec.UserAgent,
		Auth:           spec.Auth,
		TLS:            spec.TLS,
		Proxy:          f.Proxy(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	accessor := resource.NewAccessor(client)
	return &Connector{
		Accessor: accessor,
		Lister:   resource.NewLister(accessor),
		Uploader: resource.NewUploader(client),
		client:   client,
	}, nil
}

type staticDetector struct {
	cfg *proxy.Config
}

func (d staticDetector) Detect(context.Context) *proxy.Config {
	return d.cfg
}
