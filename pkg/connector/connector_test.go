package connector_test

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nicwaller/proxy-fetch/pkg/connector"
	connectormocks "github.com/nicwaller/proxy-fetch/pkg/connector/mocks"
	"github.com/nicwaller/proxy-fetch/pkg/httpclient"
	"github.com/nicwaller/proxy-fetch/pkg/proxy"
	"github.com/nicwaller/proxy-fetch/pkg/resource"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestHTTPFactory_Declarations(t *testing.T) {
	f := connector.NewHTTPFactory(connector.WithProxy(nil))
	assert.Equal(t, []string{"http", "https"}, f.Schemes())
	assert.Equal(t, []httpclient.AuthScheme{httpclient.AuthBasic, httpclient.AuthDigest, httpclient.AuthAll}, f.SupportedAuthentication())
}

func TestHTTPFactory_DetectsProxyOnce(t *testing.T) {
	var mu sync.Mutex
	var proxied []string
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		proxied = append(proxied, r.URL.String())
		mu.Unlock()
		w.Write([]byte("from proxy"))
	}))
	defer proxyServer.Close()

	ctrl := gomock.NewController(t)
	detector := connectormocks.NewMockProxyDetector(ctrl)
	detector.EXPECT().Detect(gomock.Any()).Return(&proxy.Config{
		Source:    "gnome",
		HTTPProxy: strings.TrimPrefix(proxyServer.URL, "http://"),
	}).Times(1)

	f := connector.NewHTTPFactory(connector.WithDetector(detector))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		c, err := f.CreateConnector(ctx, connector.ConnectionSpec{})
		require.NoError(t, err)

		res, err := c.Accessor.Open(ctx, mustParse(t, "http://repo.example.com/maven2/a.pom"))
		require.NoError(t, err)
		require.NotNil(t, res)
		stream, err := res.OpenStream()
		require.NoError(t, err)
		body, err := io.ReadAll(stream)
		require.NoError(t, err)
		assert.Equal(t, "from proxy", string(body))
		require.NoError(t, c.Accessor.Release(res))
		require.NoError(t, c.Close())
	}

	assert.Equal(t, "gnome", f.Proxy(ctx).Source)
	assert.Equal(t, []string{"http://repo.example.com/maven2/a.pom", "http://repo.example.com/maven2/a.pom"}, proxied)
}

func TestHTTPFactory_NothingDetected(t *testing.T) {
	ctrl := gomock.NewController(t)
	detector := connectormocks.NewMockProxyDetector(ctrl)
	detector.EXPECT().Detect(gomock.Any()).Return(nil)

	f := connector.NewHTTPFactory(connector.WithDetector(detector))
	cfg := f.Proxy(context.Background())
	require.NotNil(t, cfg)
	assert.True(t, cfg.Empty())
}

func TestHTTPFactory_DetectionOutlivesCancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	detector := connectormocks.NewMockProxyDetector(ctrl)
	detector.EXPECT().Detect(gomock.Any()).DoAndReturn(func(ctx context.Context) *proxy.Config {
		if ctx.Err() != nil {
			return nil
		}
		return &proxy.Config{Source: "kde", HTTPProxy: "proxy.corp:3128"}
	}).Times(1)

	f := connector.NewHTTPFactory(connector.WithDetector(detector))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, "kde", f.Proxy(ctx).Source)
	assert.Equal(t, "proxy.corp:3128", f.Proxy(context.Background()).HTTPProxy)
}

func TestHTTPFactory_Install(t *testing.T) {
	t.Setenv("HTTP_PROXY", "")
	t.Setenv("http_proxy", "")
	transport := http.DefaultTransport.(*http.Transport)
	previous := transport.Proxy
	t.Cleanup(func() { transport.Proxy = previous })

	f := connector.NewHTTPFactory(
		connector.WithProxy(&proxy.Config{HTTPSProxy: "corp-proxy:8443"}),
		connector.WithInstall(nil),
	)
	f.Proxy(context.Background())

	assert.Equal(t, "http://corp-proxy:8443", os.Getenv("HTTP_PROXY"))
	assert.Equal(t, "http://corp-proxy:8443", os.Getenv("http_proxy"))
}

func TestConnector_RoundTrip(t *testing.T) {
	var mu sync.Mutex
	stored := map[string][]byte{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		user, pass, ok := r.BasicAuth()
		if !ok || user != "deploy" || pass != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			stored[r.URL.Path] = data
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet, http.MethodHead:
			if r.URL.Path == "/repo/" {
				w.Write([]byte(`<a href="../">up</a><a href="lib-1.0.jar">lib-1.0.jar</a>`))
				return
			}
			data, ok := stored[r.URL.Path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("X-Checksum-Sha1", "0123456789abcdef0123456789abcdef01234567")
			w.Write(data)
		}
	}))
	defer server.Close()

	registry := connector.NewRegistry()
	registry.Register(connector.NewHTTPFactory(connector.WithProxy(&proxy.Config{})))

	ctx := context.Background()
	destination := mustParse(t, server.URL+"/repo/lib-1.0.jar")
	c, err := registry.Connect(ctx, destination, connector.ConnectionSpec{
		Auth: &httpclient.Authentication{
			Username: "deploy",
			Password: "hunter2",
			Schemes:  []httpclient.AuthScheme{httpclient.AuthAll},
		},
	})
	require.NoError(t, err)
	defer c.Close()

	path := filepath.Join(t.TempDir(), "lib-1.0.jar")
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o644))
	local, err := resource.NewFileResource(path)
	require.NoError(t, err)
	require.NoError(t, c.Uploader.Upload(ctx, local, destination))

	metadata, err := c.Accessor.GetMetadata(ctx, destination)
	require.NoError(t, err)
	require.NotNil(t, metadata)
	assert.Equal(t, int64(6), metadata.ContentLength)
	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", metadata.SHA1)

	names, err := c.Lister.List(ctx, mustParse(t, server.URL+"/repo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"lib-1.0.jar"}, names)

	missing, err := c.Accessor.Open(ctx, mustParse(t, server.URL+"/repo/lib-2.0.jar"))
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRegistry(t *testing.T) {
	registry := connector.NewRegistry()
	factory := connector.NewHTTPFactory(connector.WithProxy(nil))
	registry.Register(factory)

	assert.Equal(t, []string{"http", "https"}, registry.Schemes())

	selected, err := registry.Select("https")
	require.NoError(t, err)
	assert.Same(t, factory, selected)

	_, err = registry.Select("ftp")
	var unsupported *connector.UnsupportedSchemeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "ftp", unsupported.Scheme)

	_, err = registry.Connect(context.Background(), mustParse(t, "sftp://repo.example.com/x"), connector.ConnectionSpec{})
	assert.EqualError(t, err, "unsupported scheme: sftp")
}

type brokenTLS struct{}

func (brokenTLS) TLSConfig() (*tls.Config, error) {
	return nil, errors.New("no such keystore")
}

func TestHTTPFactory_CreateConnectorError(t *testing.T) {
	f := connector.NewHTTPFactory(connector.WithProxy(nil))
	_, err := f.CreateConnector(context.Background(), connector.ConnectionSpec{TLS: brokenTLS{}})
	assert.ErrorContains(t, err, "no such keystore")
}
