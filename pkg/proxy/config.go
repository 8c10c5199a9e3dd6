package proxy

import (
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpproxy"
)

// Config is a discovered proxy configuration.
// Proxy values may be given with or without a scheme ("proxy:3128" means
// "http://proxy:3128"). NoProxy uses the NO_PROXY syntax.
type Config struct {
	// Source is the name of the strategy that produced this configuration
	Source string

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// Empty reports whether the configuration routes nothing through a proxy
func (c *Config) Empty() bool {
	return c == nil || (c.HTTPProxy == "" && c.HTTPSProxy == "")
}

func (c *Config) httpproxy() *httpproxy.Config {
	return &httpproxy.Config{
		HTTPProxy:  c.HTTPProxy,
		HTTPSProxy: c.HTTPSProxy,
		NoProxy:    c.NoProxy,
	}
}

// ProxyFunc returns a selector mapping a target URL to the proxy to use.
// A nil proxy URL means a direct connection.
func (c *Config) ProxyFunc() func(*url.URL) (*url.URL, error) {
	if c.Empty() {
		return func(*url.URL) (*url.URL, error) { return nil, nil }
	}
	return c.httpproxy().ProxyFunc()
}

// ProxyForRequest has the signature expected by http.Transport.Proxy
func (c *Config) ProxyForRequest(req *http.Request) (*url.URL, error) {
	return c.ProxyFunc()(req.URL)
}

// Select returns the proxy used for target, or nil for a direct connection.
func (c *Config) Select(target *url.URL) (*url.URL, error) {
	if target == nil {
		return nil, nil
	}
	return c.ProxyFunc()(target)
}

func (c *Config) String() string {
	if c.Empty() {
		return "direct"
	}
	var parts []string
	if c.HTTPProxy != "" {
		parts = append(parts, "http="+c.HTTPProxy)
	}
	if c.HTTPSProxy != "" {
		parts = append(parts, "https="+c.HTTPSProxy)
	}
	if c.NoProxy != "" {
		parts = append(parts, "no_proxy="+c.NoProxy)
	}
	return strings.Join(parts, " ")
}

// hostPort joins a host and a port the way the proxy settings stores do,
// leaving the port off when it is empty or zero.
func hostPort(host, port string) string {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	if host == "" {
		return ""
	}
	if port == "" || port == "0" {
		return host
	}
	// bare IPv6 literal
	if strings.Count(host, ":") > 1 && !strings.Contains(host, "[") && !strings.Contains(host, "://") {
		host = "[" + host + "]"
	}
	return host + ":" + port
}
