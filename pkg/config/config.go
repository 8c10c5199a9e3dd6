// Package config loads the settings used to build connectors: timeouts,
// credentials, TLS material and proxy handling. Files may be YAML or TOML;
// anything not set keeps its default.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/nicwaller/proxy-fetch/pkg/httpclient"
	"github.com/nicwaller/proxy-fetch/pkg/proxy"
)

var (
	ErrEmptyConfigPath   = errors.New("config path is empty")
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// Duration is a time.Duration written as text, e.g. "3s" or "1m30s"
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	ConnectTimeout Duration      `yaml:"connect_timeout" toml:"connect_timeout"`
	ReadTimeout    Duration      `yaml:"read_timeout" toml:"read_timeout"`
	UserAgent      string        `yaml:"user_agent" toml:"user_agent"`
	Auth           AuthSettings  `yaml:"auth" toml:"auth"`
	TLS            TLSSettings   `yaml:"tls" toml:"tls"`
	Proxy          ProxySettings `yaml:"proxy" toml:"proxy"`
}

type AuthSettings struct {
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
	// Schemes lists the accepted schemes: basic, digest or all
	Schemes []string `yaml:"schemes" toml:"schemes"`
}

type ProxySettings struct {
	// Detect runs the host proxy detection. Ignored when a proxy is set here.
	Detect bool `yaml:"detect" toml:"detect"`
	// Install makes the detected proxy the process-wide default
	Install  bool   `yaml:"install" toml:"install"`
	ProbeURL string `yaml:"probe_url" toml:"probe_url"`

	HTTP    string `yaml:"http" toml:"http"`
	HTTPS   string `yaml:"https" toml:"https"`
	NoProxy string `yaml:"no_proxy" toml:"no_proxy"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		ConnectTimeout: Duration(httpclient.DefaultConnectTimeout),
		ReadTimeout:    Duration(httpclient.DefaultReadTimeout),
		UserAgent:      httpclient.DefaultUserAgent,
		Auth: AuthSettings{
			Schemes: []string{string(httpclient.AuthAll)},
		},
		Proxy: ProxySettings{
			Detect:   true,
			ProbeURL: proxy.DefaultProbeURL,
		},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .yaml, .yml or .toml.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.TLS.baseDir = filepath.Dir(path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout.Std())
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout.Std())
	}
	for _, scheme := range c.Auth.Schemes {
		switch httpclient.AuthScheme(strings.ToLower(scheme)) {
		case httpclient.AuthBasic, httpclient.AuthDigest, httpclient.AuthAll:
		default:
			return fmt.Errorf("unknown auth scheme %q", scheme)
		}
	}
	if c.Auth.Password != "" && c.Auth.Username == "" {
		return errors.New("auth password given without username")
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	if c.Proxy.ProbeURL != "" {
		probe, err := url.Parse(c.Proxy.ProbeURL)
		if err != nil {
			return fmt.Errorf("invalid proxy probe_url: %w", err)
		}
		if probe.Scheme != "http" && probe.Scheme != "https" {
			return fmt.Errorf("proxy probe_url must be http or https, got %q", c.Proxy.ProbeURL)
		}
	}
	return nil
}

// Authentication returns the credentials, or nil when no username is set
func (c *Config) Authentication() *httpclient.Authentication {
	if c.Auth.Username == "" {
		return nil
	}
	auth := &httpclient.Authentication{
		Username: c.Auth.Username,
		Password: c.Auth.Password,
	}
	for _, scheme := range c.Auth.Schemes {
		auth.Schemes = append(auth.Schemes, httpclient.AuthScheme(strings.ToLower(scheme)))
	}
	return auth
}

// TLSProvider returns nil when no TLS settings are configured
func (c *Config) TLSProvider() httpclient.TLSConfigProvider {
	if c.TLS.IsZero() {
		return nil
	}
	return &c.TLS
}

// ManualProxy returns the proxy set in the file, or nil
func (c *Config) ManualProxy() *proxy.Config {
	cfg := &proxy.Config{
		Source:     "config",
		HTTPProxy:  c.Proxy.HTTP,
		HTTPSProxy: c.Proxy.HTTPS,
		NoProxy:    c.Proxy.NoProxy,
	}
	if cfg.Empty() {
		return nil
	}
	return cfg
}

// ProbeURL returns the parsed probe URL, falling back to the default
func (c *Config) ProbeURL() *url.URL {
	raw := c.Proxy.ProbeURL
	if raw == "" {
		raw = proxy.DefaultProbeURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		u, _ = url.Parse(proxy.DefaultProbeURL)
	}
	return u
}
