package proxy

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultProbeURL is the target used to pick the proxy that gets published
// to the environment by Install.
const DefaultProbeURL = "https://repo.maven.apache.org/maven2/"

// Detector runs a cascade of strategies and reports the first configuration
// found. Failing to find one is not an error.
type Detector struct {
	strategies []Strategy
}

type DetectorOption func(*Detector)

// WithStrategies replaces the default cascade
func WithStrategies(strategies ...Strategy) DetectorOption {
	return func(d *Detector) {
		d.strategies = strategies
	}
}

// NewDetector creates a detector using the cascade for the running OS
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		strategies: DefaultStrategies(runtime.GOOS, NewExecRunner()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Strategies returns the cascade in the order it is tried
func (d *Detector) Strategies() []Strategy {
	return d.strategies
}

// Detect returns the first non-empty configuration, or nil.
// A strategy that fails is logged and skipped.
func (d *Detector) Detect(ctx context.Context) *Config {
	tried := make(map[string]bool, len(d.strategies))
	for _, s := range d.strategies {
		name := s.Name()
		if tried[name] {
			continue
		}
		tried[name] = true

		if err := ctx.Err(); err != nil {
			log.Debug().Err(err).Msg("proxy: detection cancelled")
			return nil
		}

		cfg, err := s.Find(ctx)
		if err != nil {
			log.Debug().Err(err).Str("strategy", name).Msg("proxy: strategy failed")
			continue
		}
		if cfg.Empty() {
			log.Debug().Str("strategy", name).Msg("proxy: nothing configured")
			continue
		}
		cfg.Source = name
		log.Info().Str("strategy", name).Str("proxy", cfg.String()).Msg("proxy: configuration detected")
		return cfg
	}
	log.Debug().Msg("proxy: no configuration found")
	return nil
}

// DefaultStrategies builds the cascade for an OS: OS default, runtime
// (environment), browser default, then the OS family specific sources.
func DefaultStrategies(goos string, runner CommandRunner) []Strategy {
	strategies := []Strategy{
		osDefaultStrategy(goos, runner),
		NewEnvStrategy(),
		browserDefaultStrategy(goos),
	}
	switch goos {
	case "windows":
		strategies = append(strategies, NewInternetSettingsStrategy(), NewWinHTTPStrategy(runner))
	case "linux":
		strategies = append(strategies, NewGnomeStrategy(runner), NewKDEStrategy(""), NewFirefoxStrategy(""))
	default:
		strategies = append(strategies, osDefaultStrategy(goos, runner))
	}
	return strategies
}

func osDefaultStrategy(goos string, runner CommandRunner) Strategy {
	var impl Strategy
	switch goos {
	case "windows":
		impl = NewInternetSettingsStrategy()
	case "darwin":
		impl = NewScutilStrategy(runner)
	default:
		impl = &desktopStrategy{runner: runner, desktop: os.Getenv("XDG_CURRENT_DESKTOP")}
	}
	return StrategyFunc{StrategyName: "os-default", Fn: impl.Find}
}

func browserDefaultStrategy(goos string) Strategy {
	var impl Strategy = NewFirefoxStrategy("")
	if goos == "windows" {
		impl = NewInternetSettingsStrategy()
	}
	return StrategyFunc{StrategyName: "browser", Fn: impl.Find}
}

// desktopStrategy picks the settings store of the running desktop session
type desktopStrategy struct {
	runner  CommandRunner
	desktop string
}

func (s *desktopStrategy) Name() string {
	return "desktop"
}

func (s *desktopStrategy) Find(ctx context.Context) (*Config, error) {
	desktop := strings.ToUpper(s.desktop)
	switch {
	case strings.Contains(desktop, "KDE"):
		return NewKDEStrategy("").Find(ctx)
	case strings.Contains(desktop, "GNOME"), strings.Contains(desktop, "UNITY"), strings.Contains(desktop, "CINNAMON"):
		return NewGnomeStrategy(s.runner).Find(ctx)
	default:
		return nil, nil
	}
}

// Install makes cfg the process-wide default: http.DefaultTransport routes
// through it, and the proxy chosen for probe is published as HTTP_PROXY and
// http_proxy for code that only reads the environment. A nil cfg is a no-op.
// It returns the published proxy, if any.
func Install(cfg *Config, probe *url.URL) *url.URL {
	if cfg.Empty() {
		return nil
	}
	setDefaultTransportProxy(cfg)

	first, err := cfg.Select(probe)
	if err != nil || first == nil {
		log.Debug().Err(err).Msg("proxy: nothing to publish for probe URL")
		return nil
	}
	published := &url.URL{Scheme: "http", Host: first.Host}
	for _, name := range []string{"HTTP_PROXY", "http_proxy"} {
		if err := os.Setenv(name, published.String()); err != nil {
			log.Warn().Err(err).Str("variable", name).Msg("proxy: failed to publish proxy")
		}
	}
	log.Debug().Str("host", first.Hostname()).Str("port", first.Port()).Msg("proxy: published")
	return published
}

func setDefaultTransportProxy(cfg *Config) {
	t, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		log.Debug().Msg("proxy: default transport is not an *http.Transport")
		return
	}
	t.Proxy = cfg.ProxyForRequest
}
