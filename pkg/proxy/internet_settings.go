package proxy

import (
	"context"
	"strings"
)

// InternetSettingsStrategy reads the per-user Internet Settings proxy from
// the Windows registry (the settings Internet Explorer and Edge share).
// On other platforms it never finds anything.
type InternetSettingsStrategy struct {
	read func() (enabled bool, server, override string, err error)
}

func NewInternetSettingsStrategy() *InternetSettingsStrategy {
	return &InternetSettingsStrategy{read: readInternetSettings}
}

func (s *InternetSettingsStrategy) Name() string {
	return "internet-settings"
}

func (s *InternetSettingsStrategy) Find(_ context.Context) (*Config, error) {
	enabled, server, override, err := s.read()
	if err != nil {
		return nil, err
	}
	cfg := parseInternetSettings(enabled, server, override)
	if cfg.Empty() {
		return nil, nil
	}
	return cfg, nil
}

// parseInternetSettings understands both ProxyServer forms:
// "proxy:8080" for every protocol, or "http=proxy:8080;https=proxy:8443".
// ProxyOverride is a semicolon list where "<local>" means plain host names.
func parseInternetSettings(enabled bool, server, override string) *Config {
	cfg := &Config{}
	if !enabled || strings.TrimSpace(server) == "" {
		return cfg
	}

	if !strings.Contains(server, "=") {
		cfg.HTTPProxy = strings.TrimSpace(server)
		cfg.HTTPSProxy = cfg.HTTPProxy
	} else {
		for _, part := range strings.Split(server, ";") {
			scheme, addr, ok := strings.Cut(part, "=")
			if !ok {
				continue
			}
			switch strings.ToLower(strings.TrimSpace(scheme)) {
			case "http":
				cfg.HTTPProxy = strings.TrimSpace(addr)
			case "https":
				cfg.HTTPSProxy = strings.TrimSpace(addr)
			}
		}
	}

	var noProxy []string
	for _, entry := range strings.Split(override, ";") {
		entry = strings.TrimSpace(entry)
		switch entry {
		case "":
		case "<local>":
			noProxy = append(noProxy, "localhost", "127.0.0.1", "::1")
		default:
			noProxy = append(noProxy, entry)
		}
	}
	cfg.NoProxy = strings.Join(noProxy, ",")
	return cfg
}
