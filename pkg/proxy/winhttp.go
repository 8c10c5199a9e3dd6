package proxy

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// WinHTTPStrategy reads the machine-wide WinHTTP proxy through netsh
type WinHTTPStrategy struct {
	runner CommandRunner
}

func NewWinHTTPStrategy(runner CommandRunner) *WinHTTPStrategy {
	if runner == nil {
		runner = NewExecRunner()
	}
	return &WinHTTPStrategy{runner: runner}
}

func (s *WinHTTPStrategy) Name() string {
	return "winhttp"
}

func (s *WinHTTPStrategy) Find(ctx context.Context) (*Config, error) {
	out, err := s.runner.Output(ctx, "netsh", "winhttp", "show", "proxy")
	if err != nil {
		return nil, fmt.Errorf("netsh winhttp show proxy: %w", err)
	}
	cfg := parseNetshProxy(string(out))
	if cfg.Empty() {
		return nil, nil
	}
	return cfg, nil
}

// parseNetshProxy parses:
//
//	Current WinHTTP proxy settings:
//
//	    Proxy Server(s) :  proxy.example.com:8080
//	    Bypass List     :  <local>;*.corp
//
// "Direct access (no proxy server)." yields an empty configuration.
func parseNetshProxy(out string) *Config {
	var server, bypass string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Proxy Server(s)":
			server = strings.TrimSpace(value)
		case "Bypass List":
			bypass = strings.TrimSpace(value)
		}
	}
	if server == "" {
		return &Config{}
	}
	return parseInternetSettings(true, server, bypass)
}
