package proxy

import (
	"context"

	"golang.org/x/net/http/httpproxy"
)

// EnvStrategy reads the process environment (HTTP_PROXY, HTTPS_PROXY,
// NO_PROXY and their lowercase forms). This is the Go runtime's own default.
type EnvStrategy struct{}

func NewEnvStrategy() *EnvStrategy {
	return &EnvStrategy{}
}

func (s *EnvStrategy) Name() string {
	return "runtime"
}

func (s *EnvStrategy) Find(_ context.Context) (*Config, error) {
	env := httpproxy.FromEnvironment()
	cfg := &Config{
		HTTPProxy:  env.HTTPProxy,
		HTTPSProxy: env.HTTPSProxy,
		NoProxy:    env.NoProxy,
	}
	if cfg.Empty() {
		return nil, nil
	}
	return cfg, nil
}
