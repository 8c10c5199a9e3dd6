package proxy

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const gnomeSchema = "org.gnome.system.proxy"

// GnomeStrategy reads the GNOME desktop proxy settings through gsettings.
// Only the "manual" mode is supported; "auto" (PAC) is reported as nothing
// configured.
type GnomeStrategy struct {
	runner CommandRunner
}

func NewGnomeStrategy(runner CommandRunner) *GnomeStrategy {
	if runner == nil {
		runner = NewExecRunner()
	}
	return &GnomeStrategy{runner: runner}
}

func (s *GnomeStrategy) Name() string {
	return "gnome"
}

func (s *GnomeStrategy) Find(ctx context.Context) (*Config, error) {
	mode, err := s.get(ctx, gnomeSchema, "mode")
	if err != nil {
		return nil, err
	}
	if mode != "manual" {
		log.Debug().Str("mode", mode).Msg("proxy: gnome proxy mode is not manual")
		return nil, nil
	}

	cfg := &Config{}
	if cfg.HTTPProxy, err = s.endpoint(ctx, "http"); err != nil {
		return nil, err
	}
	if cfg.HTTPSProxy, err = s.endpoint(ctx, "https"); err != nil {
		return nil, err
	}
	ignore, err := s.get(ctx, gnomeSchema, "ignore-hosts")
	if err != nil {
		return nil, err
	}
	cfg.NoProxy = strings.Join(parseGVariantList(ignore), ",")

	if cfg.Empty() {
		return nil, nil
	}
	return cfg, nil
}

func (s *GnomeStrategy) endpoint(ctx context.Context, kind string) (string, error) {
	schema := gnomeSchema + "." + kind
	host, err := s.get(ctx, schema, "host")
	if err != nil {
		return "", err
	}
	port, err := s.get(ctx, schema, "port")
	if err != nil {
		return "", err
	}
	return hostPort(host, port), nil
}

func (s *GnomeStrategy) get(ctx context.Context, schema, key string) (string, error) {
	out, err := s.runner.Output(ctx, "gsettings", "get", schema, key)
	if err != nil {
		return "", fmt.Errorf("gsettings get %s %s: %w", schema, key, err)
	}
	return unquoteGVariant(string(out)), nil
}

// unquoteGVariant turns "'manual'\n" into "manual" and "uint32 8080" into "8080"
func unquoteGVariant(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, ' '); i > 0 && !strings.HasPrefix(v, "'") && !strings.HasPrefix(v, "[") {
		// typed literal such as "uint32 8080"
		v = v[i+1:]
	}
	return strings.Trim(v, "'")
}

// parseGVariantList parses "['localhost', '127.0.0.0/8']" and "@as []"
func parseGVariantList(v string) []string {
	v = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "@as"))
	v = strings.TrimSuffix(strings.TrimPrefix(v, "["), "]")
	var items []string
	for _, item := range strings.Split(v, ",") {
		item = strings.Trim(strings.TrimSpace(item), "'")
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
