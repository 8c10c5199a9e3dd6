package proxy

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// KDE ProxyType values in kioslaverc
const (
	kdeProxyManual      = "1"
	kdeProxyEnvironment = "4"
)

// KDEStrategy reads the [Proxy Settings] group of kioslaverc
type KDEStrategy struct {
	path string
}

// NewKDEStrategy reads the given kioslaverc; an empty path selects
// $XDG_CONFIG_HOME/kioslaverc (or ~/.config/kioslaverc).
func NewKDEStrategy(path string) *KDEStrategy {
	if path == "" {
		path = defaultKioslavercPath()
	}
	return &KDEStrategy{path: path}
}

func (s *KDEStrategy) Name() string {
	return "kde"
}

func (s *KDEStrategy) Find(ctx context.Context) (*Config, error) {
	if s.path == "" {
		return nil, nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	settings, err := readIniGroup(f, "Proxy Settings")
	if err != nil {
		return nil, err
	}

	switch settings["ProxyType"] {
	case kdeProxyManual:
		cfg := &Config{
			HTTPProxy:  kdeProxyValue(settings["httpProxy"]),
			HTTPSProxy: kdeProxyValue(settings["httpsProxy"]),
			NoProxy:    settings["NoProxyFor"],
		}
		if cfg.Empty() {
			return nil, nil
		}
		return cfg, nil
	case kdeProxyEnvironment:
		// KDE defers to the environment variables
		return NewEnvStrategy().Find(ctx)
	default:
		return nil, nil
	}
}

// kdeProxyValue accepts both "http://proxy:3128" and the older
// space-separated "http://proxy 3128" form.
func kdeProxyValue(v string) string {
	v = strings.TrimSpace(v)
	if host, port, ok := strings.Cut(v, " "); ok {
		return hostPort(host, port)
	}
	return v
}

func defaultKioslavercPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "kioslaverc")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "kioslaverc")
	}
	return ""
}

// readIniGroup returns the key/value pairs of a single [group]
func readIniGroup(r io.Reader, group string) (map[string]string, error) {
	values := make(map[string]string)
	inGroup := false
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inGroup = line[1:len(line)-1] == group
			continue
		}
		if !inGroup {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		// KDE localizes keys as key[$e]; keep the bare key
		key = strings.TrimSpace(key)
		if i := strings.IndexByte(key, '['); i > 0 {
			key = key[:i]
		}
		values[key] = strings.TrimSpace(value)
	}
	return values, scanner.Err()
}
