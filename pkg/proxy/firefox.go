package proxy

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
)

// network.proxy.type values
const (
	firefoxProxyManual = "1"
)

var userPrefPattern = regexp.MustCompile(`^\s*user_pref\(\s*"([^"]+)"\s*,\s*(.+?)\s*\)\s*;`)

// FirefoxStrategy reads manual proxy settings from Firefox profile prefs.js
// files. Profiles using "system settings" or auto-detection yield nothing.
type FirefoxStrategy struct {
	profilesDir string
}

// NewFirefoxStrategy scans profiles under dir; an empty dir selects the
// platform default profile location.
func NewFirefoxStrategy(dir string) *FirefoxStrategy {
	if dir == "" {
		dir = defaultFirefoxProfilesDir(runtime.GOOS)
	}
	return &FirefoxStrategy{profilesDir: dir}
}

func (s *FirefoxStrategy) Name() string {
	return "firefox"
}

func (s *FirefoxStrategy) Find(_ context.Context) (*Config, error) {
	if s.profilesDir == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(s.profilesDir, "*", "prefs.js"))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return profileRank(matches[i]) < profileRank(matches[j])
	})

	for _, path := range matches {
		cfg, err := readFirefoxPrefs(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !cfg.Empty() {
			return cfg, nil
		}
	}
	return nil, nil
}

// default-release profiles first, then default, then the rest
func profileRank(path string) int {
	profile := filepath.Base(filepath.Dir(path))
	switch {
	case strings.HasSuffix(profile, ".default-release"):
		return 0
	case strings.HasSuffix(profile, ".default"):
		return 1
	default:
		return 2
	}
}

func readFirefoxPrefs(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	prefs, err := parseUserPrefs(f)
	if err != nil {
		return nil, err
	}
	return firefoxConfig(prefs), nil
}

func parseUserPrefs(r io.Reader) (map[string]string, error) {
	prefs := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := userPrefPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		prefs[m[1]] = strings.Trim(m[2], `"`)
	}
	return prefs, scanner.Err()
}

func firefoxConfig(prefs map[string]string) *Config {
	if prefs["network.proxy.type"] != firefoxProxyManual {
		return nil
	}
	cfg := &Config{
		HTTPProxy:  hostPort(prefs["network.proxy.http"], prefs["network.proxy.http_port"]),
		HTTPSProxy: hostPort(prefs["network.proxy.ssl"], prefs["network.proxy.ssl_port"]),
		NoProxy:    strings.ReplaceAll(prefs["network.proxy.no_proxies_on"], " ", ""),
	}
	if prefs["network.proxy.share_proxy_settings"] == "true" {
		cfg.HTTPSProxy = cfg.HTTPProxy
	}
	return cfg
}

func defaultFirefoxProfilesDir(goos string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch goos {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Mozilla", "Firefox", "Profiles")
		}
		return filepath.Join(home, "AppData", "Roaming", "Mozilla", "Firefox", "Profiles")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles")
	default:
		return filepath.Join(home, ".mozilla", "firefox")
	}
}
