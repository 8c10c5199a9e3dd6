package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type RootMode string

const (
	RootModeReplace RootMode = "replace"
	RootModeAppend  RootMode = "append"
)

// TLSSettings names the certificate files used for HTTPS. Relative paths
// are resolved against the directory of the config file.
type TLSSettings struct {
	RootCAs    []string `yaml:"root_cas" toml:"root_cas"`
	RootMode   RootMode `yaml:"root_mode" toml:"root_mode"`
	ClientCert string   `yaml:"client_cert" toml:"client_cert"`
	ClientKey  string   `yaml:"client_key" toml:"client_key"`
	Insecure   bool     `yaml:"insecure" toml:"insecure"`

	baseDir string
}

func (t *TLSSettings) IsZero() bool {
	return len(t.RootCAs) == 0 && t.ClientCert == "" && t.ClientKey == "" && !t.Insecure
}

func (t *TLSSettings) Validate() error {
	switch t.RootMode {
	case "", RootModeReplace, RootModeAppend:
	default:
		return fmt.Errorf("unknown tls root_mode %q", t.RootMode)
	}
	if (t.ClientCert == "") != (t.ClientKey == "") {
		return errors.New("tls client_cert and client_key are both required")
	}
	return nil
}

// TLSConfig builds the client TLS configuration
func (t *TLSSettings) TLSConfig() (*tls.Config, error) {
	tc := &tls.Config{InsecureSkipVerify: t.Insecure} // nolint:gosec

	if len(t.RootCAs) > 0 {
		pool, err := t.loadRootCAs()
		if err != nil {
			return nil, err
		}
		tc.RootCAs = pool
	}

	if t.ClientCert != "" || t.ClientKey != "" {
		if t.ClientCert == "" || t.ClientKey == "" {
			return nil, errors.New("tls client_cert and client_key are both required")
		}
		cert, err := tls.LoadX509KeyPair(t.resolve(t.ClientCert), t.resolve(t.ClientKey))
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

func (t *TLSSettings) loadRootCAs() (*x509.CertPool, error) {
	var pool *x509.CertPool
	if t.RootMode == RootModeAppend {
		pool, _ = x509.SystemCertPool()
	}
	if pool == nil {
		pool = x509.NewCertPool()
	}
	for _, p := range t.RootCAs {
		data, err := os.ReadFile(t.resolve(p))
		if err != nil {
			return nil, fmt.Errorf("read root ca %s: %w", p, err)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("no certificates found in %s", p)
		}
	}
	return pool, nil
}

func (t *TLSSettings) resolve(path string) string {
	if filepath.IsAbs(path) || t.baseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(t.baseDir, path))
}
