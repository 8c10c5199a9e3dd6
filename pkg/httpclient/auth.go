package httpclient

import (
	"crypto/tls"
	"net/http"
	"slices"
)

// AuthScheme is an HTTP authentication scheme a connector may carry
type AuthScheme string

const (
	AuthBasic  AuthScheme = "basic"
	AuthDigest AuthScheme = "digest"
	// AuthAll accepts whatever scheme the server asks for
	AuthAll AuthScheme = "all"
)

// Authentication holds credentials and the schemes they may be sent with
type Authentication struct {
	Username string
	Password string
	Schemes  []AuthScheme
}

// Accepts reports whether scheme may be used, either directly or through AuthAll
func (a *Authentication) Accepts(scheme AuthScheme) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.Schemes, scheme) || slices.Contains(a.Schemes, AuthAll)
}

// preemptive reports whether basic credentials go out with every request
func (a *Authentication) preemptive() bool {
	return a != nil && a.Username != "" && a.Accepts(AuthBasic)
}

func (a *Authentication) apply(req *http.Request) {
	if a.preemptive() {
		req.SetBasicAuth(a.Username, a.Password)
	}
}

// TLSConfigProvider supplies the TLS settings for HTTPS connections
type TLSConfigProvider interface {
	TLSConfig() (*tls.Config, error)
}
