package connector

import (
	"context"
	"net/url"
	"sort"
	"sync"
)

type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return "unsupported scheme: " + e.Scheme
}

// Registry maps URI schemes to the transports that serve them
type Registry struct {
	transports map[string]Transport
	mu         sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		transports: make(map[string]Transport),
	}
}

// Register adds a transport for every scheme it declares. A later
// registration for the same scheme replaces the earlier one.
func (r *Registry) Register(transport Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, scheme := range transport.Schemes() {
		r.transports[scheme] = transport
	}
}

func (r *Registry) Select(scheme string) (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transports[scheme]
	if !ok {
		return nil, &UnsupportedSchemeError{Scheme: scheme}
	}
	return t, nil
}

// Schemes lists the registered schemes in order
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemes := make([]string, 0, len(r.transports))
	for scheme := range r.transports {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// Connect creates a connector from the transport registered for the
// scheme of uri.
func (r *Registry) Connect(ctx context.Context, uri *url.URL, spec ConnectionSpec) (*Connector, error) {
	t, err := r.Select(uri.Scheme)
	if err != nil {
		return nil, err
	}
	return t.CreateConnector(ctx, spec)
}
