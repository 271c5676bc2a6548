package webmail

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/DonatFortini/mailmate/internal/identity"
	"github.com/DonatFortini/mailmate/internal/model"
)

// Builder constructs the Extractor for one provider variant.
type Builder func() Extractor

// Registry maps navigable addresses to extractor instances, memoized per
// resolved provider for the lifetime of the session.
type Registry struct {
	mu        sync.Mutex
	builders  map[model.Provider]Builder
	instances map[model.Provider]Extractor
}

// NewRegistry creates a registry over the given provider builders.
func NewRegistry(builders map[model.Provider]Builder) *Registry {
	return &Registry{
		builders:  builders,
		instances: map[model.Provider]Extractor{},
	}
}

// ResolveProvider classifies an address by normalized host-name matching.
// Substring matching tolerates sub-domain and regional variants; exact
// equality would break on them.
func ResolveProvider(address string) (model.Provider, error) {
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("resolving provider for %q: %w", address, ErrUnsupportedProvider)
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "outlook.live"):
		return model.ProviderOutlookLive, nil
	case strings.Contains(host, "outlook"),
		strings.Contains(host, "office365"),
		strings.Contains(host, "office.com"):
		return model.ProviderOutlookOWA, nil
	case strings.Contains(host, "google"), strings.Contains(host, "gmail"):
		return model.ProviderGmail, nil
	}

	return "", fmt.Errorf("resolving provider for host %q: %w", host, ErrUnsupportedProvider)
}

// Get resolves the address to a provider and returns its memoized extractor,
// creating it on first use. An unsupported address is a terminal,
// non-retryable failure.
func (r *Registry) Get(address string) (Extractor, error) {
	provider, err := ResolveProvider(address)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ex, ok := r.instances[provider]; ok {
		return ex, nil
	}

	build, ok := r.builders[provider]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for %s: %w", provider, ErrUnsupportedProvider)
	}

	ex := build()
	r.instances[provider] = ex
	log.WithField("provider", string(provider)).Debug("created extractor")
	return ex, nil
}

// IsSupported reports whether the address maps to a known provider.
func (r *Registry) IsSupported(address string) bool {
	_, err := ResolveProvider(address)
	return err == nil
}

// Identity derives the identity key for the message at address without
// running an extraction. It backs identity revalidation on cache reads.
func (r *Registry) Identity(address, explicitID string) (string, error) {
	provider, err := ResolveProvider(address)
	if err != nil {
		return "", err
	}
	return identity.Derive(provider, address, explicitID), nil
}

// ClearAll drops every memoized instance and its de-duplication state.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ex := range r.instances {
		ex.ClearState()
	}
	r.instances = map[model.Provider]Extractor{}
}

// ClearOne drops the memoized instance for the address's provider, so a
// subsequent extraction starts clean.
func (r *Registry) ClearOne(address string) {
	provider, err := ResolveProvider(address)
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ex, ok := r.instances[provider]; ok {
		ex.ClearState()
		delete(r.instances, provider)
	}
}
