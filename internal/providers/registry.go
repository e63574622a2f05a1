package providers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"eco_gateway/internal/utils"
)

// Registry routes "<provider>:<model>" identifiers to configured providers.
type Registry struct {
	mu        sync.RWMutex
	factory   Factory
	providers map[string]Provider
	logger    *utils.Logger
}

// NewRegistry builds one provider per config. Configs whose constructor
// rejects missing credentials are skipped, leaving that prefix known but
// unconfigured. Any other constructor error is returned.
func NewRegistry(factory Factory, configs []ProviderConfig) (*Registry, error) {
	r := &Registry{
		factory:   factory,
		providers: make(map[string]Provider),
		logger:    utils.NewLogger("providers"),
	}

	for _, cfg := range configs {
		p, err := factory.CreateProvider(cfg)
		if errors.Is(err, ErrMissingAPIKey) {
			r.logger.Info("Provider has no API key, leaving it unconfigured", "type", cfg.Type)
			continue
		}
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		r.providers[cfg.Type] = p
	}

	return r, nil
}

// SplitModel splits "openai:gpt-4o-mini" into ("openai", "gpt-4o-mini").
func SplitModel(model string) (prefix, id string, ok bool) {
	prefix, id, ok = strings.Cut(model, ":")
	if !ok || prefix == "" {
		return "", "", false
	}
	return prefix, id, true
}

// Resolve returns the provider serving model and the model id with the
// prefix stripped. An unregistered prefix yields ErrUnknownModel; a
// registered type without a configured instance yields
// ErrProviderNotConfigured.
func (r *Registry) Resolve(model string) (Provider, string, error) {
	prefix, id, ok := SplitModel(model)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}

	r.mu.RLock()
	p, found := r.providers[prefix]
	r.mu.RUnlock()
	if found {
		return p, id, nil
	}

	for _, t := range r.factory.SupportedTypes() {
		if t == prefix {
			return nil, "", fmt.Errorf("%w: %s", ErrProviderNotConfigured, prefix)
		}
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnknownModel, model)
}

// Configured reports whether a provider is available for prefix.
func (r *Registry) Configured(prefix string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[prefix]
	return ok
}

// Close closes all providers and cleans up resources
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for prefix, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close provider %s: %w", prefix, err))
		}
		delete(r.providers, prefix)
	}
	return errors.Join(errs...)
}
