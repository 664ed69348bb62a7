package ai

import (
	"fmt"
	"sort"
	"sync"
)

// Registry routes a model id to the client of the provider that serves it.
type Registry struct {
	config *Config

	mu       sync.Mutex
	services map[string]LLMService
	factory  func(cfg *LLMConfig) (LLMService, error)
}

// NewRegistry creates a registry that lazily dials the configured providers.
func NewRegistry(config *Config) *Registry {
	return &Registry{
		config:   config,
		services: map[string]LLMService{},
		factory:  NewLLMService,
	}
}

// NewRegistryWithServices creates a registry over prebuilt provider clients.
func NewRegistryWithServices(config *Config, services map[string]LLMService) *Registry {
	r := NewRegistry(config)
	for provider, svc := range services {
		r.services[provider] = svc
	}
	return r
}

// Enabled reports whether any provider can serve requests.
func (r *Registry) Enabled() bool {
	return r.config != nil && r.config.Enabled && len(r.config.Providers) > 0
}

// Resolve returns the model to use for id, falling back to the default model
// when id is empty, unknown or served by an unconfigured provider.
func (r *Registry) Resolve(id string) (ModelInfo, error) {
	if m, ok := LookupModel(id); ok && r.hasProvider(m.Provider) {
		return m, nil
	}
	if m, ok := LookupModel(r.config.DefaultModel); ok && r.hasProvider(m.Provider) {
		return m, nil
	}
	return ModelInfo{}, fmt.Errorf("no configured provider serves model %q", id)
}

// ResolveUtility returns the model used for titles, tags, the chat index and autocomplete.
func (r *Registry) ResolveUtility(requested string) (ModelInfo, error) {
	if r.config.UtilityModel != "" {
		if m, ok := LookupModel(r.config.UtilityModel); ok && r.hasProvider(m.Provider) {
			return m, nil
		}
	}
	return r.Resolve(requested)
}

// ForModel returns the client serving the model.
func (r *Registry) ForModel(m ModelInfo) (LLMService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if svc, ok := r.services[m.Provider]; ok {
		return svc, nil
	}
	cfg, ok := r.config.Providers[m.Provider]
	if !ok {
		return nil, fmt.Errorf("provider %s is not configured", m.Provider)
	}
	svc, err := r.factory(&cfg)
	if err != nil {
		return nil, err
	}
	r.services[m.Provider] = svc
	return svc, nil
}

// Models lists the models of configured providers.
func (r *Registry) Models() []ModelInfo {
	if !r.Enabled() {
		return []ModelInfo{}
	}
	list := ListModels(r.config.Providers)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Provider < list[j].Provider
	})
	return list
}

func (r *Registry) hasProvider(provider string) bool {
	if r.config == nil {
		return false
	}
	_, ok := r.config.Providers[provider]
	return ok
}
