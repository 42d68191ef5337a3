package providers

import "fmt"

// Registry maps a provider identifier to its adapter. Built once at
// startup; an unknown provider here means a programming error, not a
// user-facing condition.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters map[string]Adapter) *Registry {
	return &Registry{adapters: adapters}
}

func (r *Registry) Get(provider string) (Adapter, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider: %s", provider)
	}
	return adapter, nil
}
