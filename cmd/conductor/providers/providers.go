package providers

import (
	"context"
	"fmt"
	"sync"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Adapter executes one provider action. Implementations translate the
// generic action parameters into provider API calls.
type Adapter interface {
	Provider() string
	Execute(ctx context.Context, actionType string, params map[string]interface{}) (map[string]interface{}, error)
}

// Registry maps provider names (node subtypes) to adapters
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Add installs an adapter under its provider name
func (r *Registry) Add(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Provider()] = a
}

// Get returns the adapter for a provider
func (r *Registry) Get(provider string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("no adapter for provider %s", provider)
	}
	return a, nil
}

func paramString(params map[string]interface{}, key string) string {
	s, _ := params[key].(string)
	return s
}
