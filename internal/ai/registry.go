package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type ProviderFactory func(ctx context.Context, spec ProviderSpec) (Provider, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// NewDefaultRegistry knows every built-in client. "openai" and "deepseek" speak
// the same chat/completions dialect as OpenRouter. siteURL and appName are the
// OpenRouter attribution headers and may be empty.
func NewDefaultRegistry(siteURL, appName string) *Registry {
	r := NewRegistry()
	r.Register("ollama", func(ctx context.Context, spec ProviderSpec) (Provider, error) {
		return NewOllamaProvider(spec.BaseURL, spec.Model), nil
	})
	compatible := func(ctx context.Context, spec ProviderSpec) (Provider, error) {
		p := NewOpenRouterProvider(spec.BaseURL, spec.AuthToken, spec.Model, siteURL, appName)
		p.Name = spec.Name
		return p, nil
	}
	r.Register("openrouter", compatible)
	r.Register("openai", compatible)
	r.Register("deepseek", compatible)
	r.Register("gemini", func(ctx context.Context, spec ProviderSpec) (Provider, error) {
		return NewGeminiProvider(spec.BaseURL, spec.AuthToken, spec.Model), nil
	})
	r.Register("anthropic", func(ctx context.Context, spec ProviderSpec) (Provider, error) {
		return NewAnthropicProvider(spec.BaseURL, spec.AuthToken, spec.Model), nil
	})
	return r
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, spec ProviderSpec) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(spec.Name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f(ctx, spec)
}
