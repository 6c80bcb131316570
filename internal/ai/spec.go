package ai

import (
	"fmt"
	"strings"
	"time"
)

const DefaultTimeout = 60 * time.Second

// ProviderSpec names one provider/model candidate.
type ProviderSpec struct {
	Name      string
	BaseURL   string
	Model     string
	AuthToken string
	Timeout   time.Duration
}

func (s ProviderSpec) String() string {
	return s.Name + ":" + s.Model
}

func (s ProviderSpec) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

// FallbackChain is evaluated in order, only after the previous candidate failed.
type FallbackChain []ProviderSpec

// freeTierFallbacks are tried after a free or experimental OpenRouter model.
var freeTierFallbacks = []string{
	"google/gemini-2.0-flash-exp:free",
	"deepseek/deepseek-r1:free",
	"meta-llama/llama-3-8b-instruct:free",
	"deepseek/deepseek-chat",
}

// ParseChain parses "provider:model,provider:model". Entries inherit base url,
// token and timeout from the matching spec in known, keyed by provider name.
func ParseChain(raw string, known map[string]ProviderSpec) (FallbackChain, error) {
	var out FallbackChain
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, model, ok := strings.Cut(part, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" || strings.TrimSpace(model) == "" {
			return nil, fmt.Errorf("invalid fallback entry %q, want provider:model", part)
		}
		spec, found := known[name]
		if !found {
			return nil, fmt.Errorf("invalid fallback entry %q: unknown provider %s", part, name)
		}
		spec.Name = name
		spec.Model = strings.TrimSpace(model)
		out = append(out, spec)
	}
	return out, nil
}

// WithFreeTier appends the default free fallbacks when the primary runs a
// ":free" or experimental model. Models already present are skipped.
func WithFreeTier(primary ProviderSpec, chain FallbackChain) FallbackChain {
	m := strings.ToLower(primary.Model)
	if !strings.Contains(m, ":free") && !strings.Contains(m, "exp") {
		return chain
	}
	seen := map[string]bool{primary.String(): true}
	for _, s := range chain {
		seen[s.String()] = true
	}
	out := append(FallbackChain(nil), chain...)
	for _, model := range freeTierFallbacks {
		s := primary
		s.Model = model
		if seen[s.String()] {
			continue
		}
		seen[s.String()] = true
		out = append(out, s)
	}
	return out
}
