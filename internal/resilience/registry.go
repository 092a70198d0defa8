package resilience

import "sync"

// NamedStateChange receives every transition of any breaker owned by a registry,
// tagged with the provider name. Typically wired to a logger.
type NamedStateChange func(provider string, from, to State, reason string)

// Registry owns one [Breaker] per provider name for the process lifetime.
//
// Breakers are created lazily on first reference with the registry's default
// configuration and never removed; each breaker is fully isolated, so a
// failure storm against one provider cannot affect another's state or
// counters. Construct one registry at process startup and thread it through
// to whatever owns provider clients.
type Registry struct {
	mu       sync.Mutex
	defaults Config
	onChange NamedStateChange
	breakers map[string]*Breaker
}

// NewRegistry creates a registry with shared default configuration.
func NewRegistry(defaults Config, onChange NamedStateChange) *Registry {
	return &Registry{
		defaults: defaults,
		onChange: onChange,
		breakers: make(map[string]*Breaker),
	}
}

// GetOrCreate returns the existing breaker for provider, or constructs one.
//
// An optional config override applies only when the breaker is first created;
// later calls for the same provider return the original instance untouched.
func (r *Registry) GetOrCreate(provider string, override ...Config) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[provider]; ok {
		return b
	}

	cfg := r.defaults
	if len(override) > 0 {
		cfg = override[0]
	}

	var cb StateChange
	if r.onChange != nil {
		notify := r.onChange
		cb = func(from, to State, reason string) {
			notify(provider, from, to, reason)
		}
	}

	b := NewBreaker(cfg, cb)
	r.breakers[provider] = b
	return b
}

// GetAllMetrics returns a snapshot of every breaker's metrics keyed by provider name.
func (r *Registry) GetAllMetrics() map[string]Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics := make(map[string]Metrics, len(r.breakers))
	for name, b := range r.breakers {
		metrics[name] = b.GetMetrics()
	}
	return metrics
}

// Reset resets a single breaker. Unknown names are a no-op.
func (r *Registry) Reset(provider string) {
	r.mu.Lock()
	b, ok := r.breakers[provider]
	r.mu.Unlock()
	if ok {
		b.Reset()
	}
}

// ResetAll resets every breaker in the registry.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	for _, b := range breakers {
		b.Reset()
	}
}
