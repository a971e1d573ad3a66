package source

import "sort"

// Registry holds the known platform adapters. Construct one per process
// with NewRegistry; lookups are by platform name or by URL match.
type Registry struct {
	adapters []Adapter
}

// NewRegistry returns a registry pre-populated with the built-in
// adapters.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(NewChatGPT())
	r.Register(NewClaude())
	r.Register(NewGemini())
	return r
}

// Register adds an adapter. Later registrations with the same platform
// name shadow earlier ones in ByPlatform lookups.
func (r *Registry) Register(a Adapter) {
	r.adapters = append([]Adapter{a}, r.adapters...)
}

// ByPlatform returns the adapter for a platform name.
func (r *Registry) ByPlatform(name string) (Adapter, error) {
	for _, a := range r.adapters {
		if a.Platform() == name {
			return a, nil
		}
	}
	return nil, ErrUnknownPlatform
}

// ByURL returns the first adapter whose MatchURL accepts the URL.
func (r *Registry) ByURL(url string) (Adapter, error) {
	for _, a := range r.adapters {
		if a.MatchURL(url) {
			return a, nil
		}
	}
	return nil, ErrUnknownPlatform
}

// Platforms lists the registered platform names, sorted.
func (r *Registry) Platforms() []string {
	seen := make(map[string]struct{}, len(r.adapters))
	var names []string
	for _, a := range r.adapters {
		if _, ok := seen[a.Platform()]; ok {
			continue
		}
		seen[a.Platform()] = struct{}{}
		names = append(names, a.Platform())
	}
	sort.Strings(names)
	return names
}
