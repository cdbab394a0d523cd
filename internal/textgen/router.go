package textgen

// Router picks a provider by name, falling back to the server default.
type Router struct {
	providers map[string]Provider
	def       string
}

// NewRouter registers providers; def names the one used when a caller has no preference.
func NewRouter(def string, providers ...Provider) *Router {
	r := &Router{providers: make(map[string]Provider, len(providers)), def: def}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the named provider, or the default for empty and unknown names.
func (r *Router) Get(name string) Provider {
	if p, ok := r.providers[name]; ok {
		return p
	}
	return r.providers[r.def]
}

// Default returns the default provider name.
func (r *Router) Default() string { return r.def }

// Has reports whether name is registered.
func (r *Router) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}
