package tools

import (
	"strings"
	"sync"
)

// Registry holds the set of native tools and their metadata side-table.
// Registration happens at startup; lookups are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ITool
	meta  map[string]Meta
	names []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]ITool),
		meta:  make(map[string]Meta),
	}
}

// Register adds a tool with its metadata. A tool registered under an
// already-taken name is ignored, keeping the first registration.
func (r *Registry) Register(tool ITool, meta Meta) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(tool.Name())
	if _, ok := r.tools[key]; ok {
		return r
	}
	r.tools[key] = tool
	r.meta[key] = meta
	r.names = append(r.names, tool.Name())
	return r
}

// Get returns the tool by name, case-insensitive.
func (r *Registry) Get(name string) (ITool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[strings.ToLower(name)]
	return t, ok
}

// GetMeta returns the metadata registered for a tool.
func (r *Registry) GetMeta(name string) (Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meta[strings.ToLower(name)]
	return m, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns all tools in registration order.
func (r *Registry) All() []ITool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ITool, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.tools[strings.ToLower(name)])
	}
	return out
}
