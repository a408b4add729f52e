package builtin

import (
	"fmt"
	"sort"

	"github.com/agentstation/difyflow/yaml"
)

// Registry holds node metadata by type.
type Registry struct {
	nodes map[string]NodeMetadata
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[string]NodeMetadata),
	}
}

// DefaultRegistry returns a registry with every built-in node type.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, meta := range Catalog() {
		r.Register(meta)
	}
	return r
}

// Register adds or replaces the metadata of a node type.
func (r *Registry) Register(meta NodeMetadata) {
	r.nodes[meta.Type] = meta
}

// Get returns the metadata of a node type.
func (r *Registry) Get(nodeType string) (NodeMetadata, bool) {
	meta, ok := r.nodes[nodeType]
	return meta, ok
}

// Types returns the registered types, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.nodes))
	for t := range r.nodes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// All returns every registered node type sorted by category, then type.
func (r *Registry) All() []NodeMetadata {
	all := make([]NodeMetadata, 0, len(r.nodes))
	for _, meta := range r.nodes {
		all = append(all, meta)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Category != all[j].Category {
			return all[i].Category < all[j].Category
		}
		return all[i].Type < all[j].Type
	})
	return all
}

// RegisterAll installs schema validators for every built-in node type into
// loader and returns the registry used.
func RegisterAll(loader *yaml.Loader) *Registry {
	registry := DefaultRegistry()
	for _, meta := range registry.All() {
		loader.RegisterValidator(meta.Type, validatorFor(meta))
	}
	return registry
}

func validatorFor(meta NodeMetadata) yaml.NodeValidator {
	return func(nodeID string, data map[string]any) error {
		if err := ValidateNodeConfig(&meta, data); err != nil {
			return fmt.Errorf("%s node: %w", meta.Type, err)
		}
		return nil
	}
}
