package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// ChunkerBuilderFunc creates a Chunker from generic config.
// Config is a map of chunker-specific settings parsed from user config.
type ChunkerBuilderFunc func(cfg map[string]any) (driven.Chunker, error)

// BuilderFunc creates a PostProcessor from generic config.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps chunker and processor names to their builders.
// It allows dynamic construction of the pipeline from configuration.
type Registry struct {
	chunkers map[string]ChunkerBuilderFunc
	builders map[string]BuilderFunc
}

// NewRegistry creates a new, empty registry.
func NewRegistry() *Registry {
	return &Registry{
		chunkers: make(map[string]ChunkerBuilderFunc),
		builders: make(map[string]BuilderFunc),
	}
}

// RegisterChunker adds a chunker builder to the registry.
// Name should be unique and match the chunker's Name() return value.
func (r *Registry) RegisterChunker(name string, builder ChunkerBuilderFunc) {
	r.chunkers[name] = builder
}

// Register adds a processor builder to the registry.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// BuildChunker creates a chunker by name with the given config.
func (r *Registry) BuildChunker(name string, cfg map[string]any) (driven.Chunker, error) {
	builder, ok := r.chunkers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown chunker: %s", domain.ErrUnsupportedType, name)
	}
	return builder(cfg)
}

// Build creates a processor by name with the given config.
// Returns error if the processor name is not registered.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor: %s", domain.ErrUnsupportedType, name)
	}
	return builder(cfg)
}

// Has returns true if a processor with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// HasChunker returns true if a chunker with the given name is registered.
func (r *Registry) HasChunker(name string) bool {
	_, ok := r.chunkers[name]
	return ok
}

// ChunkerNames returns all registered chunker names, sorted.
func (r *Registry) ChunkerNames() []string {
	names := make([]string, 0, len(r.chunkers))
	for name := range r.chunkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Names returns all registered processor names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
