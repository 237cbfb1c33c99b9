package postprocessors

import (
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in chunkers and processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.RegisterChunker("recursive", buildRecursive)
	r.RegisterChunker("fixed", buildFixed)
	r.Register("min_length", buildMinLength)
}

// DefaultRegistry returns a registry with the built-ins registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// BuildPipeline assembles the chunking pipeline described by settings.
func (r *Registry) BuildPipeline(settings domain.ChunkerSettings) (*Pipeline, error) {
	name := settings.Type
	if name == "" {
		name = "recursive"
	}

	c, err := r.BuildChunker(name, map[string]any{
		"chunk_size": settings.ChunkSize,
		"overlap":    settings.ChunkOverlap,
	})
	if err != nil {
		return nil, err
	}

	p := NewPipeline(c)
	if settings.MinLength > 0 {
		proc, err := r.Build("min_length", map[string]any{"min_length": settings.MinLength})
		if err != nil {
			return nil, err
		}
		p.Add(proc)
	}
	return p, nil
}

// buildRecursive creates a recursive chunker from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 500)
//   - overlap (int): Overlapping characters between chunks (default: 0)
func buildRecursive(cfg map[string]any) (driven.Chunker, error) {
	return chunker.NewRecursive(chunkerOptions(cfg)...), nil
}

// buildFixed creates a fixed-window chunker from generic config.
// Accepts the same keys as buildRecursive.
func buildFixed(cfg map[string]any) (driven.Chunker, error) {
	return chunker.NewFixed(chunkerOptions(cfg)...), nil
}

func chunkerOptions(cfg map[string]any) []chunker.Option {
	var opts []chunker.Option
	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if overlap := getIntFromConfig(cfg, "overlap"); overlap >= 0 {
			opts = append(opts, chunker.WithOverlap(overlap))
		}
	}
	return opts
}

// buildMinLength creates the short-chunk filter.
// Supported config keys:
//   - min_length (int): Minimum characters to keep a chunk
func buildMinLength(cfg map[string]any) (driven.PostProcessor, error) {
	return NewMinLength(getIntFromConfig(cfg, "min_length")), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
