package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// RetrievalOptions configures query expansion.
type RetrievalOptions struct {
	// MultiQuery asks the LLM for rewritten variants of the question.
	MultiQuery bool

	// Variants is the number of rewrites requested.
	Variants int

	// IncludeOriginal searches the user's question before the variants.
	IncludeOriginal bool
}

// RetrievalService gathers evidence for a question and resolves citations
// against it.
type RetrievalService struct {
	retriever driven.Retriever
	llm       driven.LLMService
	prompts   driven.PromptStore
	opts      RetrievalOptions
}

// NewRetrievalService creates a retrieval service. llm and prompts are only
// needed when multi-query expansion is enabled.
func NewRetrievalService(
	retriever driven.Retriever,
	llm driven.LLMService,
	prompts driven.PromptStore,
	opts RetrievalOptions,
) *RetrievalService {
	if opts.Variants <= 0 {
		opts.Variants = domain.DefaultVariants
	}
	return &RetrievalService{
		retriever: retriever,
		llm:       llm,
		prompts:   prompts,
		opts:      opts,
	}
}

// Retrieve returns the evidence set for query. Every document receives an
// identifier unique to this call.
func (s *RetrievalService) Retrieve(ctx context.Context, query string) (*domain.EvidenceSet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	queries := s.expand(ctx, query)
	logger.Debug("searching %d queries", len(queries))

	var chunks []domain.Chunk
	for _, q := range queries {
		found, err := s.retriever.Retrieve(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("retrieve %q: %w", q, err)
		}
		chunks = append(chunks, found...)
	}

	return &domain.EvidenceSet{
		Query:   query,
		Queries: queries,
		Docs:    label(dedupe(chunks)),
	}, nil
}

// expand returns the queries to search. Expansion failures fall back to the
// original question.
func (s *RetrievalService) expand(ctx context.Context, query string) []string {
	if !s.opts.MultiQuery || s.llm == nil || s.prompts == nil {
		return []string{query}
	}

	variants, err := s.rewrite(ctx, query)
	if err != nil {
		logger.Warn("query expansion failed, using original query: %v", err)
		return []string{query}
	}
	if len(variants) == 0 {
		logger.Warn("query expansion returned no variants, using original query")
		return []string{query}
	}

	if s.opts.IncludeOriginal {
		return append([]string{query}, variants...)
	}
	return variants
}

func (s *RetrievalService) rewrite(ctx context.Context, query string) ([]string, error) {
	tmpl, err := s.prompts.Load(driven.PromptMultiQuery)
	if err != nil {
		return nil, err
	}
	out, err := s.llm.Generate(ctx, fmt.Sprintf(tmpl, s.opts.Variants, query), driven.GenerateOptions{})
	if err != nil {
		return nil, err
	}
	return ParseVariants(out, s.opts.Variants), nil
}

// ParseVariants splits model output into at most limit distinct queries,
// one per line, dropping list markers and blank lines.
func ParseVariants(out string, limit int) []string {
	seen := make(map[string]bool)
	var variants []string
	for _, line := range strings.Split(out, "\n") {
		line = stripListMarker(strings.TrimSpace(line))
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		variants = append(variants, line)
		if limit > 0 && len(variants) == limit {
			break
		}
	}
	return variants
}

// stripListMarker removes a leading "1.", "2)", "-" or "*".
func stripListMarker(line string) string {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:])
	}
	i := 0
	for i < len(line) && unicode.IsDigit(rune(line[i])) {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}

// dedupe drops chunks whose (source, content) was already seen.
func dedupe(chunks []domain.Chunk) []domain.Chunk {
	type docKey struct{ source, content string }
	seen := make(map[docKey]bool, len(chunks))
	out := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		k := docKey{c.Metadata.Source(), c.Content}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

// label assigns identifiers scoped to one retrieval call.
func label(chunks []domain.Chunk) []domain.RetrievedDoc {
	prefix := uuid.NewString()[:8]
	docs := make([]domain.RetrievedDoc, len(chunks))
	for i, c := range chunks {
		docs[i] = domain.RetrievedDoc{
			ID:       fmt.Sprintf("%s-%d", prefix, i+1),
			Content:  c.Content,
			Metadata: c.Metadata,
		}
	}
	return docs
}

// BuildCitations resolves selected identifiers against the evidence map.
// Citations are unique by source, keep the first domain seen and follow the
// order of first appearance.
func BuildCitations(selected []string, evidence map[string]domain.RetrievedDoc) ([]domain.Citation, error) {
	seen := make(map[string]bool)
	citations := make([]domain.Citation, 0, len(selected))
	for _, id := range selected {
		doc, ok := evidence[strings.TrimSpace(id)]
		if !ok {
			return nil, &domain.UnknownReferenceError{ID: id}
		}
		src := doc.Metadata.Source()
		if seen[src] {
			continue
		}
		seen[src] = true
		citations = append(citations, domain.Citation{
			Source: src,
			Domain: doc.Metadata.Domain(),
		})
	}
	return citations, nil
}

// PageCitations formats each document as "source (page N)", or just the
// source when no page is recorded, without duplicates.
func PageCitations(docs []domain.RetrievedDoc) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, d := range docs {
		ref := d.Metadata.Source()
		if page, ok := d.Metadata.Page(); ok {
			ref = fmt.Sprintf("%s (page %d)", ref, page)
		}
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

// SourceCitations returns one citation per distinct source in the evidence.
func SourceCitations(docs []domain.RetrievedDoc) []domain.Citation {
	seen := make(map[string]bool)
	var out []domain.Citation
	for _, d := range docs {
		src := d.Metadata.Source()
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, domain.Citation{Source: src, Domain: d.Metadata.Domain()})
	}
	return out
}
