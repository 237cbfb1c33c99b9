package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/paperchat/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// pagePipeline turns every segment into exactly one chunk.
type pagePipeline struct{}

func (pagePipeline) Process(_ context.Context, segments []domain.Segment) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0, len(segments))
	for _, s := range segments {
		chunks = append(chunks, domain.Chunk{Content: s.Text, Metadata: s.Metadata.Clone()})
	}
	return chunks, nil
}

// countingEmbedder wraps the hash embedder and counts embedded texts.
type countingEmbedder struct {
	*hash.EmbeddingService
	texts atomic.Int32
	err   error
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{EmbeddingService: hash.NewEmbeddingService(64)}
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.texts.Add(int32(len(texts)))
	return e.EmbeddingService.EmbedBatch(ctx, texts)
}

// mockVectorStore records entries and can be told to fail writes.
type mockVectorStore struct {
	mu      sync.Mutex
	entries []domain.VectorEntry
	addErr  error
	adds    int
}

var _ driven.VectorStore = (*mockVectorStore)(nil)

func (s *mockVectorStore) Open(context.Context) error { return nil }

func (s *mockVectorStore) Add(_ context.Context, entries []domain.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adds++
	if s.addErr != nil {
		return s.addErr
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *mockVectorStore) AddChunks(context.Context, []domain.Chunk) error {
	return errors.New("not used")
}

func (s *mockVectorStore) SimilaritySearch(context.Context, string, int) ([]domain.ScoredChunk, error) {
	return nil, nil
}

func (s *mockVectorStore) AsRetriever(k int) driven.Retriever {
	return vecmath.NewRetriever(s, k)
}

func (s *mockVectorStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *mockVectorStore) HasSource(_ context.Context, source string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Chunk.Metadata.Source() == source {
			return true, nil
		}
	}
	return false, nil
}

// reset drops every entry, as a store reinitialised after corruption would.
func (s *mockVectorStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

func (s *mockVectorStore) Close() error { return nil }

func (s *mockVectorStore) contents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Chunk.Content
	}
	return out
}

// mockExtractor returns fixed pages and remembers the path it was given.
type mockExtractor struct {
	pages    []string
	err      error
	lastPath string
	existed  bool
}

func (e *mockExtractor) Extract(_ context.Context, path string) ([]domain.Segment, error) {
	e.lastPath = path
	e.existed = fileExists(path)
	if e.err != nil {
		return nil, e.err
	}
	source := path[strings.LastIndex(path, "/")+1:]
	segments := make([]domain.Segment, len(e.pages))
	for i, p := range e.pages {
		segments[i] = domain.Segment{
			Text:     p,
			Metadata: domain.Metadata{domain.MetaSource: source, domain.MetaPage: i + 1},
		}
	}
	return segments, nil
}

func (e *mockExtractor) SupportedExtensions() []string { return []string{".pdf"} }

// mockBibParser returns a fixed bibliography.
type mockBibParser struct {
	entries domain.Bibliography
}

func (p mockBibParser) Parse([]byte) domain.Bibliography { return p.entries }

// mockLLM replays canned responses in order, repeating the last one.
type mockLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	opts      []driven.GenerateOptions
}

var _ driven.LLMService = (*mockLLM)(nil)

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	i := min(len(m.prompts), len(m.responses)) - 1
	return m.responses[i], nil
}

func (m *mockLLM) ModelName() string           { return "mock" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// mockPrompts serves small templates with the same placeholders as the defaults.
type mockPrompts struct{}

func (mockPrompts) Load(name string) (string, error) {
	switch name {
	case driven.PromptMultiQuery:
		return "variants=%d question=%s", nil
	case driven.PromptAnswerWithIDs:
		return "docs:\n%s\nquery: %s\njson", nil
	case driven.PromptAnswerPlain:
		return "docs:\n%s\nquery: %s", nil
	default:
		return "", errors.New("unknown prompt")
	}
}

func (mockPrompts) Reload() {}

// mockRetriever answers by exact query text.
type mockRetriever struct {
	results map[string][]domain.Chunk
	err     error
	queries []string
}

func (r *mockRetriever) Retrieve(_ context.Context, query string) ([]domain.Chunk, error) {
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	return r.results[query], nil
}

// mockAIConfigValidator records calls and returns configured errors.
type mockAIConfigValidator struct {
	embeddingErr   error
	llmErr         error
	embeddingCalls int
	llmCalls       int
}

func (v *mockAIConfigValidator) ValidateEmbedding(context.Context, *domain.EmbeddingSettings) error {
	v.embeddingCalls++
	return v.embeddingErr
}

func (v *mockAIConfigValidator) ValidateLLM(context.Context, *domain.LLMSettings) error {
	v.llmCalls++
	return v.llmErr
}

func chunk(source string, page int, content string) domain.Chunk {
	return domain.Chunk{
		Content:  content,
		Metadata: domain.Metadata{domain.MetaSource: source, domain.MetaPage: page},
	}
}

func pages(source string, texts ...string) []domain.Segment {
	out := make([]domain.Segment, len(texts))
	for i, t := range texts {
		out[i] = domain.Segment{
			Text:     t,
			Metadata: domain.Metadata{domain.MetaSource: source, domain.MetaPage: i + 1},
		}
	}
	return out
}
