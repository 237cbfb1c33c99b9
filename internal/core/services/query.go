package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// NoEvidenceResponse is returned when retrieval finds nothing to answer from.
const NoEvidenceResponse = "No matching documents were found for this question."

// QueryOptions configures answering.
type QueryOptions struct {
	// CitationMode selects identifier or page citations.
	CitationMode domain.CitationMode

	// MaxAttempts bounds generations when the model cites an unknown identifier.
	MaxAttempts int

	// Temperature is passed to the LLM.
	Temperature float64
}

// QueryService answers questions from retrieved evidence.
type QueryService struct {
	retrieval *RetrievalService
	llm       driven.LLMService
	prompts   driven.PromptStore
	opts      QueryOptions
}

// NewQueryService creates a query service. A nil llm leaves Retrieve usable
// while Query reports domain.ErrProviderUnavailable.
func NewQueryService(
	retrieval *RetrievalService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	opts QueryOptions,
) *QueryService {
	if !opts.CitationMode.IsValid() {
		opts.CitationMode = domain.CitationModeIDs
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = domain.DefaultMaxAttempts
	}
	return &QueryService{
		retrieval: retrieval,
		llm:       llm,
		prompts:   prompts,
		opts:      opts,
	}
}

// Retrieve returns the evidence for question without generating an answer.
func (s *QueryService) Retrieve(ctx context.Context, question string) (*domain.EvidenceSet, error) {
	return s.retrieval.Retrieve(ctx, question)
}

// Query retrieves evidence and generates a cited answer.
func (s *QueryService) Query(ctx context.Context, question string) (*domain.Answer, error) {
	logger.Section("Query")

	if s.llm == nil {
		return nil, fmt.Errorf("%w: no LLM configured", domain.ErrProviderUnavailable)
	}

	done := logger.Timed("retrieval")
	evidence, err := s.retrieval.Retrieve(ctx, question)
	done()
	if err != nil {
		return nil, err
	}
	logger.Debug("%d documents retrieved", len(evidence.Docs))

	if len(evidence.Docs) == 0 {
		return &domain.Answer{Query: evidence.Query, Response: NoEvidenceResponse}, nil
	}

	if s.opts.CitationMode == domain.CitationModePages {
		return s.answerWithPages(ctx, evidence)
	}
	return s.answerWithIDs(ctx, evidence)
}

// answerResponse is the structured completion for identifier citations.
type answerResponse struct {
	Response    string   `json:"response"`
	DocumentIDs []string `json:"document_ids"`
}

var answerFields = []string{"response", "document_ids"}

func (s *QueryService) answerWithIDs(ctx context.Context, evidence *domain.EvidenceSet) (*domain.Answer, error) {
	tmpl, err := s.prompts.Load(driven.PromptAnswerWithIDs)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}

	byID := evidence.Map()
	prompt := fmt.Sprintf(tmpl, FormatEvidence(evidence.Docs), evidence.Query)
	opts := driven.GenerateOptions{Temperature: s.opts.Temperature, JSON: true}

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		var out answerResponse
		if err := GenerateStructured(ctx, s.llm, prompt, opts, answerFields, &out); err != nil {
			if !errors.Is(err, domain.ErrProviderUnavailable) || ctx.Err() != nil {
				return nil, err
			}
			logger.Warn("attempt %d: %v", attempt, err)
			lastErr = err
			continue
		}

		citations, err := BuildCitations(out.DocumentIDs, byID)
		if err != nil {
			var unknown *domain.UnknownReferenceError
			if !errors.As(err, &unknown) {
				return nil, err
			}
			logger.Warn("attempt %d: model cited %q", attempt, unknown.ID)
			lastErr = err
			prompt = withCorrection(prompt, unknown.ID, evidence.Docs)
			continue
		}

		return &domain.Answer{
			Query:     evidence.Query,
			Response:  out.Response,
			Citations: citations,
			Evidence:  evidence.Docs,
		}, nil
	}
	return nil, fmt.Errorf("answer after %d attempts: %w", s.opts.MaxAttempts, lastErr)
}

func (s *QueryService) answerWithPages(ctx context.Context, evidence *domain.EvidenceSet) (*domain.Answer, error) {
	tmpl, err := s.prompts.Load(driven.PromptAnswerPlain)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}

	prompt := fmt.Sprintf(tmpl, FormatEvidence(evidence.Docs), evidence.Query)
	out, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: s.opts.Temperature})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Query:      evidence.Query,
		Response:   strings.TrimSpace(out),
		Citations:  SourceCitations(evidence.Docs),
		References: PageCitations(evidence.Docs),
		Evidence:   evidence.Docs,
	}, nil
}

// FormatEvidence renders documents as "[id] (source, page N, domain)"
// headers followed by their content, separated by blank lines.
func FormatEvidence(docs []domain.RetrievedDoc) string {
	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		attrs := []string{d.Metadata.Source()}
		if page, ok := d.Metadata.Page(); ok {
			attrs = append(attrs, fmt.Sprintf("page %d", page))
		}
		if dom := d.Metadata.Domain(); dom != "" {
			attrs = append(attrs, dom)
		}
		fmt.Fprintf(&b, "[%s] (%s)\n%s", d.ID, strings.Join(attrs, ", "), d.Content)
	}
	return b.String()
}

func withCorrection(prompt, badID string, docs []domain.RetrievedDoc) string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return fmt.Sprintf("%s\n\nNote: %q is not a valid identifier. Use only these identifiers: %s.",
		prompt, badID, strings.Join(ids, ", "))
}

// GenerateStructured asks the LLM for a JSON object, decodes it into out and
// checks that every required field is present. Output that is not a valid
// object is reported as domain.ErrProviderUnavailable.
func GenerateStructured(
	ctx context.Context,
	llm driven.LLMService,
	prompt string,
	opts driven.GenerateOptions,
	required []string,
	out any,
) error {
	opts.JSON = true
	raw, err := llm.Generate(ctx, prompt, opts)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	obj := extractJSONObject(raw)
	if obj == "" {
		return fmt.Errorf("%w: model returned no JSON object", domain.ErrProviderUnavailable)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return fmt.Errorf("%w: decode model output: %w", domain.ErrProviderUnavailable, err)
	}
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("%w: model output missing %q", domain.ErrProviderUnavailable, name)
		}
	}

	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("%w: decode model output: %w", domain.ErrProviderUnavailable, err)
	}
	return nil
}

// extractJSONObject trims code fences and surrounding prose, returning the
// text from the first '{' to the last '}'.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
