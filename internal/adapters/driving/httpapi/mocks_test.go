package httpapi

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

type mockIngestService struct {
	result *domain.IngestResult
	err    error

	name string
	data []byte
	opts driving.IngestOptions
}

func (m *mockIngestService) Ingest(context.Context, domain.IngestRequest) (*domain.IngestResult, error) {
	return m.result, m.err
}

func (m *mockIngestService) IngestFile(context.Context, string, driving.IngestOptions) (*domain.IngestResult, error) {
	return m.result, m.err
}

func (m *mockIngestService) IngestBytes(
	_ context.Context, name string, data []byte, opts driving.IngestOptions,
) (*domain.IngestResult, error) {
	m.name, m.data, m.opts = name, data, opts
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.IngestResult{Source: name, Message: domain.MessageUploaded}, nil
}

type mockQueryService struct {
	answer   *domain.Answer
	evidence *domain.EvidenceSet
	err      error

	question    string
	hadDeadline bool
}

func (m *mockQueryService) Query(ctx context.Context, question string) (*domain.Answer, error) {
	m.question = question
	_, m.hadDeadline = ctx.Deadline()
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{
		Query:      question,
		Response:   "Vectors are ordered lists of numbers.",
		Citations:  []domain.Citation{{Source: "test.pdf", Domain: "math"}},
		References: []string{"test.pdf (page 1)"},
	}, nil
}

func (m *mockQueryService) Retrieve(ctx context.Context, question string) (*domain.EvidenceSet, error) {
	m.question = question
	_, m.hadDeadline = ctx.Deadline()
	if m.err != nil {
		return nil, m.err
	}
	if m.evidence != nil {
		return m.evidence, nil
	}
	return &domain.EvidenceSet{
		Query:   question,
		Queries: []string{question},
		Docs: []domain.RetrievedDoc{{
			ID:      "ab12cd34-0",
			Content: "A vector has magnitude and direction.",
			Metadata: domain.Metadata{
				domain.MetaSource: "test.pdf",
				domain.MetaPage:   1,
			},
		}},
	}, nil
}

type mockStatsService struct {
	err error
}

func (m *mockStatsService) Stats(context.Context) (*driving.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &driving.Stats{Namespace: domain.DefaultNamespace, LedgerRecords: 3, Vectors: 3}, nil
}

func (m *mockStatsService) Records(context.Context) ([]domain.IndexRecord, error) {
	return nil, m.err
}
