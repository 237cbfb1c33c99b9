package mcp

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// mockIngestService is a mock implementation of driving.IngestionService.
type mockIngestService struct {
	result *domain.IngestResult
	err    error
	path   string
	opts   driving.IngestOptions
}

func (m *mockIngestService) Ingest(_ context.Context, _ domain.IngestRequest) (*domain.IngestResult, error) {
	return m.result, m.err
}

func (m *mockIngestService) IngestFile(
	_ context.Context,
	path string,
	opts driving.IngestOptions,
) (*domain.IngestResult, error) {
	m.path, m.opts = path, opts
	return m.result, m.err
}

func (m *mockIngestService) IngestBytes(
	_ context.Context,
	_ string,
	_ []byte,
	_ driving.IngestOptions,
) (*domain.IngestResult, error) {
	return m.result, m.err
}

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer   *domain.Answer
	evidence *domain.EvidenceSet
	err      error
	question string
}

func (m *mockQueryService) Query(_ context.Context, question string) (*domain.Answer, error) {
	m.question = question
	return m.answer, m.err
}

func (m *mockQueryService) Retrieve(_ context.Context, question string) (*domain.EvidenceSet, error) {
	m.question = question
	return m.evidence, m.err
}

// mockStatsService is a mock implementation of driving.StatsService.
type mockStatsService struct {
	stats *driving.Stats
	err   error
}

func (m *mockStatsService) Stats(_ context.Context) (*driving.Stats, error) {
	return m.stats, m.err
}

func (m *mockStatsService) Records(_ context.Context) ([]domain.IndexRecord, error) {
	return nil, m.err
}

func validPorts() *Ports {
	return &Ports{Ingest: &mockIngestService{}, Query: &mockQueryService{}}
}
