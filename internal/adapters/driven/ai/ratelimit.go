package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure decorators implement the interfaces.
var (
	_ driven.EmbeddingService = (*rateLimitedEmbedder)(nil)
	_ driven.LLMService       = (*rateLimitedLLM)(nil)
)

// WithEmbeddingRateLimit wraps svc so that at most perSecond requests start each second.
// perSecond <= 0 returns svc unchanged.
func WithEmbeddingRateLimit(svc driven.EmbeddingService, perSecond float64) driven.EmbeddingService {
	if svc == nil || perSecond <= 0 {
		return svc
	}
	return &rateLimitedEmbedder{EmbeddingService: svc, limiter: newLimiter(perSecond)}
}

// WithLLMRateLimit wraps svc so that at most perSecond requests start each second.
// perSecond <= 0 returns svc unchanged.
func WithLLMRateLimit(svc driven.LLMService, perSecond float64) driven.LLMService {
	if svc == nil || perSecond <= 0 {
		return svc
	}
	return &rateLimitedLLM{LLMService: svc, limiter: newLimiter(perSecond)}
}

func newLimiter(perSecond float64) *rate.Limiter {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

type rateLimitedEmbedder struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

func (e *rateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	return e.EmbeddingService.Embed(ctx, text)
}

func (e *rateLimitedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	return e.EmbeddingService.EmbedBatch(ctx, texts)
}

type rateLimitedLLM struct {
	driven.LLMService
	limiter *rate.Limiter
}

func (l *rateLimitedLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limit: %w", err)
	}
	return l.LLMService.Generate(ctx, prompt, opts)
}
