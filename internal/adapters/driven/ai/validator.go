package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// ConfigValidator validates AI provider configurations by building the
// service and pinging it.
type ConfigValidator struct {
	registry *Registry
}

// NewConfigValidator creates a validator. A nil registry uses DefaultRegistry.
func NewConfigValidator(registry *Registry) *ConfigValidator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &ConfigValidator{registry: registry}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := v.registry.CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%s embedding service unreachable: %w", settings.Provider, err)
	}
	return nil
}

// ValidateLLM validates an LLM configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := v.registry.CreateLLMService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%s LLM service unreachable: %w", settings.Provider, err)
	}
	return nil
}
