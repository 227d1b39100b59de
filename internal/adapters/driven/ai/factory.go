// Package ai builds the embedding, LLM and classifier adapters from settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/rfpkb/internal/adapters/driven/classifier"
	ollamaembed "github.com/custodia-labs/rfpkb/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/rfpkb/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/rfpkb/internal/adapters/driven/llm/anthropic"
	openaillm "github.com/custodia-labs/rfpkb/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Ollama serves an OpenAI-compatible chat API under /v1.
const ollamaChatBaseURL = "http://localhost:11434/v1"

// anthropicRetries is the SDK retry budget for classifier calls.
const anthropicRetries = 2

// InitResult holds the AI services built from settings. Any of them may be
// nil; the core degrades to lexical scoring and a classifier-free
// sanitize pass.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Classifier       driven.Classifier
	Warnings         []string // Non-fatal issues that disabled a service.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Initialise builds every configured AI service. With validate set, each
// service is pinged and dropped with a warning when unreachable. Failures
// never abort: retrieval works without embeddings and sanitize works
// without a classifier.
func Initialise(settings *domain.AppSettings, prompts driven.PromptStore, validate bool) *InitResult {
	result := &InitResult{}

	embedding, err := CreateEmbeddingService(&settings.Embedding)
	if err == nil && embedding != nil && validate {
		err = ping(embedding.Ping)
		if err != nil {
			embedding.Close()
			embedding = nil
		}
	}
	if err != nil {
		result.warn(fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err))
	}
	result.EmbeddingService = embedding

	llm, err := CreateLLMService(&settings.LLM)
	if err == nil && llm != nil && validate {
		err = ping(llm.Ping)
		if err != nil {
			llm.Close()
			llm = nil
		}
	}
	if err != nil {
		result.warn(fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err))
	}
	result.LLMService = llm

	if llm != nil {
		result.Classifier = CreateClassifier(llm, settings.Maintenance, prompts)
	}
	return result
}

func (r *InitResult) warn(err error) {
	logger.Warn("%v", err)
	r.Warnings = append(r.Warnings, err.Error())
}

// CreateClassifier wraps llm in a throttled quality classifier.
func CreateClassifier(llm driven.LLMService, settings domain.MaintenanceSettings, prompts driven.PromptStore) driven.Classifier {
	if llm == nil {
		return nil
	}
	c := classifier.New(llm, classifier.Options{RequestsPerSecond: settings.ClassifierRate})
	if prompts != nil {
		c.SetPromptStore(prompts)
	}
	return c
}

// ValidateEmbeddingConfig creates an embedding service from settings and pings it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(svc.Ping)
}

// ValidateLLMConfig creates an LLM service from settings and pings it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(svc.Ping)
}

func ping(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return fmt.Errorf("service unreachable: %w", err)
	}
	return nil
}

// CreateEmbeddingService creates the embedding service for settings.
// Returns nil and no error when embeddings are not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, errors.New("anthropic does not support embeddings, use ollama or openai")
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil
	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the LLM service for settings.
// Returns nil and no error when no LLM is configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = ollamaChatBaseURL
		}
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  "ollama", // required by the client, ignored by Ollama
			BaseURL: baseURL,
			Model:   modelOrDefault(settings.Model, domain.AIProviderOllama),
		})
	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			MaxRetries: anthropicRetries,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

func modelOrDefault(model string, provider domain.AIProvider) string {
	if model != "" {
		return model
	}
	return domain.DefaultLLMModels()[provider]
}
