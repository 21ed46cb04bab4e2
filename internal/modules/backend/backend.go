// Package backend turns acquired text into a summary through a provider
// selected by the model prefix. Selection failures surface immediately as
// configuration errors; call failures are wrapped with the provider name.
// No retries happen here.
package backend

import (
	"context"
	"strings"

	"github.com/compresso/core/internal/config"
	"github.com/compresso/core/internal/models"
	"github.com/compresso/core/internal/modules/prompts"
	"go.uber.org/zap"
)

// Backend is a single LLM provider able to produce summaries.
type Backend interface {
	Summarize(ctx context.Context, text string, opts models.SummaryOptions, promptTemplate string) (string, error)
}

// Factory resolves backends by the provider prefix of the model selector.
type Factory struct {
	cfg    *config.AppConfig
	logger *zap.Logger
}

func NewFactory(cfg *config.AppConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// Select returns the backend for the options' provider prefix. Unknown
// prefixes and missing credentials fail here, before any call is made.
func (f *Factory) Select(opts models.SummaryOptions) (Backend, error) {
	switch opts.Provider() {
	case "openai":
		if f.cfg.Providers.OpenAIAPIKey == "" {
			return nil, &models.ConfigurationError{Reason: "openai api key is not set"}
		}
		return newOpenAIBackend(f.cfg.Providers.OpenAIAPIKey, f.logger), nil
	case "anthropic":
		if f.cfg.Providers.AnthropicAPIKey == "" {
			return nil, &models.ConfigurationError{Reason: "anthropic api key is not set"}
		}
		return newAnthropicBackend(f.cfg.Providers.AnthropicAPIKey, f.logger), nil
	}
	return nil, &models.ConfigurationError{Reason: "unsupported LLM provider: " + opts.Provider()}
}

// maxOutputTokens maps the detail level to a generation budget: long detail
// doubles the short/medium budget.
func maxOutputTokens(detail models.DetailLevel) int64 {
	if detail == models.DetailLong {
		return 2000
	}
	return 1000
}

// renderPrompt substitutes the acquired text into the template's content
// placeholder.
func renderPrompt(promptTemplate, text string) string {
	return strings.ReplaceAll(promptTemplate, prompts.ContentPlaceholder, text)
}
