package backend

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/compresso/core/internal/models"
	"go.uber.org/zap"
)

const defaultAnthropicModel = "claude-haiku-4-5-20251001"

type anthropicBackend struct {
	client anthropic.Client
	logger *zap.Logger
}

func newAnthropicBackend(apiKey string, logger *zap.Logger) *anthropicBackend {
	return &anthropicBackend{
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		),
		logger: logger,
	}
}

func (b *anthropicBackend) Summarize(ctx context.Context, text string, opts models.SummaryOptions, promptTemplate string) (string, error) {
	model := opts.ModelName()
	if model == "" {
		model = defaultAnthropicModel
	}

	b.logger.Info("calling anthropic", zap.String("model", model))

	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   maxOutputTokens(opts.Detail),
		Temperature: anthropic.Float(0.7),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(renderPrompt(promptTemplate, text))),
		},
	})
	if err != nil {
		return "", &models.BackendError{Provider: "anthropic", Cause: err}
	}

	var full strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			full.WriteString(block.Text)
		}
	}
	summary := full.String()
	if strings.TrimSpace(summary) == "" {
		return "", &models.BackendError{Provider: "anthropic", Cause: errors.New("empty response")}
	}

	b.logger.Info("anthropic call succeeded",
		zap.String("model", model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	return summary, nil
}
